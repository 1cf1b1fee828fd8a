package detect

import (
	"math"
	"sort"
	"strings"
)

// Label grouping and candidate search parameters.
const (
	minWordLength = 2

	// words on the same text line
	groupMaxDY  = 5
	groupMaxGap = 100

	// label above the input element, same column
	aboveMaxDCX = 300
	aboveMaxDY  = 100

	// label left of the input element, same row
	leftMaxDCY = 30
	leftMaxDX  = 400
)

// GroupedLabel is a run of co-linear adjacent OCR words treated as one
// label phrase. Confidence is the average of the member words.
type GroupedLabel struct {
	Text string
	X    int
	Y    int
	W    int
	H    int
	Conf float64
}

// CenterX returns the horizontal center of the label.
func (g GroupedLabel) CenterX() float64 { return float64(g.X) + float64(g.W)/2 }

// CenterY returns the vertical center of the label.
func (g GroupedLabel) CenterY() float64 { return float64(g.Y) + float64(g.H)/2 }

// GroupWords merges co-linear adjacent words into label phrases, keeping
// left-to-right order. Words shorter than two characters are noise from the
// OCR pass and are dropped first.
func GroupWords(words []Word) []GroupedLabel {
	var usable []Word
	for _, w := range words {
		if len([]rune(w.Text)) >= minWordLength {
			usable = append(usable, w)
		}
	}
	// words with a small vertical jitter still belong to the same line, so
	// order them by X within the line tolerance
	sort.Slice(usable, func(i, j int) bool {
		if abs(usable[i].Y-usable[j].Y) >= groupMaxDY {
			return usable[i].Y < usable[j].Y
		}
		return usable[i].X < usable[j].X
	})

	var groups []GroupedLabel
	for _, w := range usable {
		merged := false
		for i := range groups {
			g := &groups[i]
			sameLine := abs(w.Y-g.Y) < groupMaxDY
			gap := w.X - (g.X + g.W)
			if sameLine && gap >= 0 && gap < groupMaxGap {
				count := float64(len(strings.Fields(g.Text)))
				g.Text += " " + w.Text
				g.Conf = (g.Conf*count + w.Conf) / (count + 1)
				if w.X+w.W > g.X+g.W {
					g.W = w.X + w.W - g.X
				}
				if w.H > g.H {
					g.H = w.H
				}
				merged = true
				break
			}
		}
		if !merged {
			groups = append(groups, GroupedLabel{
				Text: w.Text, X: w.X, Y: w.Y, W: w.W, H: w.H, Conf: w.Conf,
			})
		}
	}
	return groups
}

// BestLabel finds the best label for one input element among the grouped
// labels: either above in the same column or to the left on the same row.
// Candidates are ranked by a priority score favoring longer phrases and
// phrases ending with a colon; ties break on Euclidean distance.
func BestLabel(elem Segment, labels []GroupedLabel) (GroupedLabel, bool) {
	var best GroupedLabel
	bestScore := math.Inf(-1)
	bestDist := math.Inf(1)
	found := false

	for _, label := range labels {
		dy := float64(elem.Y) - float64(label.Y)
		above := math.Abs(elem.CenterX()-label.CenterX()) < aboveMaxDCX &&
			dy > 0 && dy < aboveMaxDY
		dx := float64(elem.X) - float64(label.X)
		left := math.Abs(elem.CenterY()-label.CenterY()) < leftMaxDCY &&
			dx > 0 && dx < leftMaxDX
		if !above && !left {
			continue
		}

		score := labelScore(label)
		dist := math.Hypot(elem.CenterX()-label.CenterX(), elem.CenterY()-label.CenterY())
		if score > bestScore || (score == bestScore && dist < bestDist) {
			best = label
			bestScore = score
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// labelScore ranks a candidate label: 10 per character, 50 for a trailing
// colon, plus a small confidence contribution.
func labelScore(label GroupedLabel) float64 {
	score := 10 * float64(len([]rune(label.Text)))
	if strings.HasSuffix(strings.TrimSpace(label.Text), ":") {
		score += 50
	}
	return score + label.Conf/10
}
