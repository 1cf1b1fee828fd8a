package detect

import (
	"image"
	"sort"
)

// Underline detection parameters. Kernels of several widths are run so that
// short dotted lines and long solid rules are both found; the results are
// deduplicated by proximity.
var underlineKernels = []int{25, 40, 60}

const (
	openingIterations = 2
	minUnderlineWidth = 30

	// dedup proximity between segments found by different kernels
	dedupDX = 30
	dedupDY = 10
	dedupDW = 50
)

// Input box acceptance thresholds.
const (
	boxMinWidth  = 50
	boxMaxWidth  = 1000
	boxMinHeight = 10
	boxMaxHeight = 100
	boxMinAspect = 2.0
	boxMaxFill   = 0.35
)

// DetectUnderlines finds horizontal underline segments in the page image.
func DetectUnderlines(img image.Image) []Segment {
	mask := binarize(Grayscale(img))

	var all []Segment
	for _, kernel := range underlineKernels {
		opened := openHorizontal(mask, kernel, openingIterations)
		for _, seg := range connectedComponents(opened) {
			if seg.W < minUnderlineWidth {
				continue
			}
			all = append(all, seg)
		}
	}
	return dedupSegments(all)
}

// dedupSegments drops segments that sit on top of an already-kept one.
// Segments are compared by their top-left corner and width.
func dedupSegments(segments []Segment) []Segment {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Y != segments[j].Y {
			return segments[i].Y < segments[j].Y
		}
		return segments[i].X < segments[j].X
	})

	var kept []Segment
	for _, seg := range segments {
		duplicate := false
		for _, k := range kept {
			if abs(seg.X-k.X) < dedupDX && abs(seg.Y-k.Y) < dedupDY && abs(seg.W-k.W) < dedupDW {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, seg)
		}
	}
	return kept
}

// DetectBoxes finds rectangular input boxes: hollow ink components with a
// wide, flat shape. Components overlapping an accepted underline are
// rejected so a boxed underline is not reported twice.
func DetectBoxes(img image.Image, underlines []Segment) []Segment {
	mask := binarize(Grayscale(img))

	var boxes []Segment
	for _, seg := range connectedComponents(mask) {
		if seg.W <= boxMinWidth || seg.W >= boxMaxWidth {
			continue
		}
		if seg.H <= boxMinHeight || seg.H >= boxMaxHeight {
			continue
		}
		if float64(seg.W)/float64(seg.H) <= boxMinAspect {
			continue
		}
		// outline boxes are mostly empty inside; text blobs are dense
		if fillRatio(mask, seg) > boxMaxFill {
			continue
		}
		if overlapsAny(seg, underlines) {
			continue
		}
		boxes = append(boxes, seg)
	}
	return boxes
}

func overlapsAny(seg Segment, others []Segment) bool {
	for _, o := range others {
		if seg.X < o.X+o.W && o.X < seg.X+seg.W && seg.Y < o.Y+o.H && o.Y < seg.Y+seg.H {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
