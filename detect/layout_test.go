package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupWords(t *testing.T) {
	words := []Word{
		{Text: "Họ", X: 40, Y: 80, W: 30, H: 15, Conf: 90},
		{Text: "và", X: 75, Y: 81, W: 25, H: 15, Conf: 80},
		{Text: "tên:", X: 105, Y: 80, W: 40, H: 15, Conf: 70},
		// different line
		{Text: "Email", X: 40, Y: 140, W: 60, H: 15, Conf: 95},
		// single-character noise
		{Text: ".", X: 200, Y: 80, W: 5, H: 5, Conf: 10},
	}

	groups := GroupWords(words)
	require.Len(t, groups, 2)

	assert.Equal(t, "Họ và tên:", groups[0].Text)
	assert.Equal(t, 40, groups[0].X)
	assert.Equal(t, 105, groups[0].W)
	assert.InDelta(t, 80, groups[0].Conf, 0.01)

	assert.Equal(t, "Email", groups[1].Text)
}

func TestGroupWordsGapBreaksPhrase(t *testing.T) {
	words := []Word{
		{Text: "Ngày", X: 40, Y: 80, W: 50, H: 15, Conf: 90},
		{Text: "sinh", X: 300, Y: 80, W: 45, H: 15, Conf: 90},
	}
	assert.Len(t, GroupWords(words), 2)
}

func TestBestLabelPrefersColonAndLength(t *testing.T) {
	elem := Segment{X: 100, Y: 120, W: 150, H: 3}
	labels := []GroupedLabel{
		{Text: "Tên", X: 100, Y: 90, W: 40, H: 15, Conf: 90},
		{Text: "Họ và tên:", X: 100, Y: 60, W: 120, H: 15, Conf: 80},
	}

	best, ok := BestLabel(elem, labels)
	require.True(t, ok)
	assert.Equal(t, "Họ và tên:", best.Text)
}

func TestBestLabelTieBreaksOnDistance(t *testing.T) {
	elem := Segment{X: 100, Y: 120, W: 100, H: 3}
	near := GroupedLabel{Text: "Email:", X: 100, Y: 100, W: 60, H: 15, Conf: 80}
	far := GroupedLabel{Text: "Emaik:", X: 100, Y: 40, W: 60, H: 15, Conf: 80}

	best, ok := BestLabel(elem, []GroupedLabel{far, near})
	require.True(t, ok)
	assert.Equal(t, "Email:", best.Text)
}

func TestBestLabelLeftOfElement(t *testing.T) {
	elem := Segment{X: 200, Y: 100, W: 150, H: 3}
	labels := []GroupedLabel{
		{Text: "Số điện thoại:", X: 40, Y: 95, W: 140, H: 15, Conf: 85},
	}

	best, ok := BestLabel(elem, labels)
	require.True(t, ok)
	assert.Equal(t, "Số điện thoại:", best.Text)
}

func TestBestLabelNoCandidate(t *testing.T) {
	// label below the element is never a candidate
	elem := Segment{X: 100, Y: 50, W: 100, H: 3}
	labels := []GroupedLabel{
		{Text: "Ghi chú:", X: 100, Y: 200, W: 80, H: 15, Conf: 85},
	}

	_, ok := BestLabel(elem, labels)
	assert.False(t, ok)
}
