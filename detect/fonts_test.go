package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanFonts(t *testing.T) {
	tests := []struct {
		name     string
		pdf      string
		primary  string
		observed []string
	}{
		{
			name:     "subset prefixed times",
			pdf:      `/BaseFont /ABCDEF+TimesNewRoman /BaseFont /GHIJKL+Arial-Bold`,
			primary:  "TimesNewRoman",
			observed: []string{"TimesNewRoman", "Arial-Bold"},
		},
		{
			name:     "sans only",
			pdf:      `/BaseFont /Helvetica`,
			primary:  "Helvetica",
			observed: []string{"Helvetica"},
		},
		{
			name:     "liberation serif beats sans",
			pdf:      `/BaseFont /LiberationSans /BaseFont /LiberationSerif`,
			primary:  "LiberationSerif",
			observed: []string{"LiberationSans", "LiberationSerif"},
		},
		{
			name:     "unknown font is still reported",
			pdf:      `/BaseFont /SomeCustomFace`,
			primary:  "SomeCustomFace",
			observed: []string{"SomeCustomFace"},
		},
		{
			name:    "no fonts falls back to default",
			pdf:     `%PDF-1.4 no font dictionaries here`,
			primary: "Times-Roman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ScanFonts([]byte(tt.pdf))
			assert.Equal(t, tt.primary, info.Primary)
			assert.Equal(t, tt.observed, info.Observed)
			assert.Equal(t, float64(12), info.Size)
		})
	}
}

func TestScanFontsObservedCap(t *testing.T) {
	pdf := `/BaseFont /F1 /BaseFont /F2 /BaseFont /F3 /BaseFont /F4 /BaseFont /F5 /BaseFont /F6 /BaseFont /F1`
	info := ScanFonts([]byte(pdf))
	assert.Len(t, info.Observed, 5)
}
