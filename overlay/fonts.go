// Package overlay renders answers onto the original PDF: imported original
// pages with text drawn at the detector's positions, or an appended summary
// page when no positions are known. On any failure the original bytes are
// returned unchanged.
package overlay

import (
	"os"
	"strings"

	"github.com/formvn/formbot/forms"
)

// Unicode-capable fonts probed at runtime, in preference order per family.
var (
	serifFontPaths = []string{
		"/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
		"/usr/share/fonts/liberation/LiberationSerif-Regular.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
		"/Library/Fonts/Times New Roman.ttf",
	}
	sansFontPaths = []string{
		"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
		"/usr/share/fonts/liberation/LiberationSans-Regular.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/Library/Fonts/Arial.ttf",
	}
)

// prefersSerif reports whether the detected primary font calls for a serif
// overlay face.
func prefersSerif(info forms.FontInfo) bool {
	lower := strings.ToLower(info.Primary)
	return strings.Contains(lower, "times") ||
		strings.Contains(lower, "liberation serif") ||
		strings.Contains(lower, "liberationserif") ||
		strings.Contains(lower, "serif")
}

// resolveFontPath picks the first present font file, trying the family
// matching the detected primary font first.
func resolveFontPath(info forms.FontInfo) (string, bool) {
	first, second := sansFontPaths, serifFontPaths
	if prefersSerif(info) {
		first, second = serifFontPaths, sansFontPaths
	}
	for _, paths := range [][]string{first, second} {
		for _, path := range paths {
			if _, err := os.Stat(path); err == nil {
				return path, true
			}
		}
	}
	return "", false
}
