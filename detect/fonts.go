package detect

import (
	"regexp"
	"strings"

	"github.com/formvn/formbot/forms"
)

// Font metadata defaults consumed by the overlay renderer.
const (
	defaultFontName  = "Times-Roman"
	defaultFontSize  = 12
	maxObservedFonts = 5
)

var baseFontRe = regexp.MustCompile(`/BaseFont\s*/([A-Za-z0-9+\-_.]+)`)

// ScanFonts extracts font names from the PDF's font dictionaries and picks
// a primary font hint. Serif families (Times, Liberation) are preferred
// over sans (Arial, Helvetica) because Vietnamese administrative forms are
// almost always set in a Times look-alike.
func ScanFonts(pdf []byte) forms.FontInfo {
	info := forms.FontInfo{Primary: defaultFontName, Size: defaultFontSize}

	seen := make(map[string]bool)
	for _, m := range baseFontRe.FindAllSubmatch(pdf, -1) {
		name := string(m[1])
		// subset prefixes look like ABCDEF+TimesNewRoman
		if i := strings.Index(name, "+"); i >= 0 && i == 6 {
			name = name[i+1:]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if len(info.Observed) < maxObservedFonts {
			info.Observed = append(info.Observed, name)
		}
	}

	if name, ok := pickFont(info.Observed, "times", "liberation serif", "liberationserif"); ok {
		info.Primary = name
	} else if name, ok := pickFont(info.Observed, "arial", "helvetica", "liberation sans", "liberationsans"); ok {
		info.Primary = name
	} else if len(info.Observed) > 0 {
		info.Primary = info.Observed[0]
	}
	return info
}

func pickFont(names []string, substrings ...string) (string, bool) {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return name, true
			}
		}
	}
	return "", false
}
