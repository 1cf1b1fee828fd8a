package common

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HasVietnameseDiacritics reports whether the string contains characters from
// the Latin Extended ranges used by Vietnamese (U+00C0 through U+1EF9).
func HasVietnameseDiacritics(s string) bool {
	for _, r := range s {
		if r >= 0x00C0 && r <= 0x1EF9 {
			return true
		}
	}
	return false
}

// StripDiacritics removes combining marks from a string and maps the
// Vietnamese đ/Đ to their ASCII counterparts. "Họ và tên" becomes "Ho va ten".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "đ", "d")
	out = strings.ReplaceAll(out, "Đ", "D")
	return out
}

// Slugify derives a stable ASCII identifier from a label. Diacritics are
// stripped, the result is lowercased, and every run of non-alphanumeric
// characters collapses to a single underscore. "Họ và tên:" -> "ho_va_ten".
func Slugify(s string) string {
	s = strings.ToLower(StripDiacritics(s))
	var b strings.Builder
	lastUnderscore := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// Similarity returns a case- and diacritics-folded similarity ratio in
// [0, 1] between two labels, based on edit distance over the longer string.
func Similarity(a, b string) float64 {
	a = strings.ToLower(StripDiacritics(strings.TrimSpace(a)))
	b = strings.ToLower(StripDiacritics(strings.TrimSpace(b)))
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// CollapseWhitespace trims the string and folds internal whitespace runs to
// single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
