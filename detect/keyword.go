package detect

import (
	"regexp"
)

// Keyword-anchored detection parameters: the search window for an underline
// below a matched label, and the fallback region to the right of it.
const (
	keywordSameColumnDX = 200
	keywordBelowMaxDY   = 80
	keywordFallbackDX   = 10
	keywordFallbackW    = 200
)

// keywordPattern ties a semantic field to the Vietnamese/English phrases
// that announce it on a form.
type keywordPattern struct {
	FieldID string
	Type    string
	Pattern *regexp.Regexp
}

var keywordPatterns = []keywordPattern{
	{"ho_ten", "text", regexp.MustCompile(`(?i)(họ\s*(và|va)?\s*tên|ho\s*ten|full\s*name|name)`)},
	{"ngay_sinh", "date", regexp.MustCompile(`(?i)(ngày\s*sinh|sinh\s*ngày|date\s*of\s*birth|dob|năm\s*sinh)`)},
	{"so_dien_thoai", "tel", regexp.MustCompile(`(?i)(số\s*điện\s*thoại|điện\s*thoại|sđt|phone|tel)`)},
	{"email", "email", regexp.MustCompile(`(?i)(e-?mail|thư\s*điện\s*tử)`)},
	{"dia_chi", "address", regexp.MustCompile(`(?i)(địa\s*chỉ|nơi\s*(ở|cư\s*trú)|thường\s*trú|address)`)},
	{"so_cmnd", "text", regexp.MustCompile(`(?i)(cmnd|cccd|căn\s*cước|chứng\s*minh|id\s*(number|card)|hộ\s*chiếu|passport)`)},
	{"chuc_vu", "text", regexp.MustCompile(`(?i)(chức\s*vụ|position|title)`)},
	{"don_vi", "text", regexp.MustCompile(`(?i)(đơn\s*vị|phòng\s*ban|department|bộ\s*phận)`)},
	{"trinh_do", "text", regexp.MustCompile(`(?i)(trình\s*độ|học\s*vấn|education|bằng\s*cấp)`)},
	{"cong_ty", "text", regexp.MustCompile(`(?i)(công\s*ty|cơ\s*quan|company|tổ\s*chức)`)},
}

// KeywordMatch is a label phrase matched by a semantic pattern, with its
// resolved input position.
type KeywordMatch struct {
	FieldID string
	Type    string
	Label   GroupedLabel
	Input   Segment
}

// DetectByKeywords runs the keyword-anchored fallback strategy: for each
// grouped label matching a semantic pattern, the input slot is the nearest
// underline below in the same column, or a fixed region to the right of
// the label when no underline is found.
func DetectByKeywords(labels []GroupedLabel, underlines []Segment) []KeywordMatch {
	var matches []KeywordMatch
	seen := make(map[string]bool)

	for _, label := range labels {
		for _, kp := range keywordPatterns {
			if seen[kp.FieldID] || !kp.Pattern.MatchString(label.Text) {
				continue
			}
			input, ok := underlineBelow(label, underlines)
			if !ok {
				input = Segment{
					X: label.X + label.W + keywordFallbackDX,
					Y: label.Y,
					W: keywordFallbackW,
					H: label.H,
				}
			}
			matches = append(matches, KeywordMatch{
				FieldID: kp.FieldID,
				Type:    kp.Type,
				Label:   label,
				Input:   input,
			})
			seen[kp.FieldID] = true
			break
		}
	}
	return matches
}

// underlineBelow finds the nearest underline under the label within the
// same column and the allowed vertical gap.
func underlineBelow(label GroupedLabel, underlines []Segment) (Segment, bool) {
	var best Segment
	bestGap := keywordBelowMaxDY + 1
	found := false
	for _, u := range underlines {
		if abs(u.X-label.X) >= keywordSameColumnDX {
			continue
		}
		gap := u.Y - (label.Y + label.H)
		if gap < 0 || gap > keywordBelowMaxDY {
			continue
		}
		if gap < bestGap {
			best = u
			bestGap = gap
			found = true
		}
	}
	return best, found
}
