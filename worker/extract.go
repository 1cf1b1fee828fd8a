package worker

import (
	"regexp"
	"strings"

	"github.com/formvn/formbot/forms"
)

// extractorPattern recognizes one Vietnamese form idiom in OCR text.
type extractorPattern struct {
	ID       string
	Label    string
	Type     string
	Required bool
	Pattern  *regexp.Regexp
}

var extractorPatterns = []extractorPattern{
	{"ho_ten", "Họ và tên", forms.TypeText, true,
		regexp.MustCompile(`(?i)(họ\s*(và|va)?\s*tên|ho\s*ten|full\s*name)`)},
	{"ngay_sinh", "Ngày sinh", forms.TypeDate, true,
		regexp.MustCompile(`(?i)(ngày\s*sinh|sinh\s*ngày|năm\s*sinh|date\s*of\s*birth)`)},
	{"gioi_tinh", "Giới tính", forms.TypeText, false,
		regexp.MustCompile(`(?i)(giới\s*tính|nam/nữ)`)},
	{"so_dien_thoai", "Số điện thoại", forms.TypeTel, true,
		regexp.MustCompile(`(?i)(số\s*điện\s*thoại|điện\s*thoại|sđt|phone)`)},
	{"email", "Email", forms.TypeEmail, false,
		regexp.MustCompile(`(?i)(e-?mail|thư\s*điện\s*tử)`)},
	{"cccd", "CCCD/CMND", forms.TypeCompound, true,
		regexp.MustCompile(`(?i)(cccd|cmnd|căn\s*cước|chứng\s*minh\s*(nhân\s*dân|thư)?)`)},
	{"ho_chieu", "Hộ chiếu", forms.TypeCompound, false,
		regexp.MustCompile(`(?i)(hộ\s*chiếu|passport)`)},
	{"dia_chi", "Địa chỉ", forms.TypeCompound, true,
		regexp.MustCompile(`(?i)(địa\s*chỉ|nơi\s*(ở|cư\s*trú)|thường\s*trú|tạm\s*trú)`)},
	{"chuc_vu", "Chức vụ", forms.TypeText, false,
		regexp.MustCompile(`(?i)(chức\s*vụ|chức\s*danh)`)},
	{"don_vi", "Đơn vị", forms.TypeText, false,
		regexp.MustCompile(`(?i)(đơn\s*vị|phòng\s*ban|bộ\s*phận)`)},
	{"noi_dung", "Nội dung", forms.TypeTextarea, false,
		regexp.MustCompile(`(?i)(nội\s*dung|lý\s*do|trình\s*bày)`)},
}

// ExtractFieldsByKeywords is the deterministic fallback extractor: it scans
// the OCR text line by line for known Vietnamese form idioms and returns the
// matched fields in encounter order. National ID, passport and address are
// emitted as compound triples.
func ExtractFieldsByKeywords(text string) []forms.FieldDescriptor {
	var fields []forms.FieldDescriptor
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !looksLikeLabelLine(line) {
			continue
		}
		for _, p := range extractorPatterns {
			if seen[p.ID] || !p.Pattern.MatchString(line) {
				continue
			}
			seen[p.ID] = true
			fields = append(fields, buildField(p))
		}
	}
	return fields
}

// looksLikeLabelLine filters out headings and prose: a fillable label line
// carries a colon, a dotted rule or an underscore rule. This keeps a form
// title like "ĐƠN ĐĂNG KÝ TẠM TRÚ" from being read as an address field.
func looksLikeLabelLine(line string) bool {
	if line == "" {
		return false
	}
	return strings.ContainsAny(line, ":…") ||
		strings.Contains(line, "..") ||
		strings.Contains(line, "__")
}

func buildField(p extractorPattern) forms.FieldDescriptor {
	field := forms.FieldDescriptor{
		ID:       p.ID,
		Label:    p.Label,
		Type:     p.Type,
		Required: p.Required,
		Page:     1,
	}
	if p.Type == forms.TypeCompound {
		field.Subfields = compoundSubfields(p.ID)
		return field
	}
	field.Normalizers, field.Validators = forms.DefaultRules(p.Type)
	return field
}

// compoundSubfields returns the subfield triple for a compound field id.
func compoundSubfields(id string) []forms.Subfield {
	switch id {
	case "cccd":
		return []forms.Subfield{
			{ID: "so", Label: "Số thẻ", Type: forms.TypeNumber, Prompt: "số thẻ"},
			{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate, Prompt: "ngày cấp"},
			{ID: "cap_tai", Label: "Nơi cấp", Type: forms.TypeText, Prompt: "nơi cấp"},
		}
	case "ho_chieu":
		return []forms.Subfield{
			{ID: "so", Label: "Số hộ chiếu", Type: forms.TypeNumber, Prompt: "số hộ chiếu"},
			{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate, Prompt: "ngày cấp"},
			{ID: "cap_tai", Label: "Nơi cấp", Type: forms.TypeText, Prompt: "nơi cấp"},
		}
	case "dia_chi":
		return []forms.Subfield{
			{ID: "so_nha", Label: "Số nhà, đường", Type: forms.TypeText, Prompt: "số nhà và tên đường"},
			{ID: "phuong_xa", Label: "Phường/Xã", Type: forms.TypeText, Prompt: "phường hoặc xã"},
			{ID: "tinh_thanh", Label: "Tỉnh/Thành phố", Type: forms.TypeText, Prompt: "tỉnh hoặc thành phố"},
		}
	default:
		return nil
	}
}
