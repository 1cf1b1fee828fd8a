package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/formvn/formbot/forms"
)

// Fallback is the deterministic rule-based implementation used whenever the
// model is unreachable or misbehaves. Every method succeeds.
type Fallback struct{}

// NewFallback creates the rule-based capability.
func NewFallback() *Fallback { return &Fallback{} }

var _ Capability = (*Fallback)(nil)

// ExtractFields returns no fields; the worker's keyword extractor supplies
// the deterministic field set on its own.
func (f *Fallback) ExtractFields(ctx context.Context, text string) ([]forms.FieldDescriptor, error) {
	return nil, nil
}

// SynthesizeTitle applies the first-line heuristic.
func (f *Fallback) SynthesizeTitle(ctx context.Context, text string) (string, error) {
	return HeuristicTitle(text), nil
}

// GenerateQuestion phrases a template question for the field.
func (f *Fallback) GenerateQuestion(ctx context.Context, field *forms.FieldDescriptor) (string, error) {
	return TemplateQuestion(field), nil
}

// ValidateAnswer accepts every answer that passed the rule validators.
func (f *Fallback) ValidateAnswer(ctx context.Context, field *forms.FieldDescriptor, answer string) (Classification, error) {
	return Classification{Verdict: VerdictValid}, nil
}

// ParseCompound splits the answer into subfield values with regex rules.
func (f *Fallback) ParseCompound(ctx context.Context, field *forms.FieldDescriptor, answer string) (map[string]string, error) {
	return ruleParseCompound(field, answer), nil
}

// RenderPreview lists the answered fields one per line.
func (f *Fallback) RenderPreview(ctx context.Context, pairs []PreviewPair) (string, error) {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, p.Label+": "+p.Value)
	}
	return strings.Join(lines, "\n"), nil
}

// maxTitleLength caps synthesized and heuristic titles.
const maxTitleLength = 100

var (
	skipLineRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^CỘNG\s*H[ÒO]A`),
		regexp.MustCompile(`(?i)^Độc\s*lập`),
		regexp.MustCompile(`(?i)^(Số|Mẫu\s*số)\s*[:.]?\s*[\w/-]*$`),
		regexp.MustCompile(`\d{6,}`),
	}
	titlePrefixRe = regexp.MustCompile(`(?i)^(biểu\s*mẫu|mẫu\s*đơn|mẫu|form)\s*[:.]?\s*`)
)

// HeuristicTitle derives a title from the first meaningful line of the form
// text: national mottos, decree numbers and digit runs are skipped, and a
// leading "mẫu"/"biểu mẫu" marker is stripped.
func HeuristicTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		skip := false
		for _, re := range skipLineRes {
			if re.MatchString(line) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		return TruncateTitle(titlePrefixRe.ReplaceAllString(line, ""))
	}
	return ""
}

// TruncateTitle shortens a title to the display cap, marking the cut.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength-3]) + "..."
}

// TemplateQuestion is the deterministic question phrasing for a field.
func TemplateQuestion(field *forms.FieldDescriptor) string {
	label := strings.TrimRight(strings.TrimSpace(field.Label), ":")
	if field.IsCompound() {
		prompts := make([]string, 0, len(field.Subfields))
		for _, sub := range field.Subfields {
			prompts = append(prompts, sub.Prompt)
		}
		return "Vui lòng cung cấp " + label + " (" + strings.Join(prompts, ", ") + ")."
	}
	switch field.Type {
	case forms.TypeDate:
		return "Vui lòng cho biết " + label + " (định dạng dd/mm/yyyy)."
	case forms.TypeEmail:
		return "Vui lòng cho biết địa chỉ email của bạn."
	case forms.TypeTel:
		return "Vui lòng cho biết số điện thoại của bạn."
	default:
		return "Vui lòng cho biết " + label + "."
	}
}

var (
	compoundDateRe  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	compoundIDRe    = regexp.MustCompile(`\b\d{9,12}\b`)
	compoundPlaceRe = regexp.MustCompile(`(?i)(?:tại|nơi cấp(?:\s*là)?|do)\s*[:]?\s*(.+)$`)
)

// ruleParseCompound assigns answer fragments to subfields by their type: the
// first dd/mm/yyyy match to a date subfield, a 9-12 digit run to a number or
// id subfield, and the phrase after "tại"/"nơi cấp" to a place subfield.
// Subfields with no match are simply absent from the result.
func ruleParseCompound(field *forms.FieldDescriptor, answer string) map[string]string {
	values := make(map[string]string)
	dates := compoundDateRe.FindAllString(answer, -1)
	id := compoundIDRe.FindString(answer)

	var place string
	if m := compoundPlaceRe.FindStringSubmatch(answer); m != nil {
		place = strings.TrimRight(strings.TrimSpace(m[1]), ".")
		// cut a trailing "ngày dd/mm/yyyy" clause off the place capture
		place = compoundDateRe.ReplaceAllString(place, "")
		for {
			trimmed := strings.TrimSpace(place)
			trimmed = strings.TrimSuffix(trimmed, ",")
			trimmed = strings.TrimSuffix(trimmed, "ngày")
			trimmed = strings.TrimSuffix(trimmed, "vào")
			if trimmed == place {
				break
			}
			place = trimmed
		}
	}

	dateIdx := 0
	for _, sub := range field.Subfields {
		switch {
		case sub.Type == forms.TypeDate || strings.Contains(sub.ID, "ngay"):
			if dateIdx < len(dates) {
				values[sub.ID] = dates[dateIdx]
				dateIdx++
			}
		case sub.Type == forms.TypeNumber || strings.HasPrefix(sub.ID, "so") || strings.Contains(sub.ID, "_so"):
			if id != "" {
				values[sub.ID] = id
			}
		default:
			if place != "" {
				values[sub.ID] = place
			}
		}
	}
	return values
}
