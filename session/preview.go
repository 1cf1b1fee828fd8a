package session

import (
	"context"
	"strings"

	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
)

// preview assembles the review listing in field order and asks the
// capability for a prose rendition. The chain's fallback is the plain
// "label: value" join, so PreviewText is always populated when there are
// answers.
func (e *Engine) preview(ctx context.Context, sess *Session, schema *forms.FormSchema) ([]llm.PreviewPair, string) {
	var pairs []llm.PreviewPair
	for i := range schema.Fields {
		field := &schema.Fields[i]
		answer, ok := sess.Answers[field.ID]
		if !ok {
			continue
		}
		value := answer.Flatten(field)
		if value == "" {
			continue
		}
		pairs = append(pairs, llm.PreviewPair{
			Label: strings.TrimRight(strings.TrimSpace(field.Label), ":"),
			Value: value,
		})
	}
	if len(pairs) == 0 {
		return nil, ""
	}

	text, err := e.capability.RenderPreview(ctx, pairs)
	if err != nil {
		var lines []string
		for _, p := range pairs {
			lines = append(lines, p.Label+": "+p.Value)
		}
		text = strings.Join(lines, "\n")
	}
	return pairs, text
}
