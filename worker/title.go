package worker

import (
	"context"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/llm"
)

// DeriveTitle picks a human title for the form. Vietnamese text goes to the
// model capability (which itself degrades to the heuristic); text without
// diacritics is handled by the first-line heuristic directly.
func DeriveTitle(ctx context.Context, capability llm.Capability, text string) string {
	if common.HasVietnameseDiacritics(text) {
		if title, err := capability.SynthesizeTitle(ctx, text); err == nil && title != "" {
			return title
		}
	}
	return llm.HeuristicTitle(text)
}
