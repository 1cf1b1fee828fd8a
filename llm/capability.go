// Package llm provides the language-model surface of the pipeline: field
// extraction, title synthesis, question phrasing, answer validation, compound
// parsing and preview rendering. The Anthropic client is always paired with a
// deterministic rule-based fallback, so callers never see a model outage.
package llm

import (
	"context"

	"github.com/formvn/formbot/forms"
)

// Answer classification verdicts.
const (
	VerdictValid             = "valid"
	VerdictNeedsConfirmation = "needs-confirmation"
	VerdictInvalid           = "invalid"
)

// Classification is the result of judging one answer against its field.
type Classification struct {
	Verdict string `json:"verdict"`
	Message string `json:"message,omitempty"`
}

// PreviewPair is one label/value row of a filled-form preview.
type PreviewPair struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Capability is the model surface used by the worker and the session engine.
// Implementations must be safe for concurrent use.
type Capability interface {
	// ExtractFields derives field descriptors from the OCR text of a form.
	ExtractFields(ctx context.Context, text string) ([]forms.FieldDescriptor, error)

	// SynthesizeTitle produces a short Vietnamese title for the form text.
	SynthesizeTitle(ctx context.Context, text string) (string, error)

	// GenerateQuestion phrases a friendly question asking for the field.
	GenerateQuestion(ctx context.Context, field *forms.FieldDescriptor) (string, error)

	// ValidateAnswer judges an answer that already passed the rule validators.
	ValidateAnswer(ctx context.Context, field *forms.FieldDescriptor, answer string) (Classification, error)

	// ParseCompound splits a free-text answer into the field's subfield values.
	ParseCompound(ctx context.Context, field *forms.FieldDescriptor, answer string) (map[string]string, error)

	// RenderPreview writes a short prose summary of the answered fields.
	RenderPreview(ctx context.Context, pairs []PreviewPair) (string, error)
}
