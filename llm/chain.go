package llm

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
)

// Chain tries the primary model first and silently degrades to the
// rule-based fallback on any failure. With a nil primary the chain is a
// pure fallback, which is how the service runs without an API key.
type Chain struct {
	primary  Capability
	fallback Capability
	logger   *logrus.Entry
}

var _ Capability = (*Chain)(nil)

// NewChain wires the degradation chain around an optional primary model.
func NewChain(primary Capability) *Chain {
	return &Chain{
		primary:  primary,
		fallback: NewFallback(),
		logger:   common.ServiceLogger("llm"),
	}
}

func (c *Chain) degraded(op string, err error) {
	c.logger.WithError(err).WithField("operation", op).Warn("model call failed, using fallback")
}

// ExtractFields tries the model, then the deterministic extractor.
func (c *Chain) ExtractFields(ctx context.Context, text string) ([]forms.FieldDescriptor, error) {
	if c.primary != nil {
		fields, err := c.primary.ExtractFields(ctx, text)
		if err == nil {
			return fields, nil
		}
		c.degraded("extract_fields", err)
	}
	return c.fallback.ExtractFields(ctx, text)
}

// SynthesizeTitle tries the model, then the first-line heuristic.
func (c *Chain) SynthesizeTitle(ctx context.Context, text string) (string, error) {
	if c.primary != nil {
		title, err := c.primary.SynthesizeTitle(ctx, text)
		if err == nil {
			return title, nil
		}
		c.degraded("synthesize_title", err)
	}
	return c.fallback.SynthesizeTitle(ctx, text)
}

// GenerateQuestion tries the model, then the question templates.
func (c *Chain) GenerateQuestion(ctx context.Context, field *forms.FieldDescriptor) (string, error) {
	if c.primary != nil {
		question, err := c.primary.GenerateQuestion(ctx, field)
		if err == nil {
			return question, nil
		}
		c.degraded("generate_question", err)
	}
	return c.fallback.GenerateQuestion(ctx, field)
}

// ValidateAnswer tries the model, then accepts the answer.
func (c *Chain) ValidateAnswer(ctx context.Context, field *forms.FieldDescriptor, answer string) (Classification, error) {
	if c.primary != nil {
		cls, err := c.primary.ValidateAnswer(ctx, field, answer)
		if err == nil {
			return cls, nil
		}
		c.degraded("validate_answer", err)
	}
	return c.fallback.ValidateAnswer(ctx, field, answer)
}

// ParseCompound tries the model, then the regex splitter.
func (c *Chain) ParseCompound(ctx context.Context, field *forms.FieldDescriptor, answer string) (map[string]string, error) {
	if c.primary != nil {
		values, err := c.primary.ParseCompound(ctx, field, answer)
		if err == nil {
			return values, nil
		}
		c.degraded("parse_compound", err)
	}
	return c.fallback.ParseCompound(ctx, field, answer)
}

// RenderPreview tries the model, then the label/value listing.
func (c *Chain) RenderPreview(ctx context.Context, pairs []PreviewPair) (string, error) {
	if c.primary != nil {
		preview, err := c.primary.RenderPreview(ctx, pairs)
		if err == nil {
			return preview, nil
		}
		c.degraded("render_preview", err)
	}
	return c.fallback.RenderPreview(ctx, pairs)
}
