package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
	"github.com/formvn/formbot/forms"
)

// AnthropicClient implements Capability against the Anthropic Messages API.
// Every call runs under the configured timeout with retries disabled; the
// surrounding Chain handles outages.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *logrus.Entry
}

var _ Capability = (*AnthropicClient)(nil)

// NewAnthropicClient creates a model client from the LLM configuration.
func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(0),
		),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    common.ServiceLogger("llm"),
	}
}

func (c *AnthropicClient) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}

const extractFieldsSystem = `You read the OCR text of a Vietnamese administrative form and list its fillable fields. Respond with a JSON array only, no prose. Each element: {"id": snake_case_ascii, "label": original Vietnamese label, "type": one of text|email|tel|date|number|textarea|address, "required": bool}.`

// ExtractFields asks the model for the form's field list.
func (c *AnthropicClient) ExtractFields(ctx context.Context, text string) ([]forms.FieldDescriptor, error) {
	out, err := c.complete(ctx, extractFieldsSystem, text)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		ID       string `json:"id"`
		Label    string `json:"label"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &raw); err != nil {
		return nil, fmt.Errorf("malformed field list: %w", err)
	}

	var fields []forms.FieldDescriptor
	for _, r := range raw {
		if r.Label == "" {
			continue
		}
		id := r.ID
		if id == "" {
			id = common.Slugify(r.Label)
		}
		fields = append(fields, forms.FieldDescriptor{
			ID:       id,
			Label:    r.Label,
			Type:     normalizeFieldType(r.Type),
			Required: r.Required,
			Page:     1,
		})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("field list is empty")
	}
	return fields, nil
}

const synthesizeTitleSystem = `You are given the OCR text of a Vietnamese administrative form. Respond with only its title as a short Vietnamese noun phrase, no quotes, no explanations.`

// SynthesizeTitle asks the model for a short form title.
func (c *AnthropicClient) SynthesizeTitle(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, synthesizeTitleSystem, text)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(strings.Trim(out, `"`))
	if title == "" {
		return "", fmt.Errorf("empty title")
	}
	return TruncateTitle(title), nil
}

const generateQuestionSystem = `You phrase one short, polite Vietnamese question asking the user for a form field. Respond with the question only.`

// GenerateQuestion asks the model to phrase a question for the field.
func (c *AnthropicClient) GenerateQuestion(ctx context.Context, field *forms.FieldDescriptor) (string, error) {
	desc := fmt.Sprintf("Field label: %q, type: %s", field.Label, field.Type)
	if field.IsCompound() {
		var prompts []string
		for _, sub := range field.Subfields {
			prompts = append(prompts, sub.Prompt)
		}
		desc += ", parts: " + strings.Join(prompts, ", ")
	}
	out, err := c.complete(ctx, generateQuestionSystem, desc)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty question")
	}
	return out, nil
}

const validateAnswerSystem = `You judge whether an answer plausibly fills a Vietnamese form field. Respond with JSON only: {"verdict": "valid"|"needs-confirmation"|"invalid", "message": short Vietnamese hint when not valid}.`

// ValidateAnswer asks the model to judge an answer that already passed the
// rule validators.
func (c *AnthropicClient) ValidateAnswer(ctx context.Context, field *forms.FieldDescriptor, answer string) (Classification, error) {
	prompt := fmt.Sprintf("Field: %q (type %s)\nAnswer: %q", field.Label, field.Type, answer)
	out, err := c.complete(ctx, validateAnswerSystem, prompt)
	if err != nil {
		return Classification{}, err
	}

	var cls Classification
	if err := json.Unmarshal([]byte(extractJSON(out)), &cls); err != nil {
		return Classification{}, fmt.Errorf("malformed classification: %w", err)
	}
	switch cls.Verdict {
	case VerdictValid, VerdictNeedsConfirmation, VerdictInvalid:
		return cls, nil
	default:
		return Classification{}, fmt.Errorf("unknown verdict %q", cls.Verdict)
	}
}

const parseCompoundSystem = `You split a free-text Vietnamese answer into the named parts of a compound form field. Respond with a JSON object only, mapping part id to the extracted value. Omit parts that are not present in the answer.`

// ParseCompound asks the model to split the answer into subfield values.
func (c *AnthropicClient) ParseCompound(ctx context.Context, field *forms.FieldDescriptor, answer string) (map[string]string, error) {
	var parts []string
	for _, sub := range field.Subfields {
		parts = append(parts, fmt.Sprintf("%s (%s)", sub.ID, sub.Prompt))
	}
	prompt := fmt.Sprintf("Parts: %s\nAnswer: %q", strings.Join(parts, ", "), answer)
	out, err := c.complete(ctx, parseCompoundSystem, prompt)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(extractJSON(out)), &raw); err != nil {
		return nil, fmt.Errorf("malformed compound parse: %w", err)
	}

	// keep only declared subfield ids
	values := make(map[string]string)
	for _, sub := range field.Subfields {
		if v := strings.TrimSpace(raw[sub.ID]); v != "" {
			values[sub.ID] = v
		}
	}
	return values, nil
}

const renderPreviewSystem = `You write a short, friendly Vietnamese summary of a filled form for the user to review. Keep every value verbatim. Respond with the summary only.`

// RenderPreview asks the model for a prose review of the answers.
func (c *AnthropicClient) RenderPreview(ctx context.Context, pairs []PreviewPair) (string, error) {
	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%s: %s\n", p.Label, p.Value)
	}
	out, err := c.complete(ctx, renderPreviewSystem, sb.String())
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty preview")
	}
	return out, nil
}

func normalizeFieldType(t string) string {
	switch t {
	case forms.TypeText, forms.TypeEmail, forms.TypeTel, forms.TypeDate,
		forms.TypeNumber, forms.TypeTextarea, forms.TypeAddress:
		return t
	default:
		return forms.TypeText
	}
}

// extractJSON cuts the JSON payload out of a model response that may be
// wrapped in a code fence or prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}
