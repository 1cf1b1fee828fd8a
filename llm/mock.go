package llm

import (
	"context"
	"sync"

	"github.com/formvn/formbot/forms"
)

// MockCapability is a test double with canned results. A non-nil Err makes
// every call fail, which drives the chain onto its fallback.
type MockCapability struct {
	Err            error
	Fields         []forms.FieldDescriptor
	Title          string
	Question       string
	Classification Classification
	Compound       map[string]string
	Preview        string

	mu    sync.Mutex
	Calls []string
}

var _ Capability = (*MockCapability)(nil)

func (m *MockCapability) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
}

// CallLog returns a copy of the recorded call names.
func (m *MockCapability) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockCapability) ExtractFields(ctx context.Context, text string) ([]forms.FieldDescriptor, error) {
	m.record("extract_fields")
	return m.Fields, m.Err
}

func (m *MockCapability) SynthesizeTitle(ctx context.Context, text string) (string, error) {
	m.record("synthesize_title")
	return m.Title, m.Err
}

func (m *MockCapability) GenerateQuestion(ctx context.Context, field *forms.FieldDescriptor) (string, error) {
	m.record("generate_question")
	return m.Question, m.Err
}

func (m *MockCapability) ValidateAnswer(ctx context.Context, field *forms.FieldDescriptor, answer string) (Classification, error) {
	m.record("validate_answer")
	return m.Classification, m.Err
}

func (m *MockCapability) ParseCompound(ctx context.Context, field *forms.FieldDescriptor, answer string) (map[string]string, error) {
	m.record("parse_compound")
	return m.Compound, m.Err
}

func (m *MockCapability) RenderPreview(ctx context.Context, pairs []PreviewPair) (string, error) {
	m.record("render_preview")
	return m.Preview, m.Err
}
