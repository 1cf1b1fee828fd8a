package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
)

// SchemaSource loads form schemas for sessions.
type SchemaSource interface {
	Get(ctx context.Context, formID string) (*forms.FormSchema, error)
}

// SessionStore persists session state between turns.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

// Progress reports how far the session has advanced through the form.
type Progress struct {
	CurrentIndex int     `json:"current_index"`
	TotalFields  int     `json:"total_fields"`
	Percent      float64 `json:"progress"`
}

// Validation reports the outcome of judging the last answer.
type Validation struct {
	IsValid           bool   `json:"isValid"`
	Message           string `json:"message,omitempty"`
	NeedsConfirmation bool   `json:"needsConfirmation"`
}

// TurnResult is the engine's response to one user input.
type TurnResult struct {
	SessionID   string            `json:"session_id"`
	Stage       string            `json:"stage"`
	Question    string            `json:"question,omitempty"`
	Message     string            `json:"message,omitempty"`
	Validation  *Validation       `json:"validation,omitempty"`
	Progress    Progress          `json:"progress"`
	Preview     []llm.PreviewPair `json:"preview,omitempty"`
	PreviewText string            `json:"preview_text,omitempty"`
}

// Engine drives the ask/confirm/review state machine. All mutations go
// through the session store; one turn is one read-modify-write.
type Engine struct {
	sessions   SessionStore
	schemas    SchemaSource
	capability llm.Capability
	questions  *QuestionCache
	logger     *logrus.Entry
}

// NewEngine wires the state machine.
func NewEngine(sessions SessionStore, schemas SchemaSource, capability llm.Capability) *Engine {
	return &Engine{
		sessions:   sessions,
		schemas:    schemas,
		capability: capability,
		questions:  NewQuestionCache(capability),
		logger:     common.ServiceLogger("session"),
	}
}

// Start creates a session for the form and renders the first question.
func (e *Engine) Start(ctx context.Context, formID string, clientInfo map[string]string) (*TurnResult, error) {
	schema, err := e.schemas.Get(ctx, formID)
	if err != nil {
		return nil, err
	}

	sess := NewSession(formID, clientInfo)
	settle(sess, schema)
	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"session": sess.ID,
		"form_id": formID,
	}).Info("session started")
	return e.result(ctx, sess, schema, "", nil), nil
}

// Turn applies one user input to the session.
func (e *Engine) Turn(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	schema, err := e.schemas.Get(ctx, sess.FormID)
	if err != nil {
		return nil, err
	}

	// the schema may have shrunk since the last turn if the worker
	// reprocessed the form, so settle before touching the current field
	settle(sess, schema)
	message, validation := e.apply(ctx, sess, schema, strings.TrimSpace(input))
	settle(sess, schema)
	sess.Touch()
	if err := e.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return e.result(ctx, sess, schema, message, validation), nil
}

// Answers returns the committed answers of a session together with its
// schema, for the overlay renderer.
func (e *Engine) Answers(ctx context.Context, sessionID string) (*forms.FormSchema, map[string]forms.AnswerValue, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	schema, err := e.schemas.Get(ctx, sess.FormID)
	if err != nil {
		return nil, nil, err
	}
	return schema, sess.Answers, nil
}

// Delete discards a session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// apply runs one state-machine transition and returns the user-facing
// message and validation outcome, if any.
func (e *Engine) apply(ctx context.Context, sess *Session, schema *forms.FormSchema, input string) (string, *Validation) {
	switch sess.Stage {
	case StageConfirm:
		return e.applyConfirm(sess, input)
	case StageAsk:
		return e.applyAsk(ctx, sess, schema, input)
	default: // review is terminal
		return "", nil
	}
}

func (e *Engine) applyConfirm(sess *Session, input string) (string, *Validation) {
	switch parseYesNo(input) {
	case "yes":
		sess.Commit(sess.Pending.FieldID, sess.Pending.Value)
		sess.Pending = nil
		sess.Stage = StageAsk
		return "", &Validation{IsValid: true}
	case "no":
		sess.Pending = nil
		sess.Stage = StageAsk
		return "", nil
	default:
		return "Vui lòng trả lời có hoặc không.", nil
	}
}

func (e *Engine) applyAsk(ctx context.Context, sess *Session, schema *forms.FormSchema, input string) (string, *Validation) {
	field := &schema.Fields[sess.FieldIdx]

	if isSkipInput(input) {
		if field.Required {
			msg := "Trường này là bắt buộc, bạn không thể bỏ qua."
			return msg, &Validation{IsValid: false, Message: msg}
		}
		sess.Skip(field.ID)
		return "", nil
	}

	if field.IsCompound() {
		return e.applyCompound(ctx, sess, field, input)
	}

	value := field.Normalize(input)
	if verdict := field.Validate(value); !verdict.OK {
		return verdict.Message, &Validation{IsValid: false, Message: verdict.Message}
	}

	cls, err := e.capability.ValidateAnswer(ctx, field, value)
	if err != nil {
		// degrade to rule-validated acceptance
		cls = llm.Classification{Verdict: llm.VerdictValid}
	}
	switch cls.Verdict {
	case llm.VerdictInvalid:
		msg := cls.Message
		if msg == "" {
			msg = "Giá trị không hợp lệ, vui lòng nhập lại."
		}
		return msg, &Validation{IsValid: false, Message: msg}
	case llm.VerdictNeedsConfirmation:
		sess.Pending = &PendingValue{FieldID: field.ID, Value: forms.AnswerValue{Scalar: value}}
		sess.Stage = StageConfirm
		return cls.Message, &Validation{IsValid: true, Message: cls.Message, NeedsConfirmation: true}
	default:
		sess.Commit(field.ID, forms.AnswerValue{Scalar: value})
		return "", &Validation{IsValid: true}
	}
}

func (e *Engine) applyCompound(ctx context.Context, sess *Session, field *forms.FieldDescriptor, input string) (string, *Validation) {
	parsed, err := e.capability.ParseCompound(ctx, field, input)
	if err != nil {
		parsed = nil
	}

	var missing []string
	for _, sub := range field.Subfields {
		if strings.TrimSpace(parsed[sub.ID]) == "" {
			missing = append(missing, sub.Prompt)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("Bạn chưa cung cấp: %s. Vui lòng cung cấp đầy đủ thông tin.",
			strings.Join(missing, ", "))
		return msg, &Validation{IsValid: false, Message: msg}
	}

	sess.Commit(field.ID, forms.AnswerValue{Subfields: parsed})
	return "", &Validation{IsValid: true}
}

// settle moves a session past the last field into review.
func settle(sess *Session, schema *forms.FormSchema) {
	if sess.Stage == StageAsk && sess.FieldIdx >= len(schema.Fields) {
		sess.Stage = StageReview
	}
}

// result renders the response for the session's current stage.
func (e *Engine) result(ctx context.Context, sess *Session, schema *forms.FormSchema, message string, validation *Validation) *TurnResult {
	result := &TurnResult{
		SessionID:  sess.ID,
		Stage:      sess.Stage,
		Message:    message,
		Validation: validation,
		Progress:   progressOf(sess, schema),
	}

	switch sess.Stage {
	case StageAsk:
		result.Question = e.questions.Question(schema, sess.FieldIdx)
	case StageConfirm:
		field := schema.FieldByID(sess.Pending.FieldID)
		result.Question = confirmQuestion(field, sess.Pending.Value)
	case StageReview:
		result.Preview, result.PreviewText = e.preview(ctx, sess, schema)
	}
	return result
}

func progressOf(sess *Session, schema *forms.FormSchema) Progress {
	total := len(schema.Fields)
	idx := sess.FieldIdx
	if idx > total {
		idx = total
	}
	p := Progress{CurrentIndex: idx, TotalFields: total}
	if total > 0 {
		p.Percent = float64(idx) / float64(total) * 100
	} else {
		p.Percent = 100
	}
	return p
}

func confirmQuestion(field *forms.FieldDescriptor, value forms.AnswerValue) string {
	label := "giá trị này"
	if field != nil {
		label = strings.TrimRight(strings.TrimSpace(field.Label), ":")
	}
	return fmt.Sprintf("Bạn xác nhận %s là %q? (có/không)", label, value.Flatten(field))
}

func isSkipInput(input string) bool {
	switch strings.ToLower(input) {
	case "", "skip", "bỏ qua", "bo qua":
		return true
	}
	return false
}

func parseYesNo(input string) string {
	switch strings.ToLower(input) {
	case "có", "co", "yes", "y", "ok", "đúng", "dung", "đồng ý", "dong y":
		return "yes"
	case "không", "khong", "ko", "no", "n", "sai":
		return "no"
	default:
		return ""
	}
}
