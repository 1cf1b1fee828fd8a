// Package session implements the per-user filling flow: the redis-backed
// session store, the ask/confirm/review state machine, question rendering
// with a per-form cache, and the review preview.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/formvn/formbot/forms"
)

// Session stages.
const (
	StageAsk     = "ask"
	StageConfirm = "confirm"
	StageReview  = "review"
)

// QuestionRecord is one rendered prompt. Source tells whether the phrasing
// came from the deterministic templates or was upgraded by the model.
type QuestionRecord struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// PendingValue is an answer held for user confirmation.
type PendingValue struct {
	FieldID string            `json:"field_id"`
	Value   forms.AnswerValue `json:"value"`
}

// Session is the full mutable state of one filling conversation. It is
// stored as a single JSON blob; every mutation is a read-modify-write with
// last-write-wins semantics.
type Session struct {
	ID           string                       `json:"id"`
	FormID       string                       `json:"form_id"`
	Answers      map[string]forms.AnswerValue `json:"answers"`
	FieldIdx     int                          `json:"field_idx"`
	Questions    map[string]QuestionRecord    `json:"questions"`
	Skipped      map[string]bool              `json:"skipped"`
	Pending      *PendingValue                `json:"pending,omitempty"`
	Stage        string                       `json:"stage"`
	CreatedAt    time.Time                    `json:"created_at"`
	LastActiveAt time.Time                    `json:"last_active_at"`
	AnswerCount  int                          `json:"answer_count"`
	ClientInfo   map[string]string            `json:"client_info,omitempty"`
}

// NewSession creates a fresh session at the first field of the form.
func NewSession(formID string, clientInfo map[string]string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		FormID:       formID,
		Answers:      make(map[string]forms.AnswerValue),
		Questions:    make(map[string]QuestionRecord),
		Skipped:      make(map[string]bool),
		Stage:        StageAsk,
		CreatedAt:    now,
		LastActiveAt: now,
		ClientInfo:   clientInfo,
	}
}

// Touch refreshes the activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now().UTC()
}

// Commit records an answer for the field and advances the cursor.
func (s *Session) Commit(fieldID string, value forms.AnswerValue) {
	s.Answers[fieldID] = value
	s.AnswerCount++
	s.FieldIdx++
}

// Skip marks the field as explicitly bypassed and advances the cursor.
func (s *Session) Skip(fieldID string) {
	s.Skipped[fieldID] = true
	s.FieldIdx++
}
