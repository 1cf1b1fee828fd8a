package session

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
)

// upgradeTimeout bounds the out-of-band model call that polishes a cached
// question. The user-facing response never waits for it.
const upgradeTimeout = 10 * time.Second

var (
	ambiguousLabelRe = regexp.MustCompile(`(?i)^(cấp ngày|ngày cấp|cấp tại|nơi cấp|tại)[:\s]*$`)
	subjectLabelRe   = regexp.MustCompile(`(?i)(CMND|CCCD|căn cước|chứng minh|hộ chiếu)`)
)

// QuestionCache renders questions per (form, field). The first request for a
// field answers immediately from the deterministic templates and, when a
// model capability is present, kicks off an out-of-band upgrade of the
// cached phrasing.
type QuestionCache struct {
	mu         sync.RWMutex
	byForm     map[string]map[string]QuestionRecord
	capability llm.Capability
	logger     *logrus.Entry
}

// NewQuestionCache creates a cache. A nil capability disables upgrades.
func NewQuestionCache(capability llm.Capability) *QuestionCache {
	return &QuestionCache{
		byForm:     make(map[string]map[string]QuestionRecord),
		capability: capability,
		logger:     common.ServiceLogger("session"),
	}
}

// Question returns the prompt for the field at idx.
func (c *QuestionCache) Question(schema *forms.FormSchema, idx int) string {
	field := &schema.Fields[idx]

	c.mu.RLock()
	rec, ok := c.byForm[schema.FormID][field.ID]
	c.mu.RUnlock()
	if ok {
		return rec.Text
	}

	text := templateQuestionFor(schema, idx)
	c.put(schema.FormID, field.ID, QuestionRecord{Text: text, Source: "template"})
	if c.capability != nil {
		go c.upgrade(schema.FormID, *field)
	}
	return text
}

func (c *QuestionCache) put(formID, fieldID string, rec QuestionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byForm[formID] == nil {
		c.byForm[formID] = make(map[string]QuestionRecord)
	}
	c.byForm[formID][fieldID] = rec
}

// upgrade asks the model for richer phrasing and replaces the cached entry.
// Failures leave the template in place.
func (c *QuestionCache) upgrade(formID string, field forms.FieldDescriptor) {
	ctx, cancel := context.WithTimeout(context.Background(), upgradeTimeout)
	defer cancel()

	question, err := c.capability.GenerateQuestion(ctx, &field)
	if err != nil || strings.TrimSpace(question) == "" {
		if err != nil {
			c.logger.WithError(err).WithField("field", field.ID).Debug("question upgrade failed")
		}
		return
	}
	c.put(formID, field.ID, QuestionRecord{Text: question, Source: "model"})
}

// templateQuestionFor phrases the deterministic question, disambiguating a
// bare "ngày cấp"/"nơi cấp"/"tại" label by looking back up to three fields
// for a concrete subject such as CMND or hộ chiếu.
func templateQuestionFor(schema *forms.FormSchema, idx int) string {
	field := schema.Fields[idx]
	label := strings.TrimSpace(field.Label)

	if ambiguousLabelRe.MatchString(label) {
		for back := idx - 1; back >= 0 && back >= idx-3; back-- {
			if m := subjectLabelRe.FindString(schema.Fields[back].Label); m != "" {
				field.Label = m + " " + strings.ToLower(strings.TrimRight(label, ": "))
				break
			}
		}
	}
	return llm.TemplateQuestion(&field)
}
