package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
)

func idCardSchema() *forms.FormSchema {
	return &forms.FormSchema{
		FormID: "raw/to-khai.pdf",
		Fields: []forms.FieldDescriptor{
			{ID: "so_cmnd", Label: "Số CMND", Type: forms.TypeText},
			{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate},
			{ID: "cap_tai", Label: "Nơi cấp", Type: forms.TypeText},
		},
	}
}

func TestTemplateQuestionDisambiguation(t *testing.T) {
	schema := idCardSchema()

	assert.Equal(t, "Vui lòng cho biết Số CMND.", templateQuestionFor(schema, 0))
	assert.Equal(t, "Vui lòng cho biết CMND ngày cấp (định dạng dd/mm/yyyy).", templateQuestionFor(schema, 1))
	assert.Equal(t, "Vui lòng cho biết CMND nơi cấp.", templateQuestionFor(schema, 2))
}

func TestTemplateQuestionDisambiguationWindow(t *testing.T) {
	// the subject is more than three fields back, so the label stays bare
	schema := &forms.FormSchema{
		FormID: "raw/x.pdf",
		Fields: []forms.FieldDescriptor{
			{ID: "so_cmnd", Label: "Số CMND", Type: forms.TypeText},
			{ID: "a", Label: "Họ và tên", Type: forms.TypeText},
			{ID: "b", Label: "Email", Type: forms.TypeEmail},
			{ID: "c", Label: "Số điện thoại", Type: forms.TypeTel},
			{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate},
		},
	}
	assert.Equal(t, "Vui lòng cho biết Ngày cấp (định dạng dd/mm/yyyy).", templateQuestionFor(schema, 4))
}

func TestQuestionCacheServesTemplateFirst(t *testing.T) {
	capability := &llm.MockCapability{Question: "Xin bạn cho biết họ tên đầy đủ của mình?"}
	cache := NewQuestionCache(capability)
	schema := leaveSchema()

	// the first call answers from the template without waiting for the model
	first := cache.Question(schema, 0)
	assert.Equal(t, "Vui lòng cho biết Họ và tên.", first)

	// the out-of-band upgrade replaces the cached phrasing
	assert.Eventually(t, func() bool {
		cache.mu.RLock()
		defer cache.mu.RUnlock()
		return cache.byForm[schema.FormID]["ho_ten"].Source == "model"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "Xin bạn cho biết họ tên đầy đủ của mình?", cache.Question(schema, 0))
}

func TestQuestionCacheWithoutCapability(t *testing.T) {
	cache := NewQuestionCache(nil)
	schema := leaveSchema()

	assert.Equal(t, "Vui lòng cung cấp CCCD (số thẻ, ngày cấp, nơi cấp).", cache.Question(schema, 3))
	assert.Equal(t, "template", cache.byForm[schema.FormID]["cccd"].Source)
}
