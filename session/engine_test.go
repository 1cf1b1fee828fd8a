package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
)

type fakeSchemas struct {
	schema *forms.FormSchema
	err    error
}

func (f *fakeSchemas) Get(ctx context.Context, formID string) (*forms.FormSchema, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.schema, nil
}

func leaveSchema() *forms.FormSchema {
	nameN, nameV := forms.DefaultRules(forms.TypeText)
	dateN, dateV := forms.DefaultRules(forms.TypeDate)
	emailN, emailV := forms.DefaultRules(forms.TypeEmail)
	return &forms.FormSchema{
		FormID: "raw/don-1.pdf",
		Title:  "Đơn xin nghỉ phép",
		Fields: []forms.FieldDescriptor{
			{ID: "ho_ten", Label: "Họ và tên", Type: forms.TypeText, Required: true,
				Normalizers: nameN, Validators: nameV},
			{ID: "ngay_sinh", Label: "Ngày sinh", Type: forms.TypeDate, Required: true,
				Normalizers: dateN, Validators: dateV},
			{ID: "email", Label: "Email", Type: forms.TypeEmail, Required: false,
				Normalizers: emailN, Validators: emailV},
			{ID: "cccd", Label: "CCCD", Type: forms.TypeCompound, Required: true,
				Subfields: []forms.Subfield{
					{ID: "so", Label: "Số thẻ", Type: forms.TypeNumber, Prompt: "số thẻ"},
					{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate, Prompt: "ngày cấp"},
					{ID: "cap_tai", Label: "Nơi cấp", Type: forms.TypeText, Prompt: "nơi cấp"},
				}},
		},
	}
}

func testEngine(t *testing.T, capability llm.Capability) *Engine {
	t.Helper()
	store, _ := testStore(t, time.Minute)
	return NewEngine(store, &fakeSchemas{schema: leaveSchema()}, capability)
}

func TestEngineFullFlow(t *testing.T) {
	e := testEngine(t, llm.NewChain(nil))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", map[string]string{"channel": "web"})
	require.NoError(t, err)
	assert.Equal(t, StageAsk, start.Stage)
	assert.Equal(t, "Vui lòng cho biết Họ và tên.", start.Question)
	assert.Equal(t, Progress{CurrentIndex: 0, TotalFields: 4, Percent: 0}, start.Progress)

	// whitespace is normalized before validation
	res, err := e.Turn(ctx, start.SessionID, "  Nguyễn   Văn A ")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.True(t, res.Validation.IsValid)
	assert.Equal(t, "Vui lòng cho biết Ngày sinh (định dạng dd/mm/yyyy).", res.Question)
	assert.Equal(t, 1, res.Progress.CurrentIndex)
	assert.InDelta(t, 25.0, res.Progress.Percent, 0.01)

	// malformed date is rejected with the validator message, cursor stays
	res, err = e.Turn(ctx, start.SessionID, "31/02/2001")
	require.NoError(t, err)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, "Vui lòng nhập ngày theo định dạng dd/mm/yyyy.", res.Message)
	assert.Equal(t, 1, res.Progress.CurrentIndex)

	res, err = e.Turn(ctx, start.SessionID, "15/05/2001")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Progress.CurrentIndex)

	// optional field can be skipped
	res, err = e.Turn(ctx, start.SessionID, "skip")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.Equal(t, "Vui lòng cung cấp CCCD (số thẻ, ngày cấp, nơi cấp).", res.Question)

	// partial compound answer names the missing parts verbatim
	res, err = e.Turn(ctx, start.SessionID, "001234567890")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.Equal(t, "Bạn chưa cung cấp: ngày cấp, nơi cấp. Vui lòng cung cấp đầy đủ thông tin.", res.Message)
	assert.Equal(t, 3, res.Progress.CurrentIndex)

	// complete compound answer finishes the form
	res, err = e.Turn(ctx, start.SessionID, "001234567890 cấp ngày 15/05/2020 tại Hà Nội")
	require.NoError(t, err)
	assert.Equal(t, StageReview, res.Stage)
	assert.Equal(t, Progress{CurrentIndex: 4, TotalFields: 4, Percent: 100}, res.Progress)

	require.Len(t, res.Preview, 3)
	assert.Equal(t, llm.PreviewPair{Label: "Họ và tên", Value: "Nguyễn Văn A"}, res.Preview[0])
	assert.Equal(t, llm.PreviewPair{Label: "Ngày sinh", Value: "15/05/2001"}, res.Preview[1])
	assert.Equal(t, llm.PreviewPair{Label: "CCCD", Value: "001234567890, 15/05/2020, Hà Nội"}, res.Preview[2])
	assert.Equal(t, "Họ và tên: Nguyễn Văn A\nNgày sinh: 15/05/2001\nCCCD: 001234567890, 15/05/2020, Hà Nội", res.PreviewText)

	schema, answers, err := e.Answers(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "raw/don-1.pdf", schema.FormID)
	assert.Equal(t, "Nguyễn Văn A", answers["ho_ten"].Scalar)
	assert.Equal(t, "Hà Nội", answers["cccd"].Subfields["cap_tai"])
}

func TestEngineRequiredFieldCannotBeSkipped(t *testing.T) {
	e := testEngine(t, llm.NewChain(nil))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)

	res, err := e.Turn(ctx, start.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, 0, res.Progress.CurrentIndex)
}

func TestEngineEmailValidation(t *testing.T) {
	e := testEngine(t, llm.NewChain(nil))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)
	_, err = e.Turn(ctx, start.SessionID, "Nguyễn Văn A")
	require.NoError(t, err)
	_, err = e.Turn(ctx, start.SessionID, "15/05/2001")
	require.NoError(t, err)

	res, err := e.Turn(ctx, start.SessionID, "not-an-email")
	require.NoError(t, err)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, "Địa chỉ email không hợp lệ. Vui lòng nhập lại.", res.Message)

	// email is lowercased by its normalizer
	res, err = e.Turn(ctx, start.SessionID, "ANH@Example.COM")
	require.NoError(t, err)
	assert.True(t, res.Validation.IsValid)

	_, answers, err := e.Answers(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "anh@example.com", answers["email"].Scalar)
}

func TestEngineConfirmFlow(t *testing.T) {
	capability := &llm.MockCapability{
		Classification: llm.Classification{
			Verdict: llm.VerdictNeedsConfirmation,
			Message: "Giá trị trông bất thường.",
		},
		Compound: map[string]string{},
	}
	e := testEngine(t, llm.NewChain(capability))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)

	res, err := e.Turn(ctx, start.SessionID, "Xxxx Yyyy")
	require.NoError(t, err)
	assert.Equal(t, StageConfirm, res.Stage)
	assert.True(t, res.Validation.NeedsConfirmation)
	assert.Equal(t, `Bạn xác nhận Họ và tên là "Xxxx Yyyy"? (có/không)`, res.Question)
	assert.Equal(t, 0, res.Progress.CurrentIndex)

	// gibberish keeps the confirm stage
	res, err = e.Turn(ctx, start.SessionID, "hmm")
	require.NoError(t, err)
	assert.Equal(t, StageConfirm, res.Stage)
	assert.Equal(t, "Vui lòng trả lời có hoặc không.", res.Message)

	// no discards the held value and re-asks the same field
	res, err = e.Turn(ctx, start.SessionID, "không")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.Equal(t, 0, res.Progress.CurrentIndex)

	// yes commits the held value
	res, err = e.Turn(ctx, start.SessionID, "Xxxx Yyyy")
	require.NoError(t, err)
	require.Equal(t, StageConfirm, res.Stage)
	res, err = e.Turn(ctx, start.SessionID, "có")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.Equal(t, 1, res.Progress.CurrentIndex)

	_, answers, err := e.Answers(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Xxxx Yyyy", answers["ho_ten"].Scalar)
}

func TestEngineInvalidClassification(t *testing.T) {
	capability := &llm.MockCapability{
		Classification: llm.Classification{Verdict: llm.VerdictInvalid, Message: "Tên không hợp lệ."},
	}
	e := testEngine(t, llm.NewChain(capability))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)

	res, err := e.Turn(ctx, start.SessionID, "asdf")
	require.NoError(t, err)
	assert.Equal(t, StageAsk, res.Stage)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, "Tên không hợp lệ.", res.Message)
	assert.Equal(t, 0, res.Progress.CurrentIndex)
}

func TestEngineDegradesWhenModelIsDown(t *testing.T) {
	// a permanently failing model must not keep any session from review
	e := testEngine(t, llm.NewChain(&llm.MockCapability{Err: errors.New("model down")}))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)

	for _, input := range []string{
		"Nguyễn Văn A",
		"15/05/2001",
		"skip",
		"001234567890 cấp ngày 15/05/2020 tại Hà Nội",
	} {
		res, err := e.Turn(ctx, start.SessionID, input)
		require.NoError(t, err)
		if res.Stage == StageReview {
			assert.NotEmpty(t, res.PreviewText)
			return
		}
	}
	t.Fatal("session never reached review")
}

func TestEngineSurvivesSchemaShrink(t *testing.T) {
	store, _ := testStore(t, time.Minute)
	source := &fakeSchemas{schema: leaveSchema()}
	e := NewEngine(store, source, llm.NewChain(nil))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)
	_, err = e.Turn(ctx, start.SessionID, "Nguyễn Văn A")
	require.NoError(t, err)
	_, err = e.Turn(ctx, start.SessionID, "15/05/2001")
	require.NoError(t, err)

	// the worker reprocessed the form down to one field while the session
	// cursor sat on the third
	shrunk := leaveSchema()
	shrunk.Fields = shrunk.Fields[:1]
	source.schema = shrunk

	res, err := e.Turn(ctx, start.SessionID, "anh@example.com")
	require.NoError(t, err)
	assert.Equal(t, StageReview, res.Stage)
	assert.Equal(t, Progress{CurrentIndex: 1, TotalFields: 1, Percent: 100}, res.Progress)

	_, answers, err := e.Answers(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn A", answers["ho_ten"].Scalar)
}

func TestEngineUnknownSession(t *testing.T) {
	e := testEngine(t, llm.NewChain(nil))

	_, err := e.Turn(context.Background(), "missing-id", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineDelete(t *testing.T) {
	e := testEngine(t, llm.NewChain(nil))
	ctx := context.Background()

	start, err := e.Start(ctx, "raw/don-1.pdf", nil)
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, start.SessionID))

	_, err = e.Turn(ctx, start.SessionID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
