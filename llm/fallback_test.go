package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formvn/formbot/forms"
)

func TestHeuristicTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "skips motto header",
			text: "CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM\nĐộc lập - Tự do - Hạnh phúc\nĐơn xin nghỉ phép\nKính gửi: ...",
			want: "Đơn xin nghỉ phép",
		},
		{
			name: "skips decree number line",
			text: "Mẫu số: 01/NGHP\nĐơn đề nghị cấp hộ chiếu",
			want: "Đơn đề nghị cấp hộ chiếu",
		},
		{
			name: "strips form marker prefix",
			text: "Mẫu: Tờ khai đăng ký tạm trú",
			want: "Tờ khai đăng ký tạm trú",
		},
		{
			name: "skips long digit runs",
			text: "1234567890\nGiấy đề nghị thanh toán",
			want: "Giấy đề nghị thanh toán",
		},
		{
			name: "empty text",
			text: "\n\n",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicTitle(tt.text))
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	short := "Đơn xin nghỉ phép"
	assert.Equal(t, short, TruncateTitle(short))

	long := strings.Repeat("a", 150)
	got := TruncateTitle(long)
	assert.Len(t, []rune(got), 100)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTemplateQuestion(t *testing.T) {
	date := &forms.FieldDescriptor{ID: "ngay_sinh", Label: "Ngày sinh:", Type: forms.TypeDate}
	assert.Equal(t, "Vui lòng cho biết Ngày sinh (định dạng dd/mm/yyyy).", TemplateQuestion(date))

	text := &forms.FieldDescriptor{ID: "ho_ten", Label: "Họ và tên", Type: forms.TypeText}
	assert.Equal(t, "Vui lòng cho biết Họ và tên.", TemplateQuestion(text))

	compound := &forms.FieldDescriptor{
		ID: "cccd", Label: "CCCD", Type: forms.TypeCompound,
		Subfields: []forms.Subfield{
			{ID: "so", Prompt: "số thẻ"},
			{ID: "cap_ngay", Prompt: "ngày cấp"},
			{ID: "cap_tai", Prompt: "nơi cấp"},
		},
	}
	assert.Equal(t, "Vui lòng cung cấp CCCD (số thẻ, ngày cấp, nơi cấp).", TemplateQuestion(compound))
}

func cccdField() *forms.FieldDescriptor {
	return &forms.FieldDescriptor{
		ID: "cccd", Label: "CCCD", Type: forms.TypeCompound,
		Subfields: []forms.Subfield{
			{ID: "so", Label: "Số thẻ", Type: forms.TypeNumber, Prompt: "số thẻ"},
			{ID: "cap_ngay", Label: "Ngày cấp", Type: forms.TypeDate, Prompt: "ngày cấp"},
			{ID: "cap_tai", Label: "Nơi cấp", Type: forms.TypeText, Prompt: "nơi cấp"},
		},
	}
}

func TestParseCompoundFull(t *testing.T) {
	f := NewFallback()
	values, err := f.ParseCompound(context.Background(),
		cccdField(), "012345678901 cấp ngày 12/05/2021 tại Công an Hà Nội")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"so":       "012345678901",
		"cap_ngay": "12/05/2021",
		"cap_tai":  "Công an Hà Nội",
	}, values)
}

func TestParseCompoundPartial(t *testing.T) {
	f := NewFallback()
	values, err := f.ParseCompound(context.Background(), cccdField(), "số 012345678901")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"so": "012345678901"}, values)
}

func TestParseCompoundPlaceBeforeDate(t *testing.T) {
	f := NewFallback()
	values, err := f.ParseCompound(context.Background(),
		cccdField(), "012345678901, nơi cấp: Cục CSQLHC, ngày 01/01/2022")
	require.NoError(t, err)

	assert.Equal(t, "01/01/2022", values["cap_ngay"])
	assert.Equal(t, "Cục CSQLHC", values["cap_tai"])
}

func TestValidateAnswerAlwaysValid(t *testing.T) {
	f := NewFallback()
	cls, err := f.ValidateAnswer(context.Background(),
		&forms.FieldDescriptor{ID: "ho_ten", Type: forms.TypeText}, "Nguyễn Văn A")
	require.NoError(t, err)
	assert.Equal(t, VerdictValid, cls.Verdict)
}

func TestRenderPreviewListsPairs(t *testing.T) {
	f := NewFallback()
	out, err := f.RenderPreview(context.Background(), []PreviewPair{
		{Label: "Họ và tên", Value: "Nguyễn Văn A"},
		{Label: "Email", Value: "a@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Họ và tên: Nguyễn Văn A\nEmail: a@example.com", out)
}
