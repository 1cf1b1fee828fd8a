package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formvn/formbot/forms"
)

func TestChainPrefersPrimary(t *testing.T) {
	primary := &MockCapability{Title: "Đơn xin nghỉ phép", Question: "Bạn tên gì?"}
	chain := NewChain(primary)

	title, err := chain.SynthesizeTitle(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, "Đơn xin nghỉ phép", title)

	q, err := chain.GenerateQuestion(context.Background(), &forms.FieldDescriptor{Label: "Họ tên"})
	require.NoError(t, err)
	assert.Equal(t, "Bạn tên gì?", q)
	assert.Equal(t, []string{"synthesize_title", "generate_question"}, primary.Calls)
}

func TestChainFallsBackOnError(t *testing.T) {
	primary := &MockCapability{Err: errors.New("api timeout")}
	chain := NewChain(primary)

	title, err := chain.SynthesizeTitle(context.Background(), "Đơn đề nghị cấp hộ chiếu\n...")
	require.NoError(t, err)
	assert.Equal(t, "Đơn đề nghị cấp hộ chiếu", title)

	cls, err := chain.ValidateAnswer(context.Background(),
		&forms.FieldDescriptor{ID: "ho_ten", Type: forms.TypeText}, "Nguyễn Văn A")
	require.NoError(t, err)
	assert.Equal(t, VerdictValid, cls.Verdict)
}

func TestChainWithoutPrimary(t *testing.T) {
	chain := NewChain(nil)

	q, err := chain.GenerateQuestion(context.Background(),
		&forms.FieldDescriptor{ID: "email", Label: "Email", Type: forms.TypeEmail})
	require.NoError(t, err)
	assert.Equal(t, "Vui lòng cho biết địa chỉ email của bạn.", q)

	values, err := chain.ParseCompound(context.Background(), cccdField(), "số 012345678901")
	require.NoError(t, err)
	assert.Equal(t, "012345678901", values["so"])
}

func TestChainPreviewFallback(t *testing.T) {
	primary := &MockCapability{Err: errors.New("overloaded")}
	chain := NewChain(primary)

	out, err := chain.RenderPreview(context.Background(), []PreviewPair{
		{Label: "Email", Value: "a@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Email: a@example.com", out)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"verdict":"valid"}`, `{"verdict":"valid"}`},
		{"fenced", "```json\n{\"verdict\":\"valid\"}\n```", `{"verdict":"valid"}`},
		{"prose wrapped", `Here you go: [{"id":"ho_ten"}] hope it helps`, `[{"id":"ho_ten"}]`},
		{"no json", "sorry, I cannot", "sorry, I cannot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
