package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizerApply(t *testing.T) {
	tests := []struct {
		kind string
		in   string
		want string
	}{
		{NormStrip, "  xin chào  ", "xin chào"},
		{NormCollapse, "a  b \t c", "a b c"},
		{NormUpper, "hà nội", "HÀ NỘI"},
		{NormLower, "HÀ NỘI", "hà nội"},
		{"unknown", "as-is", "as-is"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalizer{Kind: tt.kind}.Apply(tt.in), tt.kind)
	}
}

func TestValidatorRegex(t *testing.T) {
	v := Validator{Kind: ValRegex, Pattern: `^(\+84|0)\d{8,10}$`, Message: "sai"}
	assert.True(t, v.Apply("0901234567").OK)
	assert.True(t, v.Apply("+84901234567").OK)

	verdict := v.Apply("12345")
	assert.False(t, verdict.OK)
	assert.Equal(t, "sai", verdict.Message)
}

func TestValidatorLength(t *testing.T) {
	v := Validator{Kind: ValLength, MinLen: 2, MaxLen: 5}
	assert.False(t, v.Apply("a").OK)
	assert.True(t, v.Apply("abc").OK)
	assert.False(t, v.Apply("abcdef").OK)
	// rune count, not byte count
	assert.True(t, v.Apply("Hà").OK)
}

func TestValidatorNumericRange(t *testing.T) {
	min, max := 1.0, 120.0
	v := Validator{Kind: ValNumericRange, Min: &min, Max: &max}
	assert.True(t, v.Apply("65").OK)
	assert.False(t, v.Apply("0").OK)
	assert.False(t, v.Apply("121").OK)
	assert.False(t, v.Apply("abc").OK)
}

func TestValidatorDateRange(t *testing.T) {
	v := Validator{Kind: ValDateRange, MinDate: "01/01/1900", MaxDate: "31/12/2030"}
	assert.True(t, v.Apply("15/05/2020").OK)
	assert.False(t, v.Apply("2020-05-15").OK)
	assert.False(t, v.Apply("15/05/1850").OK)
	assert.False(t, v.Apply("15/05/2050").OK)
}

func TestFieldNormalizeValidateOrder(t *testing.T) {
	f := FieldDescriptor{
		ID:   "email",
		Type: TypeEmail,
	}
	f.Normalizers, f.Validators = DefaultRules(TypeEmail)

	got := f.Normalize("  Someone@Example.VN ")
	assert.Equal(t, "someone@example.vn", got)
	assert.True(t, f.Validate(got).OK)
	assert.False(t, f.Validate("not-an-email").OK)
}

func TestDefaultRulesPerType(t *testing.T) {
	_, vals := DefaultRules(TypeTel)
	require.Len(t, vals, 1)
	assert.Equal(t, ValRegex, vals[0].Kind)

	_, vals = DefaultRules(TypeText)
	assert.Empty(t, vals)
}

func TestAnswerValueFlatten(t *testing.T) {
	field := &FieldDescriptor{
		ID:   "cccd",
		Type: TypeCompound,
		Subfields: []Subfield{
			{ID: "so", Prompt: "số thẻ"},
			{ID: "cap_ngay", Prompt: "ngày cấp"},
			{ID: "cap_tai", Prompt: "nơi cấp"},
		},
	}
	a := AnswerValue{Subfields: map[string]string{
		"cap_tai":  "Hà Nội",
		"so":       "001234567890",
		"cap_ngay": "15/05/2020",
	}}
	assert.Equal(t, "001234567890, 15/05/2020, Hà Nội", a.Flatten(field))

	scalar := AnswerValue{Scalar: "Nguyễn Văn A"}
	assert.Equal(t, "Nguyễn Văn A", scalar.Flatten(nil))
}

func TestFieldByID(t *testing.T) {
	s := FormSchema{Fields: []FieldDescriptor{{ID: "a"}, {ID: "b"}}}
	require.NotNil(t, s.FieldByID("b"))
	assert.Nil(t, s.FieldByID("zz"))
}
