package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer kinds.
const (
	NormStrip    = "strip"
	NormCollapse = "collapse_whitespace"
	NormUpper    = "upper"
	NormLower    = "lower"
	NormTitle    = "title"
)

// Validator kinds.
const (
	ValRegex        = "regex"
	ValLength       = "length"
	ValNumericRange = "numeric_range"
	ValDateRange    = "date_range"
)

// DateLayout is the day-first layout used across Vietnamese forms.
const DateLayout = "02/01/2006"

// Normalizer is one normalization step. Kind selects the behavior; the
// other members are unused for the built-in kinds.
type Normalizer struct {
	Kind string `json:"kind" bson:"kind"`
}

// Apply runs the normalizer over the value. Unknown kinds pass the value
// through unchanged.
func (n Normalizer) Apply(value string) string {
	switch n.Kind {
	case NormStrip:
		return strings.TrimSpace(value)
	case NormCollapse:
		return strings.Join(strings.Fields(value), " ")
	case NormUpper:
		return strings.ToUpper(value)
	case NormLower:
		return strings.ToLower(value)
	case NormTitle:
		return cases.Title(language.Vietnamese).String(value)
	}
	return value
}

// Verdict is the outcome of validating one answer. A rejected answer is a
// regular turn outcome carrying a user-facing message, not an error.
type Verdict struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Validator is one validation rule over a normalized value. Kind selects
// which of the optional members apply:
//
//	regex:         Pattern
//	length:        MinLen, MaxLen (0 = unbounded)
//	numeric_range: Min, Max
//	date_range:    MinDate, MaxDate in dd/mm/yyyy (empty = unbounded)
type Validator struct {
	Kind    string   `json:"kind" bson:"kind"`
	Pattern string   `json:"pattern,omitempty" bson:"pattern,omitempty"`
	MinLen  int      `json:"min_len,omitempty" bson:"min_len,omitempty"`
	MaxLen  int      `json:"max_len,omitempty" bson:"max_len,omitempty"`
	Min     *float64 `json:"min,omitempty" bson:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" bson:"max,omitempty"`
	MinDate string   `json:"min_date,omitempty" bson:"min_date,omitempty"`
	MaxDate string   `json:"max_date,omitempty" bson:"max_date,omitempty"`
	Message string   `json:"message,omitempty" bson:"message,omitempty"`
}

// Apply checks the value against the rule. The returned verdict carries the
// rule's message, or a generic Vietnamese one when none is configured.
func (v Validator) Apply(value string) Verdict {
	switch v.Kind {
	case ValRegex:
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return Verdict{OK: true}
		}
		if !re.MatchString(value) {
			return v.reject("Giá trị không đúng định dạng. Vui lòng nhập lại.")
		}
	case ValLength:
		n := len([]rune(value))
		if n < v.MinLen {
			return v.reject(fmt.Sprintf("Giá trị quá ngắn (tối thiểu %d ký tự).", v.MinLen))
		}
		if v.MaxLen > 0 && n > v.MaxLen {
			return v.reject(fmt.Sprintf("Giá trị quá dài (tối đa %d ký tự).", v.MaxLen))
		}
	case ValNumericRange:
		num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return v.reject("Vui lòng nhập một số hợp lệ.")
		}
		if v.Min != nil && num < *v.Min {
			return v.reject(fmt.Sprintf("Giá trị phải lớn hơn hoặc bằng %g.", *v.Min))
		}
		if v.Max != nil && num > *v.Max {
			return v.reject(fmt.Sprintf("Giá trị phải nhỏ hơn hoặc bằng %g.", *v.Max))
		}
	case ValDateRange:
		parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
		if err != nil {
			return v.reject("Vui lòng nhập ngày theo định dạng dd/mm/yyyy.")
		}
		if v.MinDate != "" {
			if min, err := time.Parse(DateLayout, v.MinDate); err == nil && parsed.Before(min) {
				return v.reject(fmt.Sprintf("Ngày phải từ %s trở đi.", v.MinDate))
			}
		}
		if v.MaxDate != "" {
			if max, err := time.Parse(DateLayout, v.MaxDate); err == nil && parsed.After(max) {
				return v.reject(fmt.Sprintf("Ngày phải trước hoặc bằng %s.", v.MaxDate))
			}
		}
	}
	return Verdict{OK: true}
}

func (v Validator) reject(fallback string) Verdict {
	msg := v.Message
	if msg == "" {
		msg = fallback
	}
	return Verdict{OK: false, Message: msg}
}

// Normalize runs the field's normalizers in declared order.
func (f *FieldDescriptor) Normalize(value string) string {
	for _, n := range f.Normalizers {
		value = n.Apply(value)
	}
	return value
}

// Validate runs the field's validators in declared order and returns the
// first rejection, or an accepting verdict.
func (f *FieldDescriptor) Validate(value string) Verdict {
	for _, v := range f.Validators {
		if verdict := v.Apply(value); !verdict.OK {
			return verdict
		}
	}
	return Verdict{OK: true}
}

// DefaultRules returns the normalizers and validators implied by a field
// type when the extractor supplied none. Keeps validation useful even for
// schemas produced by the keyword fallback.
func DefaultRules(fieldType string) ([]Normalizer, []Validator) {
	norms := []Normalizer{{Kind: NormStrip}, {Kind: NormCollapse}}
	switch fieldType {
	case TypeEmail:
		return append(norms, Normalizer{Kind: NormLower}), []Validator{{
			Kind:    ValRegex,
			Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
			Message: "Địa chỉ email không hợp lệ. Vui lòng nhập lại.",
		}}
	case TypeTel:
		return norms, []Validator{{
			Kind:    ValRegex,
			Pattern: `^(\+84|0)\d{8,10}$`,
			Message: "Số điện thoại không hợp lệ. Vui lòng nhập lại.",
		}}
	case TypeDate:
		return norms, []Validator{{Kind: ValDateRange}}
	case TypeNumber:
		return norms, []Validator{{Kind: ValNumericRange}}
	}
	return norms, nil
}
