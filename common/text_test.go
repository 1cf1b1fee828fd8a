package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasVietnameseDiacritics(t *testing.T) {
	assert.True(t, HasVietnameseDiacritics("Họ và tên"))
	assert.True(t, HasVietnameseDiacritics("Độc lập"))
	assert.False(t, HasVietnameseDiacritics("Full name"))
	assert.False(t, HasVietnameseDiacritics(""))
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Họ và tên", "Ho va ten"},
		{"Địa chỉ", "Dia chi"},
		{"đơn đề nghị", "don de nghi"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripDiacritics(tt.in))
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Họ và tên:", "ho_va_ten"},
		{"Số điện thoại", "so_dien_thoai"},
		{"  Email  ", "email"},
		{"CMND/CCCD", "cmnd_cccd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Họ và tên", "ho va ten"))
	assert.Greater(t, Similarity("Họ và tên", "Họ tên"), 0.3)
	assert.Less(t, Similarity("Email", "Ngày sinh"), 0.3)
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \t b\n c "))
}
