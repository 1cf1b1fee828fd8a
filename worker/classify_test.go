package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7\n..."), FormatPDF},
		{"docx zip container", []byte{0x50, 0x4B, 0x03, 0x04, 0x00}, FormatDOCX},
		{"legacy doc ole container", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}, FormatDOC},
		{"png", []byte{0x89, 'P', 'N', 'G'}, FormatUnknown},
		{"empty", nil, FormatUnknown},
		{"truncated ole header", []byte{0xD0, 0xCF, 0x11}, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}
