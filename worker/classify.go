// Package worker implements the form-understanding consumer: it takes
// object-created events from the bus, normalizes documents to PDF, runs the
// field-position detector and OCR, derives a typed schema with a title, and
// upserts the result into the metadata store.
package worker

import "bytes"

// Document formats recognized by magic bytes.
const (
	FormatPDF     = "pdf"
	FormatDOCX    = "docx"
	FormatDOC     = "doc"
	FormatUnknown = ""
)

var (
	magicPDF = []byte("%PDF")
	magicZIP = []byte{0x50, 0x4B, 0x03, 0x04}
	magicOLE = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat classifies a document by its magic bytes. A ZIP container is
// reported as docx and an OLE container as legacy doc; anything else is
// unknown.
func DetectFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, magicPDF):
		return FormatPDF
	case bytes.HasPrefix(data, magicZIP):
		return FormatDOCX
	case bytes.HasPrefix(data, magicOLE):
		return FormatDOC
	default:
		return FormatUnknown
	}
}
