package detect

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/formvn/formbot/common"
)

// Word is one OCR token with its bounding box and confidence (0-100).
type Word struct {
	Text string
	X    int
	Y    int
	W    int
	H    int
	Conf float64
}

// OCR recognizes text on a page image. The tesseract implementation shells
// out to the binary; tests substitute fakes.
type OCR interface {
	// Words returns per-word text, bbox and confidence for the image.
	Words(ctx context.Context, img image.Image) ([]Word, error)

	// Text returns the plain recognized text of the image.
	Text(ctx context.Context, img image.Image) (string, error)
}

// TesseractOCR runs the tesseract CLI with TSV output.
type TesseractOCR struct {
	Languages string
}

// NewTesseractOCR creates an OCR runner for the given language set,
// e.g. "vie+eng".
func NewTesseractOCR(languages string) *TesseractOCR {
	if languages == "" {
		languages = "vie+eng"
	}
	return &TesseractOCR{Languages: languages}
}

// Words recognizes the image and parses tesseract's TSV dictionary output.
func (t *TesseractOCR) Words(ctx context.Context, img image.Image) ([]Word, error) {
	out, err := t.run(ctx, img, "tsv")
	if err != nil {
		return nil, err
	}
	return parseTSV(string(out)), nil
}

// Text recognizes the image as plain text.
func (t *TesseractOCR) Text(ctx context.Context, img image.Image) (string, error) {
	out, err := t.run(ctx, img, "txt")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *TesseractOCR) run(ctx context.Context, img image.Image, format string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "formbot-ocr-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page.png")
	f, err := os.Create(input)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}
	f.Close()

	args := []string{input, "stdout", "-l", t.Languages}
	if format == "tsv" {
		args = append(args, "tsv")
	}
	return common.RunCommand(ctx, "tesseract", args...)
}

// parseTSV decodes tesseract TSV output. Columns: level page_num block_num
// par_num line_num word_num left top width height conf text. Only rows at
// word level (5) with non-empty text survive.
func parseTSV(out string) []Word {
	var words []Word
	for i, line := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != 5 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		x, _ := strconv.Atoi(cols[6])
		y, _ := strconv.Atoi(cols[7])
		w, _ := strconv.Atoi(cols[8])
		h, _ := strconv.Atoi(cols[9])
		conf, _ := strconv.ParseFloat(cols[10], 64)
		words = append(words, Word{Text: text, X: x, Y: y, W: w, H: h, Conf: conf})
	}
	return words
}
