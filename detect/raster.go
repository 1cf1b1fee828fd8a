package detect

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/formvn/formbot/common"
)

// Rasterizer renders PDF pages to images. The pdftoppm implementation
// shells out to poppler; tests substitute fakes.
type Rasterizer interface {
	// RenderPage renders the 1-based page of the PDF at the given DPI.
	RenderPage(ctx context.Context, pdf []byte, page, dpi int) (image.Image, error)
}

// PdftoppmRasterizer renders pages with poppler's pdftoppm tool.
type PdftoppmRasterizer struct{}

// RenderPage writes the PDF to a temp file and renders one page to PNG.
func (PdftoppmRasterizer) RenderPage(ctx context.Context, pdf []byte, page, dpi int) (image.Image, error) {
	dir, err := os.MkdirTemp("", "formbot-raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	_, err = common.RunCommand(ctx, "pdftoppm",
		"-png",
		"-f", fmt.Sprint(page),
		"-l", fmt.Sprint(page),
		"-r", fmt.Sprint(dpi),
		input, prefix,
	)
	if err != nil {
		return nil, err
	}

	// pdftoppm pads the page number in the output name depending on the
	// total page count, so glob instead of guessing the padding
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no output for page %d", page)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}
