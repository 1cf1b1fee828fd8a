package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/formvn/formbot/common"
)

// Converter turns an office document into PDF bytes.
type Converter interface {
	ToPDF(ctx context.Context, data []byte, format string) ([]byte, error)
}

// LibreOfficeConverter shells out to a headless libreoffice for doc/docx
// conversion. Each call runs under the configured timeout.
type LibreOfficeConverter struct {
	Timeout time.Duration
}

// NewLibreOfficeConverter creates a converter with the given timeout.
func NewLibreOfficeConverter(timeout time.Duration) *LibreOfficeConverter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LibreOfficeConverter{Timeout: timeout}
}

// ToPDF converts the document. format selects the temp file extension so
// libreoffice picks the right import filter.
func (c *LibreOfficeConverter) ToPDF(ctx context.Context, data []byte, format string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "formbot-convert-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input."+format)
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	_, err = common.RunCommand(ctx, "libreoffice",
		"--headless", "--convert-to", "pdf", "--outdir", dir, input)
	if err != nil {
		return nil, fmt.Errorf("libreoffice conversion failed: %w", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "input.pdf"))
	if err != nil {
		return nil, fmt.Errorf("conversion produced no pdf: %w", err)
	}
	return out, nil
}
