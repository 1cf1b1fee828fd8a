package overlay

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/signintech/gopdf"
	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
)

const (
	fontFamily  = "overlay"
	lineHeight  = 12.0
	rightMargin = 72.0

	summaryTitle   = "Thông tin đã điền"
	summaryMargin  = 72.0
	summaryBottom  = 80.0
	summaryLeading = 28.0
)

// Renderer fills a form PDF with session answers.
type Renderer struct {
	logger *logrus.Entry
}

// NewRenderer creates the overlay renderer.
func NewRenderer() *Renderer {
	return &Renderer{logger: common.ServiceLogger("overlay")}
}

// drawEntry is one answered field with its flattened text.
type drawEntry struct {
	field *forms.FieldDescriptor
	text  string
}

// Fill renders the answers onto the original PDF. With no non-empty answers
// the original bytes come back unchanged, and so does any failure along the
// way: the caller always receives a usable document.
func (r *Renderer) Fill(schema *forms.FormSchema, answers map[string]forms.AnswerValue, original []byte) []byte {
	entries := drawEntries(schema, answers)
	if len(entries) == 0 {
		return original
	}

	out, err := r.fill(schema, entries, original)
	if err != nil {
		r.logger.WithError(err).WithField("form_id", schema.FormID).
			Warn("overlay failed, returning original document")
		return original
	}
	return out
}

// drawEntries collects answered fields with non-empty values in field order.
// Compound values are flattened in subfield declaration order.
func drawEntries(schema *forms.FormSchema, answers map[string]forms.AnswerValue) []drawEntry {
	var entries []drawEntry
	for i := range schema.Fields {
		field := &schema.Fields[i]
		answer, ok := answers[field.ID]
		if !ok {
			continue
		}
		if text := strings.TrimSpace(answer.Flatten(field)); text != "" {
			entries = append(entries, drawEntry{field: field, text: text})
		}
	}
	return entries
}

func (r *Renderer) fill(schema *forms.FormSchema, entries []drawEntry, original []byte) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("overlay panic: %v", rec)
		}
	}()

	dims, err := api.PageDims(bytes.NewReader(original), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	fontPath, ok := resolveFontPath(schema.BBoxDetection.FontInfo)
	if !ok {
		return nil, fmt.Errorf("no unicode font available")
	}
	size := schema.BBoxDetection.FontInfo.Size
	if size <= 0 {
		size = 12
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFont(fontFamily, fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", fontPath, err)
	}
	if err := pdf.SetFont(fontFamily, "", size); err != nil {
		return nil, fmt.Errorf("failed to select font: %w", err)
	}

	det := schema.BBoxDetection
	hasBBox := false
	for _, e := range entries {
		if e.field.BBox != nil && det.ImageWidth > 0 && det.ImageHeight > 0 {
			hasBBox = true
			break
		}
	}

	var rs io.ReadSeeker = bytes.NewReader(original)
	for i, dim := range dims {
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: dim.Width, H: dim.Height}})
		tpl := pdf.ImportPageStream(&rs, i+1, "/MediaBox")
		pdf.UseImportedTemplate(tpl, 0, 0, dim.Width, dim.Height)
		if hasBBox {
			r.drawPage(&pdf, det, entries, i+1, dim.Width, dim.Height)
		}
	}
	if !hasBBox {
		r.appendSummary(&pdf, entries, dims[0].Width, dims[0].Height)
	}

	return pdf.GetBytesPdfReturnErr()
}

// canvas is the drawing surface the positioned and summary passes target.
// *gopdf.GoPdf satisfies it; tests substitute a recording fake.
type canvas interface {
	AddPageWithOption(opt gopdf.PageOption)
	SetXY(x, y float64)
	Cell(rect *gopdf.Rect, text string) error
	MeasureTextWidth(text string) (float64, error)
}

// drawPage draws every answered field positioned on the given page.
func (r *Renderer) drawPage(pdf canvas, det forms.BBoxDetection, entries []drawEntry, page int, pageW, pageH float64) {
	for _, e := range entries {
		if e.field.BBox == nil || fieldPage(e.field) != page {
			continue
		}
		x, yPDF := DrawPosition(*e.field.BBox, pageW, pageH, det.ImageWidth, det.ImageHeight)
		yTop := pageH - yPDF

		maxWidth := pageW - x - rightMargin
		for _, line := range wrapText(pdf, e.text, maxWidth) {
			pdf.SetXY(x, yTop)
			if err := pdf.Cell(nil, line); err != nil {
				r.logger.WithError(err).WithField("field", e.field.ID).Warn("failed to draw answer")
			}
			yTop += lineHeight
		}
	}
}

// appendSummary emits the synthesized listing pages used when no field has
// a known position.
func (r *Renderer) appendSummary(pdf canvas, entries []drawEntry, pageW, pageH float64) {
	newPage := func() float64 {
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: pageW, H: pageH}})
		return summaryMargin
	}

	yTop := newPage()
	pdf.SetXY(summaryMargin, yTop)
	if err := pdf.Cell(nil, summaryTitle); err != nil {
		r.logger.WithError(err).Warn("failed to draw summary title")
	}
	yTop += summaryLeading

	maxWidth := pageW - 2*summaryMargin
	for _, e := range entries {
		label := strings.TrimRight(strings.TrimSpace(e.field.Label), ":")
		for _, line := range wrapText(pdf, label+": "+e.text, maxWidth) {
			if yTop > pageH-summaryBottom {
				yTop = newPage()
			}
			pdf.SetXY(summaryMargin, yTop)
			if err := pdf.Cell(nil, line); err != nil {
				r.logger.WithError(err).Warn("failed to draw summary line")
			}
			yTop += lineHeight
		}
	}
}

// fieldPage treats an unset page as page 1.
func fieldPage(f *forms.FieldDescriptor) int {
	if f.Page <= 0 {
		return 1
	}
	return f.Page
}

// DrawPosition maps an image-pixel bbox to the draw origin in PDF points
// with a bottom-left origin. Y is flipped and offset by 70% of the bbox
// height so text sits on the underline's baseline.
func DrawPosition(bbox forms.BBox, pageW, pageH float64, imgW, imgH int) (x, y float64) {
	scaleX := pageW / float64(imgW)
	scaleY := pageH / float64(imgH)
	x = bbox.X * scaleX
	y = pageH - bbox.Y*scaleY - 0.7*bbox.Height*scaleY
	return x, y
}

// textMeasurer is satisfied by *gopdf.GoPdf; tests use a fixed-width fake.
type textMeasurer interface {
	MeasureTextWidth(text string) (float64, error)
}

// wrapText word-wraps the text to the width. A single word wider than the
// limit gets its own line rather than being split.
func wrapText(m textMeasurer, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		width, err := m.MeasureTextWidth(candidate)
		if err == nil && width <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
