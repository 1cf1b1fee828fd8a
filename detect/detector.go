package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
)

// minGeometricPositions is the acceptance bar for the geometric strategy:
// below it the page is assumed to use prose-style labels and the detector
// switches to keyword anchoring.
const minGeometricPositions = 3

// Detector locates field positions on form pages. It combines a layout pass
// (underlines and boxes) with OCR labels, and falls back to keyword matching
// on pages where the geometry gives too few hits.
type Detector struct {
	ocr    OCR
	raster Rasterizer
	dpi    int
	logger *logrus.Entry
}

// NewDetector wires a detector from its OCR and rasterization backends.
func NewDetector(ocr OCR, raster Rasterizer, dpi int) *Detector {
	if dpi <= 0 {
		dpi = 300
	}
	return &Detector{ocr: ocr, raster: raster, dpi: dpi, logger: common.ServiceLogger("detect")}
}

// DetectPage rasterizes one page of the PDF and runs the full understanding
// pass over it: field position detection, a font scan, and a plain OCR read
// whose text feeds field extraction downstream. The page is rendered once
// and shared between the passes. Failures never propagate as errors; the
// result carries an Error string and an empty position list so the caller
// can still persist the form.
func (d *Detector) DetectPage(ctx context.Context, pdf []byte, page int) (forms.BBoxDetection, string) {
	img, err := d.raster.RenderPage(ctx, pdf, page, d.dpi)
	if err != nil {
		d.logger.WithError(err).WithField("page", page).Warn("failed to render page")
		return forms.BBoxDetection{
			FontInfo: ScanFonts(pdf),
			Error:    fmt.Sprintf("rasterization failed: %v", err),
		}, ""
	}
	result := d.DetectImage(ctx, img, page)
	result.FontInfo = ScanFonts(pdf)

	text, err := d.ocr.Text(ctx, img)
	if err != nil {
		d.logger.WithError(err).WithField("page", page).Warn("ocr text pass failed")
		text = ""
	}
	return result, text
}

// DetectImage detects field positions on an already-rendered page image.
func (d *Detector) DetectImage(ctx context.Context, img image.Image, page int) forms.BBoxDetection {
	bounds := img.Bounds()
	result := forms.BBoxDetection{
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
	}

	underlines := DetectUnderlines(img)
	boxes := DetectBoxes(img, underlines)

	words, err := d.ocr.Words(ctx, img)
	if err != nil {
		result.Error = fmt.Sprintf("ocr failed: %v", err)
		return result
	}
	labels := GroupWords(words)

	positions := geometricPositions(underlines, boxes, labels, page)
	if len(positions) < minGeometricPositions {
		if kw := keywordPositions(labels, underlines, page); len(kw) > len(positions) {
			positions = kw
		}
	}
	result.FieldPositions = positions
	return result
}

// geometricPositions pairs every detected input element with its best label.
// Elements with no plausible label nearby are dropped.
func geometricPositions(underlines, boxes []Segment, labels []GroupedLabel, page int) []forms.FieldPosition {
	var positions []forms.FieldPosition
	appendElems := func(elems []Segment) {
		for _, elem := range elems {
			label, ok := BestLabel(elem, labels)
			if !ok {
				continue
			}
			positions = append(positions, forms.FieldPosition{
				FieldID:       common.Slugify(label.Text),
				Label:         label.Text,
				BBox:          segmentBBox(elem),
				Page:          page,
				Confidence:    label.Conf / 100,
				DetectionType: "layout",
			})
		}
	}
	appendElems(underlines)
	appendElems(boxes)
	return positions
}

// keywordPositions converts keyword-anchored matches into field positions.
func keywordPositions(labels []GroupedLabel, underlines []Segment, page int) []forms.FieldPosition {
	var positions []forms.FieldPosition
	for _, m := range DetectByKeywords(labels, underlines) {
		positions = append(positions, forms.FieldPosition{
			FieldID:       m.FieldID,
			Label:         m.Label.Text,
			BBox:          segmentBBox(m.Input),
			Page:          page,
			Confidence:    m.Label.Conf / 100,
			DetectionType: "keyword",
		})
	}
	return positions
}

func segmentBBox(s Segment) forms.BBox {
	return forms.BBox{
		X:      float64(s.X),
		Y:      float64(s.Y),
		Width:  float64(s.W),
		Height: float64(s.H),
	}
}
