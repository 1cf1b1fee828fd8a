package worker

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/detect"
	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/llm"
	"github.com/formvn/formbot/queue"
)

// bboxMatchThreshold is the minimum case-folded label similarity for
// attaching a detected position to an extracted field.
const bboxMatchThreshold = 0.30

// ObjectStore is the blob access the processor needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Bucket() string
}

// SchemaRepo persists derived form schemas.
type SchemaRepo interface {
	Upsert(ctx context.Context, schema *forms.FormSchema) error
}

// Processor runs the understanding pipeline for one storage event.
type Processor struct {
	store     ObjectStore
	repo      SchemaRepo
	detector  *detect.Detector
	converter Converter
	llm       llm.Capability

	now func() time.Time
}

// NewProcessor wires the pipeline. dpi is the page rasterization density.
func NewProcessor(store ObjectStore, repo SchemaRepo, ocr detect.OCR, raster detect.Rasterizer,
	converter Converter, capability llm.Capability, dpi int) *Processor {
	return &Processor{
		store:     store,
		repo:      repo,
		detector:  detect.NewDetector(ocr, raster, dpi),
		converter: converter,
		llm:       capability,
		now:       time.Now,
	}
}

// Process handles one object-created event end to end. The form id derives
// deterministically from the object key, so redelivery of the same event
// upserts the same document.
func (p *Processor) Process(ctx context.Context, event queue.StorageEvent) error {
	log := common.OperationLogger("worker", "process").WithField("key", event.Key)

	data, err := p.store.Get(ctx, event.Key)
	if err != nil {
		return fmt.Errorf("failed to fetch object %s: %w", event.Key, err)
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		log.Warn("unrecognized document format, skipping")
		return nil
	}

	pdf := data
	formID := event.Key
	if format != FormatPDF {
		var converted []byte
		err := common.LogOperation(log, "convert", func() error {
			var convErr error
			converted, convErr = p.converter.ToPDF(ctx, data, format)
			return convErr
		})
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", event.Key, err)
		}
		formID = strings.TrimSuffix(event.Key, path.Ext(event.Key)) + ".pdf"
		if err := p.store.Put(ctx, formID, converted, "application/pdf"); err != nil {
			return fmt.Errorf("failed to store converted pdf: %w", err)
		}
		pdf = converted
	}

	detection, text := p.detector.DetectPage(ctx, pdf, 1)

	fields := p.extractFields(ctx, text)
	attachPositions(fields, detection.FieldPositions)

	pageCount, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		log.WithError(err).Warn("failed to count pages, assuming 1")
		pageCount = 1
	}

	title := DeriveTitle(ctx, p.llm, text)
	schema := &forms.FormSchema{
		FormID:        formID,
		Title:         title,
		Aliases:       forms.AliasesFor(title),
		PageCount:     pageCount,
		Source:        forms.BlobRef{Bucket: p.store.Bucket(), Key: formID},
		Fields:        fields,
		BBoxDetection: detection,
		CreatedAt:     p.now().UTC(),
	}
	if err := p.repo.Upsert(ctx, schema); err != nil {
		return fmt.Errorf("failed to upsert schema %s: %w", formID, err)
	}

	log.WithFields(logrus.Fields{
		"form_id": formID,
		"fields":  len(fields),
		"title":   schema.Title,
	}).Info("form schema derived")
	return nil
}

// extractFields asks the model for the field list and falls back to the
// keyword extractor when it returns nothing usable.
func (p *Processor) extractFields(ctx context.Context, text string) []forms.FieldDescriptor {
	fields, err := p.llm.ExtractFields(ctx, text)
	if err != nil || len(fields) == 0 {
		return ExtractFieldsByKeywords(text)
	}
	// model-extracted fields arrive without rules attached
	for i := range fields {
		if fields[i].IsCompound() {
			continue
		}
		if len(fields[i].Normalizers) == 0 && len(fields[i].Validators) == 0 {
			fields[i].Normalizers, fields[i].Validators = forms.DefaultRules(fields[i].Type)
		}
	}
	return fields
}

// attachPositions assigns each field the best-matching detected position by
// case-folded label similarity. A position below the threshold leaves the
// field without a bbox.
func attachPositions(fields []forms.FieldDescriptor, positions []forms.FieldPosition) {
	for i := range fields {
		bestScore := bboxMatchThreshold
		bestIdx := -1
		for j, pos := range positions {
			score := common.Similarity(fields[i].Label, pos.Label)
			if score >= bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			bbox := positions[bestIdx].BBox
			fields[i].BBox = &bbox
			fields[i].Page = positions[bestIdx].Page
		}
	}
}
