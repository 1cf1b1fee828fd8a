// Package forms defines the typed field schema shared by the worker, the
// session engine and the overlay renderer, together with the normalizer and
// validator rules applied to answers.
package forms

import (
	"time"
)

// Field types recognized by the schema.
const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeTel      = "tel"
	TypeDate     = "date"
	TypeNumber   = "number"
	TypeTextarea = "textarea"
	TypeAddress  = "address"
	TypeCompound = "compound"
)

// BBox is an axis-aligned rectangle in image-pixel coordinates with the
// origin at the top-left of the rendered page. PDF-point coordinates never
// appear in this struct; the conversion lives inside the overlay renderer.
type BBox struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Subfield is one named part of a compound field, e.g. the issue date of a
// national ID triple. Prompt is the short Vietnamese phrase used when asking
// the user for this specific part.
type Subfield struct {
	ID     string `json:"id" bson:"id"`
	Label  string `json:"label" bson:"label"`
	Type   string `json:"type" bson:"type"`
	Prompt string `json:"prompt" bson:"prompt"`
}

// FieldDescriptor describes one fillable field. Fields with Type=compound
// carry at least two Subfields and no validators of their own; regular
// fields may carry Normalizers and Validators applied in declared order.
type FieldDescriptor struct {
	ID          string       `json:"id" bson:"id"`
	Label       string       `json:"label" bson:"label"`
	Type        string       `json:"type" bson:"type"`
	Required    bool         `json:"required" bson:"required"`
	Page        int          `json:"page" bson:"page"`
	BBox        *BBox        `json:"bbox,omitempty" bson:"bbox,omitempty"`
	Subfields   []Subfield   `json:"subfields,omitempty" bson:"subfields,omitempty"`
	Normalizers []Normalizer `json:"normalizers,omitempty" bson:"normalizers,omitempty"`
	Validators  []Validator  `json:"validators,omitempty" bson:"validators,omitempty"`
}

// IsCompound reports whether the field is a compound triple.
func (f *FieldDescriptor) IsCompound() bool {
	return f.Type == TypeCompound
}

// FieldPosition is one detector result: an input region with its best label.
type FieldPosition struct {
	FieldID       string  `json:"field_id" bson:"field_id"`
	Label         string  `json:"label" bson:"label"`
	BBox          BBox    `json:"bbox" bson:"bbox"`
	Page          int     `json:"page" bson:"page"`
	Confidence    float64 `json:"confidence" bson:"confidence"`
	DetectionType string  `json:"detection_type" bson:"detection_type"`
}

// FontInfo is the detector's font hint for the overlay renderer.
type FontInfo struct {
	Primary  string   `json:"primary" bson:"primary"`
	Size     float64  `json:"size" bson:"size"`
	Observed []string `json:"observed,omitempty" bson:"observed,omitempty"`
}

// BBoxDetection carries the raw detector output persisted alongside the
// schema. ImageWidth and ImageHeight are the pixel dimensions of the page
// raster the coordinates refer to; they are required whenever any field has
// a bbox.
type BBoxDetection struct {
	ImageWidth     int             `json:"image_width" bson:"image_width"`
	ImageHeight    int             `json:"image_height" bson:"image_height"`
	FontInfo       FontInfo        `json:"font_info" bson:"font_info"`
	FieldPositions []FieldPosition `json:"field_positions" bson:"field_positions"`
	Error          string          `json:"error,omitempty" bson:"error,omitempty"`
}

// BlobRef locates the canonical PDF in the object store.
type BlobRef struct {
	Bucket string `json:"bucket" bson:"bucket"`
	Key    string `json:"key" bson:"key"`
}

// FormSchema is the typed, ordered field list derived for one form document.
// FormID is the stable slug derived from the canonical PDF blob key.
type FormSchema struct {
	FormID        string            `json:"form_id" bson:"form_id"`
	Title         string            `json:"title" bson:"title"`
	Aliases       []string          `json:"aliases,omitempty" bson:"aliases,omitempty"`
	PageCount     int               `json:"page_count" bson:"page_count"`
	Source        BlobRef           `json:"source" bson:"source"`
	Fields        []FieldDescriptor `json:"fields" bson:"fields"`
	BBoxDetection BBoxDetection     `json:"bbox_detection" bson:"bbox_detection"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

// FieldByID returns the field with the given id, or nil.
func (s *FormSchema) FieldByID(id string) *FieldDescriptor {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}
	return nil
}

// AnswerValue holds one committed answer: a scalar string for regular
// fields, or a subfield-id to value map for compound fields. Exactly one of
// the two members is set.
type AnswerValue struct {
	Scalar    string            `json:"scalar,omitempty" bson:"scalar,omitempty"`
	Subfields map[string]string `json:"subfields,omitempty" bson:"subfields,omitempty"`
}

// Flatten renders the answer as one string. Compound values are joined in
// subfield declaration order with ", ".
func (a AnswerValue) Flatten(field *FieldDescriptor) string {
	if a.Subfields == nil {
		return a.Scalar
	}
	var parts []string
	if field != nil {
		for _, sub := range field.Subfields {
			if v, ok := a.Subfields[sub.ID]; ok && v != "" {
				parts = append(parts, v)
			}
		}
	} else {
		for _, v := range a.Subfields {
			if v != "" {
				parts = append(parts, v)
			}
		}
	}
	return joinComma(parts)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
