package document

import (
	"time"

	id "kycgate/pkg/domain"
)

// Priority orders documents in review queues. Free-form at upload in the
// original system; constrained here.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Document is the processing metadata for one uploaded KYC document. The
// file bytes themselves live in external object storage; only the path is
// tracked here.
type Document struct {
	ID         id.DocumentID
	Type       id.DocumentType
	Status     id.DocumentStatus
	Priority   Priority
	UploadedBy id.UserID
	FileName   string
	FilePath   string

	// OCRText is the extracted text supplied at upload. When absent the
	// processor substitutes a type-specific sample so classification can
	// still be exercised.
	OCRText       string
	OCRConfidence float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy. Documents carry no reference fields today but the
// stores copy on the way in and out regardless.
func (d *Document) Clone() *Document {
	out := *d
	return &out
}

// Result is the per-document outcome of a processing run. A failed item
// carries its error; batch processing reports both without aborting siblings.
type Result struct {
	DocumentID      id.DocumentID
	Verdict         id.Verdict
	Confidence      float64
	DuplicatesFound int
	SimilarCount    int
	Err             error
}
