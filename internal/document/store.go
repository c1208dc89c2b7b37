package document

import (
	"context"

	id "kycgate/pkg/domain"
)

// Store persists document processing metadata. Implementations return
// pkg/platform/sentinel errors for infrastructure facts.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, documentID id.DocumentID) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	ListByUploader(ctx context.Context, userID id.UserID) ([]*Document, error)
}

// VectorIndex is the document side of the vector store: upserting processed
// documents and checking an uploader's prior submissions for duplicates.
// The engine's neighbor search port covers similarity lookups.
type VectorIndex interface {
	Upsert(ctx context.Context, documentID id.DocumentID, embedding []float32, meta VectorMetadata) error
	FindDuplicates(ctx context.Context, embedding []float32, ownerID id.UserID, threshold float64) ([]id.Neighbor, error)
}

// VectorMetadata is the filterable metadata stored alongside an embedding.
type VectorMetadata struct {
	DocumentType id.DocumentType
	OwnerID      id.UserID
	Status       id.DocumentStatus
	CreatedAt    string
}
