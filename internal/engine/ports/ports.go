// Package ports defines the engine's external collaborator interfaces.
// The decision pipeline depends on these, never on HTTP clients or SDKs,
// so transports can be swapped without touching decision logic.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks Classifier,NeighborSearch,Embedder

import (
	"context"

	id "kycgate/pkg/domain"
)

// Classifier is the black-box document classifier (the LLM call). It may
// fail or time out; the engine degrades to an escalation fallback and never
// propagates classifier errors to its caller.
type Classifier interface {
	// Classify submits a prompt and returns the raw response text. The
	// response is not guaranteed to be structured; parsing and the keyword
	// fallback are the engine's concern.
	Classify(ctx context.Context, prompt string) (string, error)
}

// Embedder turns extracted document text into an embedding vector for
// neighbor search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NeighborSearch finds previously processed documents close to an embedding.
// Implementations return an empty slice on no matches, never nil-with-error.
type NeighborSearch interface {
	FindNeighbors(ctx context.Context, embedding []float32, docType id.DocumentType, k int) ([]id.Neighbor, error)
}
