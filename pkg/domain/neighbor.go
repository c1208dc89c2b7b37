package domain

// Neighbor is a previously processed document whose embedding is close to a
// candidate's. The vector index returns these for duplicate detection and
// bias pattern analysis.
type Neighbor struct {
	DocumentID   DocumentID
	Score        float64
	DocumentType DocumentType
	// Verdict is the neighbor's recorded final verdict, or empty when the
	// index holds no verdict metadata for it.
	Verdict Verdict
}
