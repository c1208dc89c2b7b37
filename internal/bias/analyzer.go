// Package bias scores a candidate document's susceptibility to biased
// historical patterns. Scoring is additive over independent factors and
// capped at 1.0. This is pure domain logic - no I/O, no side effects,
// deterministic given identical inputs.
package bias

import (
	"strings"

	id "kycgate/pkg/domain"
)

// Analysis is the outcome of one bias scan. Derived fresh per document and
// embedded in the AI decision that carries it; never persisted on its own.
type Analysis struct {
	Score           float64
	Factors         []string
	Confidence      float64
	Recommendations []string
}

// Factor weights. The sum of all four is 0.8, below the cap; the cap still
// guards any future factor addition.
const (
	weightApprovalSkew    = 0.3
	weightHistoricalType  = 0.2
	weightShortContent    = 0.1
	weightUrgencyKeywords = 0.2

	maxScore = 1.0

	// analysisConfidence is a fixed constant, not derived from the neighbor
	// sample size. Known simplification carried over from the scoring model.
	analysisConfidence = 0.85

	// shortContentThreshold is the character count under which a document is
	// considered too thin to review on its own.
	shortContentThreshold = 100
)

// urgencyKeywords trigger the urgency factor on a case-insensitive substring
// match anywhere in the candidate text.
var urgencyKeywords = []string{"urgent", "rush", "emergency", "priority"}

// historicallyApprovedTypes are document types with a known historical
// approval skew. A candidate of one of these types picks up the historical
// factor when at least one neighbor was approved.
var historicallyApprovedTypes = map[id.DocumentType]bool{
	id.DocTypePAN:     true,
	id.DocTypeAadhaar: true,
}

// Analyze scores a candidate document against its nearest neighbors.
func Analyze(candidateText string, docType id.DocumentType, neighbors []id.Neighbor) Analysis {
	var approved, rejected int
	for _, n := range neighbors {
		switch n.Verdict {
		case id.VerdictApproved:
			approved++
		case id.VerdictRejected:
			rejected++
		}
	}

	score := 0.0
	factors := []string{}
	recommendations := []string{}

	if approved > rejected*2 {
		score += weightApprovalSkew
		factors = append(factors, "High approval rate in similar documents")
		recommendations = append(recommendations, "Consider additional scrutiny for approval patterns")
	}

	if historicallyApprovedTypes[docType] && approved > 0 {
		score += weightHistoricalType
		factors = append(factors, "Document type historically approved")
	}

	if len(candidateText) < shortContentThreshold {
		score += weightShortContent
		factors = append(factors, "Short document may lack sufficient information")
		recommendations = append(recommendations, "Request additional documentation")
	}

	if containsUrgencyKeyword(candidateText) {
		score += weightUrgencyKeywords
		factors = append(factors, "Contains urgency keywords")
		recommendations = append(recommendations, "Verify urgency claims")
	}

	return Analysis{
		Score:           min(score, maxScore),
		Factors:         factors,
		Confidence:      analysisConfidence,
		Recommendations: recommendations,
	}
}

func containsUrgencyKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range urgencyKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
