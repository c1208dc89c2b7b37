package engine

import (
	"fmt"
	"time"

	"kycgate/internal/bias"
	id "kycgate/pkg/domain"
)

// confidenceHalfWidth is the half-width of the reported confidence interval.
const confidenceHalfWidth = 0.2

// Explain derives the explainability report for a synthesized decision.
// Pure derivation - no I/O, deterministic given the inputs and the clock
// value passed in.
func Explain(synthesis Synthesis, analysis bias.Analysis, neighbors []id.Neighbor, candidateText string, modelVersion string, now time.Time) Report {
	contentFactor := "Document type: No content extracted"
	if len(candidateText) > 0 {
		contentFactor = "Document type: Valid content detected"
	}

	factors := []string{
		contentFactor,
		fmt.Sprintf("Bias score: %.2f", analysis.Score),
		fmt.Sprintf("Similar documents found: %d", len(neighbors)),
		fmt.Sprintf("AI confidence: %.2f", synthesis.Confidence),
	}

	counterfactual := string(id.VerdictApproved)
	if synthesis.Verdict == id.VerdictApproved {
		counterfactual = string(id.VerdictRejected)
	}
	scenarios := []string{
		"If bias factors were ignored: " + counterfactual,
		"If similar documents showed opposite pattern: " + counterfactual,
		"Manual review recommended for borderline cases",
	}

	trail := []string{
		fmt.Sprintf("Decision made at %s", now.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Model version: %s", modelVersion),
		"Bias analysis completed",
		fmt.Sprintf("Similar documents analyzed: %d", len(neighbors)),
		fmt.Sprintf("Confidence score: %.2f", synthesis.Confidence),
	}

	return Report{
		DecisionFactors:      factors,
		ConfidenceInterval:   intervalAround(synthesis.Confidence),
		AlternativeScenarios: scenarios,
		RiskAssessment:       riskTier(analysis.Score),
		AuditTrail:           trail,
	}
}

// intervalAround clamps confidence +/- the half-width into [0,1].
func intervalAround(confidence float64) Interval {
	return Interval{
		Min: max(0, confidence-confidenceHalfWidth),
		Max: min(1, confidence+confidenceHalfWidth),
	}
}

// riskTier maps a bias score onto the three risk tiers.
func riskTier(biasScore float64) string {
	switch {
	case biasScore > 0.5:
		return RiskHigh
	case biasScore > 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}
