package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"kycgate/internal/bias"
	id "kycgate/pkg/domain"
)

// Confidence values assigned when the classifier response lacks them.
const (
	// defaultParsedConfidence backfills a structured response that omitted
	// its confidence field.
	defaultParsedConfidence = 0.5

	// degradedConfidence is assigned when the verdict had to be recovered by
	// keyword scan instead of structured parsing.
	degradedConfidence = 0.6
)

// BuildPrompt constructs the structured classification prompt embedding the
// document text, bias findings, and neighbor count.
func BuildPrompt(candidateText string, docType id.DocumentType, analysis bias.Analysis, neighborCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s document and make a compliance decision.\n\n", docType)
	fmt.Fprintf(&b, "Document Text:\n%s\n\n", candidateText)
	b.WriteString("Bias Analysis:\n")
	fmt.Fprintf(&b, "- Bias Score: %.2f\n", analysis.Score)
	fmt.Fprintf(&b, "- Factors: %s\n", strings.Join(analysis.Factors, ", "))
	fmt.Fprintf(&b, "- Recommendations: %s\n\n", strings.Join(analysis.Recommendations, ", "))
	fmt.Fprintf(&b, "Similar Documents: %d found\n\n", neighborCount)
	b.WriteString(`Instructions:
1. Consider the document authenticity and completeness
2. Account for bias factors in your analysis
3. Provide clear reasoning
4. Return verdict as APPROVED, REJECTED, or ESCALATE
5. Include confidence score (0-1)

Response format:
{
  "verdict": "APPROVED|REJECTED|ESCALATE",
  "confidence": 0.95,
  "reasoning": "Detailed explanation..."
}
`)
	return b.String()
}

// rawResponse is the wire shape the classifier is instructed to return.
type rawResponse struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// InterpretResponse turns a raw classifier response into a tagged outcome.
// The degraded branch is the explicit, named recovery path for unstructured
// responses; it never fails.
func InterpretResponse(raw string) ClassifierOutcome {
	var parsed rawResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		if verdict, verr := id.ParseVerdict(parsed.Verdict); verr == nil {
			confidence := parsed.Confidence
			if confidence == 0 {
				confidence = defaultParsedConfidence
			}
			reasoning := parsed.Reasoning
			if reasoning == "" {
				reasoning = "AI decision made"
			}
			return ClassifierOutcome{
				Kind: OutcomeParsed,
				Parsed: ParsedResponse{
					Verdict:    verdict,
					Confidence: confidence,
					Reasoning:  reasoning,
				},
				Raw: raw,
			}
		}
	}
	return ClassifierOutcome{Kind: OutcomeDegraded, Raw: raw}
}

// Synthesize resolves a classifier outcome into the provisional verdict.
// On the degraded branch the verdict comes from a keyword scan of the raw
// text: APPROVED wins over REJECTED, anything else escalates.
func Synthesize(outcome ClassifierOutcome) Synthesis {
	if outcome.Kind == OutcomeParsed {
		return Synthesis{
			Verdict:    outcome.Parsed.Verdict,
			Confidence: outcome.Parsed.Confidence,
			Reasoning:  outcome.Parsed.Reasoning,
		}
	}

	verdict := id.VerdictEscalate
	if strings.Contains(outcome.Raw, string(id.VerdictApproved)) {
		verdict = id.VerdictApproved
	} else if strings.Contains(outcome.Raw, string(id.VerdictRejected)) {
		verdict = id.VerdictRejected
	}
	return Synthesis{
		Verdict:    verdict,
		Confidence: degradedConfidence,
		Reasoning:  outcome.Raw,
		Degraded:   true,
	}
}
