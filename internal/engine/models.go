package engine

import (
	"time"

	"kycgate/internal/bias"
	id "kycgate/pkg/domain"
)

// AIDecision is one processing attempt's complete outcome: the provisional
// verdict plus everything needed to explain and audit it. Immutable once
// recorded; later human actions produce separate decision records, never
// mutations of this one.
type AIDecision struct {
	Verdict        id.Verdict
	Confidence     float64
	Reasoning      string
	BiasAnalysis   bias.Analysis
	Explainability Report
	ProcessingTime time.Duration
	ModelVersion   string
}

// Interval is a closed confidence interval, both ends clamped to [0,1].
type Interval struct {
	Min float64
	Max float64
}

// Report is the explainability derivation attached to every AI decision.
type Report struct {
	DecisionFactors      []string
	ConfidenceInterval   Interval
	AlternativeScenarios []string
	RiskAssessment       string
	AuditTrail           []string
}

// Risk tiers derived from the bias score.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// OutcomeKind tags how a classifier response was interpreted.
type OutcomeKind int

const (
	// OutcomeParsed means the response carried the expected structured
	// verdict, confidence, and reasoning.
	OutcomeParsed OutcomeKind = iota

	// OutcomeDegraded means structured parsing failed and the verdict was
	// recovered by scanning the raw text for verdict keywords.
	OutcomeDegraded
)

// ClassifierOutcome is the tagged result of interpreting a raw classifier
// response: either Parsed is valid, or the keyword fallback ran over Raw.
type ClassifierOutcome struct {
	Kind   OutcomeKind
	Parsed ParsedResponse
	Raw    string
}

// ParsedResponse is the structured shape the classifier is instructed to
// return.
type ParsedResponse struct {
	Verdict    id.Verdict
	Confidence float64
	Reasoning  string
}

// Synthesis is the provisional verdict produced from classifier output and
// bias analysis, before explainability is derived.
type Synthesis struct {
	Verdict    id.Verdict
	Confidence float64
	Reasoning  string
	Degraded   bool
}
