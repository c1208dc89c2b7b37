// Package engine runs the AI decision pipeline: embed the document, search
// for neighbors, score bias, classify, and derive explainability. Every
// document that enters the pipeline leaves with a decision; failures degrade
// to an escalation fallback rather than surfacing to the caller.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kycgate/internal/bias"
	"kycgate/internal/engine/metrics"
	"kycgate/internal/engine/ports"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
)

const (
	defaultModelVersion    = "doc-classifier-v2"
	fallbackModelVersion   = "error-fallback"
	defaultNeighborK       = 10
	defaultClassifyTimeout = 30 * time.Second
)

// auditEmitter is the write-only audit collaborator. Emit never returns an
// error; sink failures are absorbed by the publisher.
type auditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// Service orchestrates the decision pipeline. Constructed once at startup
// and shared; it holds no per-document state.
type Service struct {
	classifier ports.Classifier
	search     ports.NeighborSearch
	embedder   ports.Embedder

	auditor         auditEmitter
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	modelVersion    string
	neighborK       int
	classifyTimeout time.Duration
	now             func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditEmitter sets the audit publisher decisions are recorded through.
func WithAuditEmitter(emitter auditEmitter) Option {
	return func(s *Service) { s.auditor = emitter }
}

// WithModelVersion overrides the model version tag recorded on decisions.
func WithModelVersion(v string) Option {
	return func(s *Service) { s.modelVersion = v }
}

// WithNeighborK overrides how many neighbors are fetched for bias analysis.
func WithNeighborK(k int) Option {
	return func(s *Service) { s.neighborK = k }
}

// WithClassifyTimeout bounds each classifier call. Expiry is treated the
// same as any classifier failure.
func WithClassifyTimeout(d time.Duration) Option {
	return func(s *Service) { s.classifyTimeout = d }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the engine service.
func New(classifier ports.Classifier, search ports.NeighborSearch, embedder ports.Embedder, opts ...Option) (*Service, error) {
	if classifier == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "classifier is required")
	}
	if search == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "neighbor search is required")
	}
	if embedder == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "embedder is required")
	}

	s := &Service{
		classifier:      classifier,
		search:          search,
		embedder:        embedder,
		tracer:          otel.Tracer("kycgate/internal/engine"),
		modelVersion:    defaultModelVersion,
		neighborK:       defaultNeighborK,
		classifyTimeout: defaultClassifyTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MakeDecision runs the full pipeline for one document. It always returns a
// decision: any pipeline failure produces the terminal escalation fallback
// instead of an error.
func (s *Service) MakeDecision(ctx context.Context, actor id.Actor, documentID id.DocumentID, extractedText string, docType id.DocumentType) *AIDecision {
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "engine.MakeDecision",
		trace.WithAttributes(
			attribute.String("document.id", documentID.String()),
			attribute.String("document.type", string(docType)),
		))
	defer span.End()

	decision, err := s.runPipeline(ctx, extractedText, docType, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "decision pipeline failed, escalating",
				"document_id", documentID,
				"error", err,
			)
		}
		s.metrics.IncFallback()

		decision = s.fallbackDecision(err, start)
		s.emitDecisionAudit(ctx, actor, documentID, decision, audit.ActionDecisionFallback, false)
		s.metrics.ObserveDecisionLatency(s.now().Sub(start))
		return decision
	}

	span.SetAttributes(
		attribute.String("decision.verdict", string(decision.Verdict)),
		attribute.Float64("decision.confidence", decision.Confidence),
		attribute.Float64("decision.bias_score", decision.BiasAnalysis.Score),
	)

	s.emitDecisionAudit(ctx, actor, documentID, decision, audit.ActionAIDecisionMade, true)
	s.metrics.ObserveDecisionLatency(s.now().Sub(start))
	return decision
}

func (s *Service) runPipeline(ctx context.Context, extractedText string, docType id.DocumentType, start time.Time) (*AIDecision, error) {
	embedding, err := s.embedder.Embed(ctx, extractedText)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}

	neighbors, err := s.search.FindNeighbors(ctx, embedding, docType, s.neighborK)
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	analysis := bias.Analyze(extractedText, docType, neighbors)

	prompt := BuildPrompt(extractedText, docType, analysis, len(neighbors))

	classifyCtx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	classifyStart := s.now()
	raw, err := s.classifier.Classify(classifyCtx, prompt)
	s.metrics.ObserveClassifyLatency(s.now().Sub(classifyStart))
	if err != nil {
		return nil, fmt.Errorf("classify document: %w", err)
	}

	synthesis := Synthesize(InterpretResponse(raw))

	mode := "parsed"
	if synthesis.Degraded {
		mode = "degraded"
	}
	s.metrics.IncVerdict(string(synthesis.Verdict), mode)

	report := Explain(synthesis, analysis, neighbors, extractedText, s.modelVersion, s.now())

	return &AIDecision{
		Verdict:        synthesis.Verdict,
		Confidence:     synthesis.Confidence,
		Reasoning:      synthesis.Reasoning,
		BiasAnalysis:   analysis,
		Explainability: report,
		ProcessingTime: s.now().Sub(start),
		ModelVersion:   s.modelVersion,
	}, nil
}

// fallbackDecision is the terminal decision produced when the pipeline
// fails. The document is routed to manual review, never dropped.
func (s *Service) fallbackDecision(cause error, start time.Time) *AIDecision {
	return &AIDecision{
		Verdict:    id.VerdictEscalate,
		Confidence: 0,
		Reasoning:  "AI processing failed - escalated for manual review",
		BiasAnalysis: bias.Analysis{
			Score:           0,
			Factors:         []string{"Processing error"},
			Confidence:      0,
			Recommendations: []string{"Manual review required"},
		},
		Explainability: Report{
			DecisionFactors:      []string{"System error"},
			ConfidenceInterval:   Interval{Min: 0, Max: 0},
			AlternativeScenarios: []string{"Manual review"},
			RiskAssessment:       "High - System error",
			AuditTrail: []string{
				fmt.Sprintf("Error at %s: %v", s.now().UTC().Format(time.RFC3339), cause),
			},
		},
		ProcessingTime: s.now().Sub(start),
		ModelVersion:   fallbackModelVersion,
	}
}

func (s *Service) emitDecisionAudit(ctx context.Context, actor id.Actor, documentID id.DocumentID, decision *AIDecision, action string, success bool) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{
		ActorID:      actor.UserID,
		Role:         actor.Role,
		Action:       action,
		ResourceType: audit.ResourceDocument,
		ResourceID:   documentID.String(),
		Success:      success,
		Details: map[string]any{
			"verdict":         string(decision.Verdict),
			"confidence":      decision.Confidence,
			"bias_score":      decision.BiasAnalysis.Score,
			"processing_time": decision.ProcessingTime.String(),
			"model_version":   decision.ModelVersion,
		},
	}
	audit.EnrichFromContext(ctx, &entry)
	s.auditor.Emit(ctx, entry)
}

// RequestRetrain records reviewer feedback for a misclassified document so a
// later training run can pick it up. The only side effect today is the audit
// record.
func (s *Service) RequestRetrain(ctx context.Context, actor id.Actor, documentID id.DocumentID, correctVerdict id.Verdict) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{
		ActorID:      actor.UserID,
		Role:         actor.Role,
		Action:       audit.ActionRetrainRequested,
		ResourceType: audit.ResourceAIModel,
		ResourceID:   "decision-engine",
		Success:      true,
		Details: map[string]any{
			"document_id":     documentID.String(),
			"correct_verdict": string(correctVerdict),
		},
	}
	audit.EnrichFromContext(ctx, &entry)
	s.auditor.Emit(ctx, entry)
}
