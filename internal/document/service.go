// Package document orchestrates the intake pipeline: upload, AI processing
// with duplicate detection, and the human review entry points that drive the
// decision protocol. It composes the decision engine and the workflow engine;
// the status a document ends up with is this package's side effect.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kycgate/internal/engine"
	"kycgate/internal/workflow"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
)

const (
	// duplicateThreshold is the cosine score above which two embeddings are
	// treated as the same document resubmitted.
	duplicateThreshold = 0.95

	// batchConcurrency bounds parallel items in a bulk run.
	batchConcurrency = 4
)

// decisionMaker is the slice of the AI engine this package needs.
type decisionMaker interface {
	MakeDecision(ctx context.Context, actor id.Actor, documentID id.DocumentID, extractedText string, docType id.DocumentType) *engine.AIDecision
}

// decisionProtocol is the slice of the workflow engine this package needs.
type decisionProtocol interface {
	ProposeDecision(ctx context.Context, documentID id.DocumentID, proposal workflow.Proposal) (*workflow.DecisionRecord, error)
	ActiveDecisionForDocument(ctx context.Context, documentID id.DocumentID) (*workflow.DecisionRecord, error)
	OfficerReview(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.OfficerAction, comment string) (*workflow.DecisionRecord, error)
	ManagerDecide(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.ManagerAction, justification string) (*workflow.DecisionRecord, error)
	ExecutiveDecide(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.ManagerAction, justification string) (*workflow.DecisionRecord, error)
}

// embedder matches the engine's embedder port; the service shares the cached
// instance with the engine.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// auditEmitter is the write-only audit collaborator.
type auditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// Service runs the document pipeline.
type Service struct {
	docs     Store
	decider  decisionMaker
	protocol decisionProtocol
	embedder embedder
	index    VectorIndex

	auditor auditEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditEmitter sets the audit publisher document events are recorded
// through.
func WithAuditEmitter(emitter auditEmitter) Option {
	return func(s *Service) { s.auditor = emitter }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the document service.
func New(docs Store, decider decisionMaker, protocol decisionProtocol, emb embedder, index VectorIndex, opts ...Option) (*Service, error) {
	if docs == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document store is required")
	}
	if decider == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "decision engine is required")
	}
	if protocol == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "workflow engine is required")
	}
	if emb == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "embedder is required")
	}
	if index == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vector index is required")
	}

	s := &Service{
		docs:     docs,
		decider:  decider,
		protocol: protocol,
		embedder: emb,
		index:    index,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UploadParams is the metadata accompanying an uploaded document.
type UploadParams struct {
	FileName string
	Type     id.DocumentType
	Priority Priority
	OCRText  string
}

// Upload registers a new document in the uploaded state. File bytes are
// assumed to already sit in object storage under the returned path.
func (s *Service) Upload(ctx context.Context, actor id.Actor, params UploadParams) (*Document, error) {
	if !params.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid document type")
	}
	if params.FileName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if params.Priority == "" {
		params.Priority = PriorityNormal
	}

	now := s.now()
	doc := &Document{
		ID:         id.NewDocumentID(),
		Type:       params.Type,
		Status:     id.DocStatusUploaded,
		Priority:   params.Priority,
		UploadedBy: actor.UserID,
		FileName:   params.FileName,
		FilePath:   fmt.Sprintf("%s/%d_%s", actor.UserID, now.UnixMilli(), params.FileName),
		OCRText:    params.OCRText,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create document")
	}

	s.emit(ctx, actor, audit.ActionDocumentUploaded, audit.ResourceDocument, doc.ID.String(), true, map[string]any{
		"document_type": string(doc.Type),
		"file_name":     doc.FileName,
		"priority":      string(doc.Priority),
	})
	return doc, nil
}

// Process runs the AI pipeline for one uploaded document and opens its
// decision record. Duplicate submissions from the same uploader force an
// escalation verdict regardless of what the classifier said.
func (s *Service) Process(ctx context.Context, actor id.Actor, documentID id.DocumentID) (*Result, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}

	text := doc.OCRText
	if text == "" {
		text = sampleText(doc.Type)
	}

	result, err := s.runPipeline(ctx, actor, doc, text)
	if err != nil {
		s.emit(ctx, actor, audit.ActionDocumentProcessed, audit.ResourceDocument, doc.ID.String(), false, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	s.emit(ctx, actor, audit.ActionDocumentProcessed, audit.ResourceDocument, doc.ID.String(), true, map[string]any{
		"verdict":          string(result.Verdict),
		"confidence":       result.Confidence,
		"duplicates_found": result.DuplicatesFound,
	})
	return result, nil
}

func (s *Service) runPipeline(ctx context.Context, actor id.Actor, doc *Document, text string) (*Result, error) {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "embed document")
	}

	duplicates, err := s.index.FindDuplicates(ctx, embedding, doc.UploadedBy, duplicateThreshold)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "duplicate check")
	}

	// The engine never fails; a broken pipeline yields the escalation
	// fallback decision.
	decision := s.decider.MakeDecision(ctx, actor, doc.ID, text, doc.Type)

	proposal := workflow.Proposal{
		Verdict:      decision.Verdict,
		Confidence:   decision.Confidence,
		Reasoning:    decision.Reasoning,
		BiasScore:    decision.BiasAnalysis.Score,
		ModelVersion: decision.ModelVersion,
	}
	status := id.DocStatusClassified
	if len(duplicates) > 0 {
		proposal.Verdict = id.VerdictEscalate
		proposal.Reasoning = "Possible duplicate detected. " + decision.Reasoning
		status = id.DocStatusNeedsReview
	}

	if _, err := s.protocol.ProposeDecision(ctx, doc.ID, proposal); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.index.Upsert(ctx, doc.ID, embedding, VectorMetadata{
		DocumentType: doc.Type,
		OwnerID:      doc.UploadedBy,
		Status:       status,
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		// The decision record already exists; a missing vector only
		// degrades future similarity search.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "vector upsert failed",
				"document_id", doc.ID, "error", err)
		}
	}

	updated := doc.Clone()
	updated.Status = status
	updated.OCRText = text
	updated.OCRConfidence = decision.Confidence
	updated.UpdatedAt = now
	if err := s.docs.Update(ctx, updated); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update document")
	}

	return &Result{
		DocumentID:      doc.ID,
		Verdict:         proposal.Verdict,
		Confidence:      proposal.Confidence,
		DuplicatesFound: len(duplicates),
	}, nil
}

// ProcessBatch runs Process over many documents in parallel. Items fail
// independently: one broken document never aborts its siblings, and the
// returned slice keeps input order.
func (s *Service) ProcessBatch(ctx context.Context, actor id.Actor, documentIDs []id.DocumentID) []Result {
	results := make([]Result, len(documentIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, docID := range documentIDs {
		g.Go(func() error {
			result, err := s.Process(ctx, actor, docID)
			if err != nil {
				results[i] = Result{DocumentID: docID, Err: err}
				return nil
			}
			results[i] = *result
			return nil
		})
	}
	// Workers only ever return nil; the group is used for bounding and
	// context propagation.
	_ = g.Wait()

	successful := 0
	for _, r := range results {
		if r.Err == nil {
			successful++
		}
	}
	s.emit(ctx, actor, audit.ActionBatchProcessed, audit.ResourceDocument, "", true, map[string]any{
		"total":      len(documentIDs),
		"successful": successful,
		"failed":     len(documentIDs) - successful,
	})
	return results
}

// Review applies an officer's verdict on the document's in-flight decision
// and reflects the outcome on the document status.
func (s *Service) Review(ctx context.Context, actor id.Actor, documentID id.DocumentID, action id.OfficerAction, comment string) (*workflow.DecisionRecord, error) {
	record, err := s.protocol.ActiveDecisionForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.protocol.OfficerReview(ctx, actor, record.ID, action, comment)
	if err != nil {
		return nil, err
	}

	status := id.DocStatusNeedsReview
	if updated.FinalVerdict != nil {
		status = id.StatusForVerdict(*updated.FinalVerdict)
	}
	if err := s.setStatus(ctx, documentID, status); err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve applies a manager's decision on the document's in-flight record.
// An escalation leaves the document status untouched; the record moves to
// the executive instead.
func (s *Service) Approve(ctx context.Context, actor id.Actor, documentID id.DocumentID, action id.ManagerAction, justification string) (*workflow.DecisionRecord, error) {
	record, err := s.protocol.ActiveDecisionForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.protocol.ManagerDecide(ctx, actor, record.ID, action, justification)
	if err != nil {
		return nil, err
	}

	if updated.FinalVerdict != nil {
		if err := s.setStatus(ctx, documentID, id.StatusForVerdict(*updated.FinalVerdict)); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// ResolveEscalation applies the executive's decision on an escalated record.
func (s *Service) ResolveEscalation(ctx context.Context, actor id.Actor, documentID id.DocumentID, action id.ManagerAction, justification string) (*workflow.DecisionRecord, error) {
	record, err := s.protocol.ActiveDecisionForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.protocol.ExecutiveDecide(ctx, actor, record.ID, action, justification)
	if err != nil {
		return nil, err
	}

	if updated.FinalVerdict != nil {
		if err := s.setStatus(ctx, documentID, id.StatusForVerdict(*updated.FinalVerdict)); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, documentID id.DocumentID) (*Document, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}
	return doc, nil
}

func (s *Service) setStatus(ctx context.Context, documentID id.DocumentID, status id.DocumentStatus) error {
	doc, err := s.docs.Get(ctx, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}

	updated := doc.Clone()
	updated.Status = status
	updated.UpdatedAt = s.now()
	if err := s.docs.Update(ctx, updated); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update document status")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, actor id.Actor, action, resourceType, resourceID string, success bool, details map[string]any) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{
		ActorID:      actor.UserID,
		Role:         actor.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Success:      success,
		Details:      details,
	}
	audit.EnrichFromContext(ctx, &entry)
	s.auditor.Emit(ctx, entry)
}

// sampleText substitutes type-specific reference text when a document
// arrives without extracted text, keeping the pipeline exercisable before
// OCR integration.
func sampleText(docType id.DocumentType) string {
	switch docType {
	case id.DocTypePAN:
		return "Permanent Account Number Card. Name: SAMPLE HOLDER. Father's Name: SAMPLE FATHER. Date of Birth: 01/01/1990. PAN: ABCDE1234F."
	case id.DocTypeAadhaar:
		return "Government of India. Aadhaar. Name: Sample Holder. DOB: 01/01/1990. Gender: Unspecified. Aadhaar Number: 1234 5678 9012."
	case id.DocTypePassport:
		return "Republic of India Passport. Type P. Surname: HOLDER. Given Names: SAMPLE. Nationality: INDIAN. Passport No: A1234567."
	case id.DocTypeDrivingLicense:
		return "Driving Licence. Name: Sample Holder. DL No: DL-0120101234567. Valid Till: 01/01/2030. Class of Vehicle: LMV."
	case id.DocTypeVoterID:
		return "Election Commission of India. Elector Photo Identity Card. Name: Sample Holder. EPIC No: ABC1234567."
	default:
		return "Unclassified identity document submitted for verification."
	}
}
