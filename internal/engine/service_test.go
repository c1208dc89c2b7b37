package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/engine/mocks"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/audit"
	auditmem "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/audit/publisher"
)

// =============================================================================
// Engine Service Test Suite
// =============================================================================
// Justification for unit tests: the fallback contract (every document gets a
// decision, classifier failures never surface) is the engine's core guarantee
// and can only be exercised precisely with failing collaborators.

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	classifier *mocks.MockClassifier
	search     *mocks.MockNeighborSearch
	embedder   *mocks.MockEmbedder
	auditStore *auditmem.InMemoryStore
	service    *Service
	actor      id.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.search = mocks.NewMockNeighborSearch(s.ctrl)
	s.embedder = mocks.NewMockEmbedder(s.ctrl)
	s.auditStore = auditmem.NewInMemoryStore()
	s.actor = id.Actor{UserID: id.NewUserID(), Role: id.RoleComplianceOfficer}

	var err error
	s.service, err = New(s.classifier, s.search, s.embedder,
		WithAuditEmitter(publisher.New(s.auditStore)),
	)
	s.Require().NoError(err)
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil classifier returns error", func() {
		_, err := New(nil, s.search, s.embedder)
		s.Error(err)
		s.Contains(err.Error(), "classifier is required")
	})

	s.Run("nil neighbor search returns error", func() {
		_, err := New(s.classifier, nil, s.embedder)
		s.Error(err)
	})

	s.Run("nil embedder returns error", func() {
		_, err := New(s.classifier, s.search, nil)
		s.Error(err)
	})
}

// =============================================================================
// MakeDecision Tests
// =============================================================================

func (s *ServiceSuite) TestMakeDecision() {
	ctx := context.Background()
	docID := id.NewDocumentID()
	embedding := []float32{0.1, 0.2, 0.3}

	s.Run("happy path produces a parsed approval", func() {
		s.embedder.EXPECT().Embed(gomock.Any(), "complete passport scan with all fields present and legible").Return(embedding, nil)
		s.search.EXPECT().FindNeighbors(gomock.Any(), embedding, id.DocTypePassport, defaultNeighborK).Return([]id.Neighbor{}, nil)
		s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
			Return(`{"verdict":"APPROVED","confidence":0.91,"reasoning":"authentic"}`, nil)

		decision := s.service.MakeDecision(ctx, s.actor, docID, "complete passport scan with all fields present and legible", id.DocTypePassport)

		s.Equal(id.VerdictApproved, decision.Verdict)
		s.InDelta(0.91, decision.Confidence, 1e-9)
		s.Equal("authentic", decision.Reasoning)
		s.NotEqual(fallbackModelVersion, decision.ModelVersion)

		entries := s.auditStore.All()
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionAIDecisionMade, entries[0].Action)
		s.True(entries[0].Success)
	})

	s.Run("classifier failure yields the terminal escalation fallback", func() {
		s.auditStore.Clear()
		s.embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(embedding, nil)
		s.search.EXPECT().FindNeighbors(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
			Return("", context.DeadlineExceeded)

		decision := s.service.MakeDecision(ctx, s.actor, docID, "some text", id.DocTypePAN)

		s.Equal(id.VerdictEscalate, decision.Verdict)
		s.Zero(decision.Confidence)
		s.Equal("AI processing failed - escalated for manual review", decision.Reasoning)
		s.Equal(fallbackModelVersion, decision.ModelVersion)
		s.Equal([]string{"Processing error"}, decision.BiasAnalysis.Factors)
		s.Equal("High - System error", decision.Explainability.RiskAssessment)

		entries := s.auditStore.All()
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionDecisionFallback, entries[0].Action)
		s.False(entries[0].Success)
	})

	s.Run("embedding failure also falls back instead of erroring", func() {
		s.auditStore.Clear()
		s.embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(nil, errors.New("embedding service down"))

		decision := s.service.MakeDecision(ctx, s.actor, docID, "some text", id.DocTypePAN)

		s.Equal(id.VerdictEscalate, decision.Verdict)
		s.Equal(fallbackModelVersion, decision.ModelVersion)
	})

	s.Run("unstructured response degrades to keyword verdict", func() {
		s.auditStore.Clear()
		s.embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return(embedding, nil)
		s.search.EXPECT().FindNeighbors(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		s.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
			Return("after inspection this should be REJECTED due to tampering", nil)

		decision := s.service.MakeDecision(ctx, s.actor, docID, "some text", id.DocTypePAN)

		s.Equal(id.VerdictRejected, decision.Verdict)
		s.InDelta(degradedConfidence, decision.Confidence, 1e-9)
	})
}

// =============================================================================
// RequestRetrain Tests
// =============================================================================

func (s *ServiceSuite) TestRequestRetrain() {
	s.auditStore.Clear()
	docID := id.NewDocumentID()

	s.service.RequestRetrain(context.Background(), s.actor, docID, id.VerdictRejected)

	entries := s.auditStore.All()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionRetrainRequested, entries[0].Action)
	s.Equal(docID.String(), entries[0].Details["document_id"])
}
