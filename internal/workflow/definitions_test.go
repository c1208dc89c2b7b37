package workflow

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/rbac"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// =============================================================================
// Workflow Definitions Test Suite
// =============================================================================
// Justification for unit tests: step routing is a pure scan over static
// configuration. The optional-step semantics (skipped on approval, entered on
// escalation) drive every instance's path and deserve direct coverage.

type DefinitionsSuite struct {
	suite.Suite
}

func TestDefinitionsSuite(t *testing.T) {
	suite.Run(t, new(DefinitionsSuite))
}

func (s *DefinitionsSuite) TestSteps() {
	s.Run("known workflows resolve in order", func() {
		steps, err := Steps(WorkflowDocumentProcessing)
		s.Require().NoError(err)
		s.Len(steps, 5)
		s.Equal(StepUpload, steps[0].ID)
		s.Equal(StepCCOOversight, steps[4].ID)
	})

	s.Run("unknown workflow is a configuration error", func() {
		_, err := Steps(WorkflowType("reconciliation"))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *DefinitionsSuite) TestFindStep() {
	step, err := FindStep(WorkflowDocumentProcessing, StepOfficerReview)
	s.Require().NoError(err)
	s.Equal(3, step.Position)
	s.True(step.IsRequired)

	_, err = FindStep(WorkflowDocumentProcessing, "signature_check")
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *DefinitionsSuite) TestNextStep() {
	mustFind := func(stepID string) Step {
		step, err := FindStep(WorkflowDocumentProcessing, stepID)
		s.Require().NoError(err)
		return step
	}

	s.Run("approval scans forward to the next required step", func() {
		next, ok := NextStep(WorkflowDocumentProcessing, mustFind(StepUpload), OutcomeApproved)
		s.True(ok)
		s.Equal(StepAIClassification, next.ID)
	})

	s.Run("approval skips optional steps entirely", func() {
		_, ok := NextStep(WorkflowDocumentProcessing, mustFind(StepOfficerReview), OutcomeApproved)
		s.False(ok)
	})

	s.Run("escalation enters the next optional step", func() {
		next, ok := NextStep(WorkflowDocumentProcessing, mustFind(StepOfficerReview), OutcomeEscalated)
		s.True(ok)
		s.Equal(StepManagerApproval, next.ID)

		next, ok = NextStep(WorkflowDocumentProcessing, next, OutcomeEscalated)
		s.True(ok)
		s.Equal(StepCCOOversight, next.ID)
	})

	s.Run("escalation past the last optional step ends the workflow", func() {
		_, ok := NextStep(WorkflowDocumentProcessing, mustFind(StepCCOOversight), OutcomeEscalated)
		s.False(ok)
	})

	s.Run("rejection never routes forward", func() {
		_, ok := NextStep(WorkflowDocumentProcessing, mustFind(StepUpload), OutcomeRejected)
		s.False(ok)
	})
}

func (s *DefinitionsSuite) TestNextStatus() {
	s.Run("graph covers the maker-checker protocol", func() {
		next, ok := NextStatus(StatusAIProposed, string(id.OfficerAgree))
		s.True(ok)
		s.Equal(StatusFinal, next)

		next, ok = NextStatus(StatusAIProposed, string(id.OfficerDisagree))
		s.True(ok)
		s.Equal(StatusPendingManagerApproval, next)

		next, ok = NextStatus(StatusPendingManagerApproval, string(id.ManagerEscalate))
		s.True(ok)
		s.Equal(StatusCCOEscalated, next)
	})

	s.Run("terminal state has no outgoing edges", func() {
		for _, action := range []string{
			string(id.OfficerAgree), string(id.OfficerDisagree),
			string(id.ManagerApprove), string(id.ManagerReject), string(id.ManagerEscalate),
		} {
			_, ok := NextStatus(StatusFinal, action)
			s.False(ok)
		}
	})
}

func (s *DefinitionsSuite) TestValidateDefinitions() {
	model, err := rbac.NewModel()
	s.Require().NoError(err)
	s.NoError(ValidateDefinitions(model))
}
