package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/rbac"
	"kycgate/internal/workflow"
	"kycgate/internal/workflow/store/memory"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	auditmem "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/audit/publisher"
)

// =============================================================================
// Workflow Engine Test Suite
// =============================================================================
// Justification for unit tests: the maker-checker protocol is the core
// control of the system. The state graph, the permission gates, and the
// no-partial-mutation guarantee on denial all have to hold exactly, and all
// of them are pure coordination logic testable without infrastructure.

type EngineSuite struct {
	suite.Suite
	store      *memory.Store
	auditStore *auditmem.InMemoryStore
	engine     *workflow.Engine
	now        time.Time

	officer id.Actor
	manager id.Actor
	cco     id.Actor
	auditor id.Actor
	system  id.Actor
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.store = memory.New()
	s.auditStore = auditmem.NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	model, err := rbac.NewModel()
	s.Require().NoError(err)

	s.engine, err = workflow.New(s.store, model,
		workflow.WithAuditEmitter(publisher.New(s.auditStore)),
		workflow.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	s.officer = id.Actor{UserID: id.NewUserID(), Role: id.RoleComplianceOfficer}
	s.manager = id.Actor{UserID: id.NewUserID(), Role: id.RoleComplianceManager}
	s.cco = id.Actor{UserID: id.NewUserID(), Role: id.RoleCCO}
	s.auditor = id.Actor{UserID: id.NewUserID(), Role: id.RoleInternalAuditor}
	s.system = id.Actor{Role: id.RoleSystem}
}

func (s *EngineSuite) propose(conf float64) *workflow.DecisionRecord {
	record, err := s.engine.ProposeDecision(context.Background(), id.NewDocumentID(), workflow.Proposal{
		Verdict:      id.VerdictApproved,
		Confidence:   conf,
		Reasoning:    "Document matches reference corpus",
		BiasScore:    0.1,
		ModelVersion: "doc-classifier-v2",
	})
	s.Require().NoError(err)
	return record
}

func (s *EngineSuite) deniedEntries() []audit.Entry {
	var out []audit.Entry
	for _, e := range s.auditStore.All() {
		if e.Action == audit.ActionWorkflowAccessDenied {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *EngineSuite) TestNew() {
	model, err := rbac.NewModel()
	s.Require().NoError(err)

	s.Run("nil store returns error", func() {
		_, err := workflow.New(nil, model)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("nil model returns error", func() {
		_, err := workflow.New(memory.New(), nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Decision Proposal Tests
// =============================================================================

func (s *EngineSuite) TestProposeDecision() {
	s.Run("opens record in AI-proposed state", func() {
		record := s.propose(0.9)
		s.Equal(workflow.StatusAIProposed, record.Status)
		s.Equal(id.VerdictApproved, record.AIVerdict)
		s.Nil(record.FinalVerdict)
	})

	s.Run("second in-flight decision for same document conflicts", func() {
		docID := id.NewDocumentID()
		proposal := workflow.Proposal{Verdict: id.VerdictApproved, Confidence: 0.9}

		_, err := s.engine.ProposeDecision(context.Background(), docID, proposal)
		s.Require().NoError(err)

		_, err = s.engine.ProposeDecision(context.Background(), docID, proposal)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("confidence out of range rejected", func() {
		_, err := s.engine.ProposeDecision(context.Background(), id.NewDocumentID(), workflow.Proposal{
			Verdict:    id.VerdictApproved,
			Confidence: 1.2,
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid verdict rejected", func() {
		_, err := s.engine.ProposeDecision(context.Background(), id.NewDocumentID(), workflow.Proposal{
			Verdict:    id.Verdict("MAYBE"),
			Confidence: 0.9,
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Officer Review Tests (Maker)
// =============================================================================

func (s *EngineSuite) TestOfficerReview() {
	s.Run("agreement finalizes with the AI verdict", func() {
		record := s.propose(0.9)

		updated, err := s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerAgree, "verified against source documents")
		s.Require().NoError(err)

		s.Equal(workflow.StatusFinal, updated.Status)
		s.Require().NotNil(updated.FinalVerdict)
		s.Equal(id.VerdictApproved, *updated.FinalVerdict)
		s.Equal(s.officer.UserID, updated.OfficerID)
		s.Require().NotNil(updated.OfficerTimestamp)
		s.Equal(s.now, *updated.OfficerTimestamp)
	})

	s.Run("disagreement routes to manager approval", func() {
		record := s.propose(0.9)

		updated, err := s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerDisagree, "signature mismatch")
		s.Require().NoError(err)

		s.Equal(workflow.StatusPendingManagerApproval, updated.Status)
		s.Nil(updated.FinalVerdict)
	})

	s.Run("review of a finalized record is rejected", func() {
		record := s.propose(0.9)
		_, err := s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerAgree, "ok")
		s.Require().NoError(err)

		_, err = s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerAgree, "again")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown decision returns not found", func() {
		_, err := s.engine.OfficerReview(context.Background(), s.officer,
			id.NewDecisionID(), id.OfficerAgree, "ok")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("denied role leaves the record untouched", func() {
		record := s.propose(0.9)
		before, err := s.engine.GetDecision(context.Background(), record.ID)
		s.Require().NoError(err)

		_, err = s.engine.OfficerReview(context.Background(), s.auditor,
			record.ID, id.OfficerAgree, "ok")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		after, err := s.engine.GetDecision(context.Background(), record.ID)
		s.Require().NoError(err)
		s.Equal(before, after)

		s.NotEmpty(s.deniedEntries())
	})
}

// =============================================================================
// Manager Decision Tests (Checker)
// =============================================================================

func (s *EngineSuite) TestManagerDecide() {
	pending := func() *workflow.DecisionRecord {
		record := s.propose(0.9)
		updated, err := s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerDisagree, "needs a second look")
		s.Require().NoError(err)
		return updated
	}

	s.Run("approval finalizes as approved", func() {
		record := pending()
		updated, err := s.engine.ManagerDecide(context.Background(), s.manager,
			record.ID, id.ManagerApprove, "officer concern not substantiated")
		s.Require().NoError(err)

		s.Equal(workflow.StatusFinal, updated.Status)
		s.Require().NotNil(updated.FinalVerdict)
		s.Equal(id.VerdictApproved, *updated.FinalVerdict)
		s.Equal(s.manager.UserID, updated.ManagerID)
	})

	s.Run("rejection finalizes as rejected", func() {
		record := pending()
		updated, err := s.engine.ManagerDecide(context.Background(), s.manager,
			record.ID, id.ManagerReject, "officer concern confirmed")
		s.Require().NoError(err)

		s.Equal(workflow.StatusFinal, updated.Status)
		s.Require().NotNil(updated.FinalVerdict)
		s.Equal(id.VerdictRejected, *updated.FinalVerdict)
	})

	s.Run("escalation hands the record to the executive", func() {
		record := pending()
		updated, err := s.engine.ManagerDecide(context.Background(), s.manager,
			record.ID, id.ManagerEscalate, "conflicting evidence")
		s.Require().NoError(err)

		s.Equal(workflow.StatusCCOEscalated, updated.Status)
		s.Nil(updated.FinalVerdict)
	})

	s.Run("officer cannot act as checker", func() {
		record := pending()
		_, err := s.engine.ManagerDecide(context.Background(), s.officer,
			record.ID, id.ManagerApprove, "self-approval attempt")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("manager action outside pending state is rejected", func() {
		record := s.propose(0.9)
		_, err := s.engine.ManagerDecide(context.Background(), s.manager,
			record.ID, id.ManagerApprove, "too early")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

// =============================================================================
// Executive Decision Tests
// =============================================================================

func (s *EngineSuite) TestExecutiveDecide() {
	escalated := func() *workflow.DecisionRecord {
		record := s.propose(0.9)
		_, err := s.engine.OfficerReview(context.Background(), s.officer,
			record.ID, id.OfficerDisagree, "disputed")
		s.Require().NoError(err)
		updated, err := s.engine.ManagerDecide(context.Background(), s.manager,
			record.ID, id.ManagerEscalate, "needs executive call")
		s.Require().NoError(err)
		return updated
	}

	s.Run("executive approval resolves the escalation", func() {
		record := escalated()
		updated, err := s.engine.ExecutiveDecide(context.Background(), s.cco,
			record.ID, id.ManagerApprove, "risk acceptable")
		s.Require().NoError(err)

		s.Equal(workflow.StatusFinal, updated.Status)
		s.Require().NotNil(updated.FinalVerdict)
		s.Equal(id.VerdictApproved, *updated.FinalVerdict)
	})

	s.Run("further escalation is not a choice", func() {
		record := escalated()
		_, err := s.engine.ExecutiveDecide(context.Background(), s.cco,
			record.ID, id.ManagerEscalate, "pass it on")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("manager cannot resolve an escalation", func() {
		record := escalated()
		_, err := s.engine.ExecutiveDecide(context.Background(), s.manager,
			record.ID, id.ManagerApprove, "not my call")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Advisory Validation Tests
// =============================================================================

func (s *EngineSuite) TestValidateAIDecision() {
	s.Run("officer lacks approval capability", func() {
		violations := s.engine.ValidateAIDecision(s.officer, workflow.Proposal{
			Verdict:    id.VerdictApproved,
			Confidence: 0.9,
		})
		s.Contains(violations, "User lacks permission to approve documents")
	})

	s.Run("high bias flags manual review", func() {
		violations := s.engine.ValidateAIDecision(s.manager, workflow.Proposal{
			Verdict:    id.VerdictApproved,
			Confidence: 0.9,
			BiasScore:  0.85,
		})
		s.Contains(violations, "High bias score requires manual review")
	})

	s.Run("low confidence flags escalation", func() {
		violations := s.engine.ValidateAIDecision(s.manager, workflow.Proposal{
			Verdict:    id.VerdictApproved,
			Confidence: 0.4,
		})
		s.Contains(violations, "Low confidence decisions require escalation")
	})

	s.Run("capable actor with clean signals has no violations", func() {
		violations := s.engine.ValidateAIDecision(s.manager, workflow.Proposal{
			Verdict:    id.VerdictApproved,
			Confidence: 0.9,
			BiasScore:  0.1,
		})
		s.Empty(violations)
	})
}

// =============================================================================
// Workflow Instance Tests
// =============================================================================

func (s *EngineSuite) TestStartWorkflow() {
	s.Run("officer starts document processing at upload", func() {
		instance, err := s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, id.NewDocumentID())
		s.Require().NoError(err)

		s.Equal(workflow.StepUpload, instance.CurrentStep)
		s.Equal(workflow.InstanceActive, instance.Status)
		s.Len(instance.PendingSteps, 4)
		s.Len(instance.AuditTrail, 1)
	})

	s.Run("second active workflow for same document conflicts", func() {
		docID := id.NewDocumentID()
		_, err := s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, docID)
		s.Require().NoError(err)

		_, err = s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, docID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("executive cannot upload directly", func() {
		_, err := s.engine.StartWorkflow(context.Background(), s.cco,
			workflow.WorkflowDocumentProcessing, id.NewDocumentID())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *EngineSuite) TestExecuteStep() {
	start := func() *workflow.Instance {
		instance, err := s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, id.NewDocumentID())
		s.Require().NoError(err)
		return instance
	}

	advanceToReview := func() *workflow.Instance {
		instance := start()
		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepUpload, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)
		instance, err = s.engine.ExecuteStep(context.Background(), s.system,
			instance.ID, workflow.StepAIClassification, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)
		s.Equal(workflow.StepOfficerReview, instance.CurrentStep)
		return instance
	}

	s.Run("approvals walk the required steps and complete", func() {
		instance := advanceToReview()

		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)

		// Manager approval and CCO oversight are optional; a clean approval
		// at review completes the workflow.
		s.Equal(workflow.InstanceCompleted, instance.Status)
		s.Empty(instance.CurrentStep)
		s.Contains(instance.CompletedSteps, workflow.StepOfficerReview)
	})

	s.Run("escalation routes to the next optional step", func() {
		instance := advanceToReview()

		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeEscalated, nil)
		s.Require().NoError(err)

		s.Equal(workflow.StepManagerApproval, instance.CurrentStep)
		s.Equal(workflow.InstanceActive, instance.Status)
	})

	s.Run("rejection ends the workflow", func() {
		instance := advanceToReview()

		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeRejected,
			map[string]any{"reason": "document illegible"})
		s.Require().NoError(err)

		s.Equal(workflow.InstanceRejected, instance.Status)
		s.Empty(instance.CurrentStep)
	})

	s.Run("executing a step out of order is rejected", func() {
		instance := start()
		_, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeApproved, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("terminal instance accepts no further steps", func() {
		instance := advanceToReview()
		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeRejected, nil)
		s.Require().NoError(err)

		_, err = s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeApproved, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("denied role leaves the instance untouched", func() {
		instance := advanceToReview()
		before, err := s.engine.GetWorkflowStatus(context.Background(), instance.ID)
		s.Require().NoError(err)

		_, err = s.engine.ExecuteStep(context.Background(), s.auditor,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeApproved, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		after, err := s.engine.GetWorkflowStatus(context.Background(), instance.ID)
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("human actors cannot run the system classification step", func() {
		instance := start()
		instance, err := s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepUpload, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)

		_, err = s.engine.ExecuteStep(context.Background(), s.manager,
			instance.ID, workflow.StepAIClassification, workflow.OutcomeApproved, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Timeout Sweep Tests
// =============================================================================

func (s *EngineSuite) TestCheckTimeouts() {
	advanceToReview := func() *workflow.Instance {
		instance, err := s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, id.NewDocumentID())
		s.Require().NoError(err)
		instance, err = s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepUpload, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)
		instance, err = s.engine.ExecuteStep(context.Background(), s.system,
			instance.ID, workflow.StepAIClassification, workflow.OutcomeApproved, nil)
		s.Require().NoError(err)
		return instance
	}

	s.Run("overdue review step is surfaced, not auto-escalated", func() {
		instance := advanceToReview()

		s.now = s.now.Add(25 * time.Hour)
		breaches, err := s.engine.CheckTimeouts(context.Background())
		s.Require().NoError(err)

		s.Require().Len(breaches, 1)
		s.Equal(instance.ID, breaches[0].InstanceID)
		s.Equal(workflow.StepOfficerReview, breaches[0].StepID)
		s.Equal(time.Hour, breaches[0].Overdue)

		// The instance itself is untouched; escalation stays a human act.
		after, err := s.engine.GetWorkflowStatus(context.Background(), instance.ID)
		s.Require().NoError(err)
		s.Equal(workflow.InstanceActive, after.Status)
		s.Equal(workflow.StepOfficerReview, after.CurrentStep)

		// Finish the instance so later sweeps in this test start clean.
		_, err = s.engine.ExecuteStep(context.Background(), s.officer,
			instance.ID, workflow.StepOfficerReview, workflow.OutcomeRejected, nil)
		s.Require().NoError(err)
	})

	s.Run("steps without deadlines never breach", func() {
		_, err := s.engine.StartWorkflow(context.Background(), s.officer,
			workflow.WorkflowDocumentProcessing, id.NewDocumentID())
		s.Require().NoError(err)

		s.now = s.now.Add(1000 * time.Hour)
		breaches, err := s.engine.CheckTimeouts(context.Background())
		s.Require().NoError(err)
		s.Empty(breaches)
	})

	s.Run("step within its deadline does not breach", func() {
		advanceToReview()

		s.now = s.now.Add(23 * time.Hour)
		breaches, err := s.engine.CheckTimeouts(context.Background())
		s.Require().NoError(err)
		s.Empty(breaches)
	})
}

// =============================================================================
// Decision History Tests
// =============================================================================

func (s *EngineSuite) TestDecisionHistory() {
	docID := id.NewDocumentID()
	proposal := workflow.Proposal{Verdict: id.VerdictApproved, Confidence: 0.9}

	first, err := s.engine.ProposeDecision(context.Background(), docID, proposal)
	s.Require().NoError(err)
	_, err = s.engine.OfficerReview(context.Background(), s.officer,
		first.ID, id.OfficerAgree, "ok")
	s.Require().NoError(err)

	s.now = s.now.Add(time.Minute)
	second, err := s.engine.ProposeDecision(context.Background(), docID, proposal)
	s.Require().NoError(err)

	history, err := s.engine.DecisionHistory(context.Background(), docID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(first.ID, history[0].ID)
	s.Equal(second.ID, history[1].ID)
}
