// Package workflow runs the maker-checker decision protocol and the step
// workflows around it. Every human action is gated through the permission
// model and recorded in the audit stream; a denied action never touches
// stored state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kycgate/internal/rbac"
	"kycgate/internal/workflow/metrics"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
)

const (
	// biasManualReviewThreshold and confidenceEscalationFloor bound what the
	// advisory validation flags on a proposed decision.
	biasManualReviewThreshold = 0.8
	confidenceEscalationFloor = 0.6
)

// auditEmitter is the write-only audit collaborator. Emit never returns an
// error; sink failures are absorbed by the publisher.
type auditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// Proposal is the AI side of a new decision record, copied verbatim at
// creation and immutable afterwards.
type Proposal struct {
	Verdict      id.Verdict
	Confidence   float64
	Reasoning    string
	BiasScore    float64
	ModelVersion string
}

// Engine coordinates decision transitions and workflow instances. It owns
// no state beyond its collaborators; every operation loads, validates, and
// persists through the store.
type Engine struct {
	store Store
	model *rbac.Model

	auditor auditEmitter
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithLogger sets a logger for transition diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets workflow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAuditEmitter sets the audit publisher transitions are recorded through.
func WithAuditEmitter(emitter auditEmitter) Option {
	return func(e *Engine) { e.auditor = emitter }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs the workflow engine. The step definitions are validated
// against the permission model once here, so a misconfigured workflow fails
// startup instead of a transition.
func New(store Store, model *rbac.Model, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "store is required")
	}
	if model == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "permission model is required")
	}
	if err := ValidateDefinitions(model); err != nil {
		return nil, err
	}

	e := &Engine{
		store: store,
		model: model,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ===== Decision protocol =====

// ProposeDecision opens a decision record from an AI proposal. The record
// starts in the AI-proposed state awaiting officer review. At most one
// decision may be in flight per document.
func (e *Engine) ProposeDecision(ctx context.Context, documentID id.DocumentID, proposal Proposal) (*DecisionRecord, error) {
	if !proposal.Verdict.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid proposal verdict")
	}
	if proposal.Confidence < 0 || proposal.Confidence > 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "proposal confidence out of range")
	}

	now := e.now()
	record := &DecisionRecord{
		ID:           id.NewDecisionID(),
		DocumentID:   documentID,
		AIVerdict:    proposal.Verdict,
		AIConfidence: proposal.Confidence,
		AIReasoning:  proposal.Reasoning,
		BiasScore:    proposal.BiasScore,
		ModelVersion: proposal.ModelVersion,
		Status:       StatusAIProposed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.store.CreateDecision(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict,
				"document already has a decision in flight")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create decision record")
	}

	e.metrics.IncTransition("propose", string(StatusAIProposed))
	return record, nil
}

// OfficerReview applies the maker half of the control: the reviewing officer
// either agrees with the AI verdict, finalizing it, or disagrees, routing
// the record to a manager.
func (e *Engine) OfficerReview(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.OfficerAction, comment string) (*DecisionRecord, error) {
	req := rbac.StepRequirements{
		Roles:       []id.Role{id.RoleComplianceOfficer, id.RoleComplianceManager},
		Permissions: []rbac.Permission{rbac.PermProvideReviewFeedback},
	}
	if err := e.authorize(ctx, actor, req, audit.ResourceDecision, decisionID.String(), "officer_review"); err != nil {
		return nil, err
	}

	record, err := e.loadDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	next, ok := NextStatus(record.Status, string(action))
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("officer action %s not allowed in status %s", action, record.Status))
	}

	now := e.now()
	updated := record.Clone()
	updated.OfficerID = actor.UserID
	updated.OfficerAction = &action
	updated.OfficerComment = comment
	updated.OfficerTimestamp = &now
	updated.Status = next
	updated.UpdatedAt = now
	if next == StatusFinal {
		verdict := record.AIVerdict
		updated.FinalVerdict = &verdict
	}

	if err := e.persistDecision(ctx, updated); err != nil {
		return nil, err
	}

	e.metrics.IncTransition(string(action), string(next))
	e.emitDecisionAudit(ctx, actor, updated, audit.ActionOfficerReview, map[string]any{
		"action":  string(action),
		"comment": comment,
		"status":  string(next),
	})
	return updated, nil
}

// ManagerDecide applies the checker half: after an officer disagreement the
// manager approves, rejects, or escalates to the executive.
func (e *Engine) ManagerDecide(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.ManagerAction, justification string) (*DecisionRecord, error) {
	req := rbac.StepRequirements{
		Roles:       []id.Role{id.RoleComplianceManager, id.RoleCCO},
		Permissions: permissionsForManagerAction(action),
	}
	if err := e.authorize(ctx, actor, req, audit.ResourceDecision, decisionID.String(), "manager_approval"); err != nil {
		return nil, err
	}

	record, err := e.loadDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusPendingManagerApproval {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("manager action %s not allowed in status %s", action, record.Status))
	}

	updated, err := e.applyCheckerAction(record, actor, action, justification)
	if err != nil {
		return nil, err
	}
	if err := e.persistDecision(ctx, updated); err != nil {
		return nil, err
	}

	e.metrics.IncTransition(string(action), string(updated.Status))
	e.emitDecisionAudit(ctx, actor, updated, audit.ActionManagerDecision, map[string]any{
		"action":        string(action),
		"justification": justification,
		"status":        string(updated.Status),
	})
	return updated, nil
}

// ExecutiveDecide resolves an escalated record. Only the executive role may
// act, and escalating further is not a choice here.
func (e *Engine) ExecutiveDecide(ctx context.Context, actor id.Actor, decisionID id.DecisionID, action id.ManagerAction, justification string) (*DecisionRecord, error) {
	req := rbac.StepRequirements{
		Roles:       []id.Role{id.RoleCCO},
		Permissions: permissionsForManagerAction(action),
	}
	if err := e.authorize(ctx, actor, req, audit.ResourceDecision, decisionID.String(), "cco_oversight"); err != nil {
		return nil, err
	}

	record, err := e.loadDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if record.Status != StatusCCOEscalated {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("executive action %s not allowed in status %s", action, record.Status))
	}
	if action == id.ManagerEscalate {
		return nil, dErrors.New(dErrors.CodeInvalidState, "escalated decisions cannot be escalated further")
	}

	updated, err := e.applyCheckerAction(record, actor, action, justification)
	if err != nil {
		return nil, err
	}
	if err := e.persistDecision(ctx, updated); err != nil {
		return nil, err
	}

	e.metrics.IncTransition(string(action), string(updated.Status))
	e.emitDecisionAudit(ctx, actor, updated, audit.ActionExecutiveDecision, map[string]any{
		"action":        string(action),
		"justification": justification,
		"status":        string(updated.Status),
	})
	return updated, nil
}

// applyCheckerAction fills the manager section and advances the state graph
// for a manager or executive action. The caller has already verified the
// current status.
func (e *Engine) applyCheckerAction(record *DecisionRecord, actor id.Actor, action id.ManagerAction, justification string) (*DecisionRecord, error) {
	next, ok := NextStatus(record.Status, string(action))
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("action %s not allowed in status %s", action, record.Status))
	}

	now := e.now()
	updated := record.Clone()
	updated.ManagerID = actor.UserID
	updated.ManagerAction = &action
	updated.ManagerJustification = justification
	updated.ManagerTimestamp = &now
	updated.Status = next
	updated.UpdatedAt = now

	if next == StatusFinal {
		verdict := id.VerdictApproved
		if action == id.ManagerReject {
			verdict = id.VerdictRejected
		}
		updated.FinalVerdict = &verdict
	}
	return updated, nil
}

// permissionsForManagerAction maps a checker action onto the capability it
// exercises. Escalation is gated like approval: handing a decision upward
// is an approval-chain act.
func permissionsForManagerAction(action id.ManagerAction) []rbac.Permission {
	if action == id.ManagerReject {
		return []rbac.Permission{rbac.PermRejectDocuments}
	}
	return []rbac.Permission{rbac.PermApproveDocuments}
}

// GetDecision returns one decision record.
func (e *Engine) GetDecision(ctx context.Context, decisionID id.DecisionID) (*DecisionRecord, error) {
	return e.loadDecision(ctx, decisionID)
}

// ActiveDecisionForDocument returns the document's in-flight decision, if
// any.
func (e *Engine) ActiveDecisionForDocument(ctx context.Context, documentID id.DocumentID) (*DecisionRecord, error) {
	record, err := e.store.GetActiveDecisionByDocument(ctx, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no decision in flight for document")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load decision record")
	}
	return record, nil
}

// DecisionHistory returns every decision record for a document, oldest
// first.
func (e *Engine) DecisionHistory(ctx context.Context, documentID id.DocumentID) ([]*DecisionRecord, error) {
	records, err := e.store.ListDecisionsByDocument(ctx, documentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list decision records")
	}
	return records, nil
}

// ValidateAIDecision checks a proposal against the acting user's
// capabilities and the decision's own signals. The result is advisory: it
// lists policy violations for the caller to surface, it does not block.
func (e *Engine) ValidateAIDecision(actor id.Actor, proposal Proposal) []string {
	var violations []string

	caps, err := e.model.CapabilitiesFor(actor.Role)
	if err != nil {
		violations = append(violations, "unknown role for validation")
		return violations
	}

	if proposal.Verdict == id.VerdictApproved && !caps.CanApproveDocuments {
		violations = append(violations, "User lacks permission to approve documents")
	}
	if proposal.Verdict == id.VerdictRejected && !caps.CanRejectDocuments {
		violations = append(violations, "User lacks permission to reject documents")
	}
	if proposal.BiasScore > biasManualReviewThreshold {
		violations = append(violations, "High bias score requires manual review")
	}
	if proposal.Confidence < confidenceEscalationFloor {
		violations = append(violations, "Low confidence decisions require escalation")
	}
	return violations
}

// ===== Workflow instances =====

// StartWorkflow opens an instance of a canonical workflow for a document,
// positioned at the first step. The actor must be allowed to perform that
// first step. At most one instance may be active per document.
func (e *Engine) StartWorkflow(ctx context.Context, actor id.Actor, workflowType WorkflowType, documentID id.DocumentID) (*Instance, error) {
	steps, err := Steps(workflowType)
	if err != nil {
		return nil, err
	}
	first := steps[0]

	if err := e.authorize(ctx, actor, first.Requirements, audit.ResourceWorkflowStep,
		first.ID, string(workflowType)); err != nil {
		return nil, err
	}

	now := e.now()
	pending := make([]string, 0, len(steps)-1)
	for _, step := range steps[1:] {
		pending = append(pending, step.ID)
	}

	instance := &Instance{
		ID:           id.NewWorkflowInstanceID(),
		WorkflowType: workflowType,
		DocumentID:   documentID,
		CurrentStep:  first.ID,
		PendingSteps: pending,
		Status:       InstanceActive,
		AssignedUsers: []id.UserID{
			actor.UserID,
		},
		AuditTrail: []TrailEntry{{
			Timestamp: now,
			UserID:    actor.UserID,
			Role:      actor.Role,
			Action:    "workflow_started",
			Details:   map[string]any{"workflow_type": string(workflowType)},
		}},
		StepAssignedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateInstance(ctx, instance); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict,
				"document already has an active workflow")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create workflow instance")
	}
	return instance, nil
}

// ExecuteStep advances an instance through its current step. The outcome
// steers routing: approval moves to the next required step, escalation to
// the next optional step, rejection ends the workflow. A completed scan with
// no further step finishes the instance.
//
// The instance is mutated as a whole or not at all: every check runs against
// a copy, and the store sees the update only after all of them pass.
func (e *Engine) ExecuteStep(ctx context.Context, actor id.Actor, instanceID id.WorkflowInstanceID, stepID string, outcome StepOutcome, details map[string]any) (*Instance, error) {
	instance, err := e.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status != InstanceActive {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("workflow is %s, no further steps accepted", instance.Status))
	}
	if instance.CurrentStep != stepID {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("step %s is not the current step (current: %s)", stepID, instance.CurrentStep))
	}

	step, err := FindStep(instance.WorkflowType, stepID)
	if err != nil {
		return nil, err
	}

	if err := e.authorize(ctx, actor, step.Requirements, audit.ResourceWorkflowStep,
		step.ID, string(instance.WorkflowType)); err != nil {
		return nil, err
	}

	now := e.now()
	updated := instance.Clone()
	updated.CompletedSteps = append(updated.CompletedSteps, step.ID)
	updated.PendingSteps = removeStep(updated.PendingSteps, step.ID)
	updated.AuditTrail = append(updated.AuditTrail, TrailEntry{
		Timestamp: now,
		UserID:    actor.UserID,
		Role:      actor.Role,
		Action:    "step_executed",
		Details: map[string]any{
			"step_id": step.ID,
			"outcome": string(outcome),
			"details": details,
		},
	})
	if actor.Role != id.RoleSystem && !containsUser(updated.AssignedUsers, actor.UserID) {
		updated.AssignedUsers = append(updated.AssignedUsers, actor.UserID)
	}
	updated.UpdatedAt = now

	next, hasNext := NextStep(instance.WorkflowType, step, outcome)
	if hasNext {
		updated.CurrentStep = next.ID
		updated.StepAssignedAt = now
	} else {
		updated.CurrentStep = ""
		updated.Status = terminalInstanceStatus(outcome)
		e.metrics.IncInstanceFinished(string(instance.WorkflowType), string(updated.Status))
	}

	if err := e.store.UpdateInstance(ctx, updated); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update workflow instance")
	}

	e.emitStepAudit(ctx, actor, updated, step, outcome, details)
	return updated, nil
}

// GetWorkflowStatus returns an instance by ID.
func (e *Engine) GetWorkflowStatus(ctx context.Context, instanceID id.WorkflowInstanceID) (*Instance, error) {
	return e.loadInstance(ctx, instanceID)
}

// ActiveWorkflowForDocument returns the document's active instance, if any.
func (e *Engine) ActiveWorkflowForDocument(ctx context.Context, documentID id.DocumentID) (*Instance, error) {
	instance, err := e.store.GetActiveInstanceByDocument(ctx, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no active workflow for document")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow instance")
	}
	return instance, nil
}

// CheckTimeouts scans active instances for steps past their deadline. Each
// breach is surfaced and audited; escalating a breached instance remains a
// deliberate human action, never an automatic one.
func (e *Engine) CheckTimeouts(ctx context.Context) ([]TimeoutBreach, error) {
	instances, err := e.store.ListActiveInstances(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active instances")
	}

	now := e.now()
	var breaches []TimeoutBreach
	for _, instance := range instances {
		if instance.CurrentStep == "" {
			continue
		}
		step, err := FindStep(instance.WorkflowType, instance.CurrentStep)
		if err != nil || step.Timeout == 0 {
			continue
		}
		deadline := instance.StepAssignedAt.Add(step.Timeout)
		if !now.After(deadline) {
			continue
		}

		breach := TimeoutBreach{
			InstanceID:   instance.ID,
			DocumentID:   instance.DocumentID,
			WorkflowType: instance.WorkflowType,
			StepID:       step.ID,
			Deadline:     deadline,
			Overdue:      now.Sub(deadline),
		}
		breaches = append(breaches, breach)
		e.metrics.IncTimeoutBreach()

		if e.auditor != nil {
			entry := audit.Entry{
				Role:         id.RoleSystem,
				Action:       audit.ActionTimeoutEscalation,
				ResourceType: audit.ResourceWorkflowStep,
				ResourceID:   step.ID,
				Success:      true,
				Details: map[string]any{
					"instance_id":   instance.ID.String(),
					"document_id":   instance.DocumentID.String(),
					"workflow_type": string(instance.WorkflowType),
					"deadline":      deadline.UTC().Format(time.RFC3339),
					"overdue":       breach.Overdue.String(),
				},
			}
			audit.EnrichFromContext(ctx, &entry)
			e.auditor.Emit(ctx, entry)
		}
		if e.logger != nil {
			e.logger.WarnContext(ctx, "workflow step past deadline",
				"instance_id", instance.ID,
				"step_id", step.ID,
				"overdue", breach.Overdue,
			)
		}
	}
	return breaches, nil
}

// ===== Internal helpers =====

// authorize gates one action through the permission model. A denial is
// audited and returned as a forbidden error before any state is read for
// mutation.
func (e *Engine) authorize(ctx context.Context, actor id.Actor, req rbac.StepRequirements, resourceType, resourceID, scope string) error {
	granted, reason := e.model.StepAccess(actor.Role, req)
	e.metrics.IncAccessCheck(granted)

	if granted {
		return nil
	}

	if e.auditor != nil {
		entry := audit.Entry{
			ActorID:      actor.UserID,
			Role:         actor.Role,
			Action:       audit.ActionWorkflowAccessDenied,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Success:      false,
			Details: map[string]any{
				"scope":  scope,
				"reason": reason,
			},
		}
		audit.EnrichFromContext(ctx, &entry)
		e.auditor.Emit(ctx, entry)
	}
	if e.logger != nil {
		e.logger.WarnContext(ctx, "workflow access denied",
			"role", actor.Role,
			"resource", resourceID,
			"reason", reason,
		)
	}
	return dErrors.New(dErrors.CodeForbidden, reason)
}

func (e *Engine) loadDecision(ctx context.Context, decisionID id.DecisionID) (*DecisionRecord, error) {
	record, err := e.store.GetDecision(ctx, decisionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "decision not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load decision record")
	}
	return record, nil
}

func (e *Engine) persistDecision(ctx context.Context, record *DecisionRecord) error {
	if err := e.store.UpdateDecision(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update decision record")
	}
	return nil
}

func (e *Engine) loadInstance(ctx context.Context, instanceID id.WorkflowInstanceID) (*Instance, error) {
	instance, err := e.store.GetInstance(ctx, instanceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "workflow instance not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load workflow instance")
	}
	return instance, nil
}

func (e *Engine) emitDecisionAudit(ctx context.Context, actor id.Actor, record *DecisionRecord, action string, details map[string]any) {
	if e.auditor == nil {
		return
	}
	details["document_id"] = record.DocumentID.String()
	if record.FinalVerdict != nil {
		details["final_verdict"] = string(*record.FinalVerdict)
	}
	entry := audit.Entry{
		ActorID:      actor.UserID,
		Role:         actor.Role,
		Action:       action,
		ResourceType: audit.ResourceDecision,
		ResourceID:   record.ID.String(),
		Success:      true,
		Details:      details,
	}
	audit.EnrichFromContext(ctx, &entry)
	e.auditor.Emit(ctx, entry)
}

func (e *Engine) emitStepAudit(ctx context.Context, actor id.Actor, instance *Instance, step Step, outcome StepOutcome, details map[string]any) {
	if e.auditor == nil {
		return
	}
	entry := audit.Entry{
		ActorID:      actor.UserID,
		Role:         actor.Role,
		Action:       audit.ActionWorkflowStepExecuted,
		ResourceType: audit.ResourceWorkflowStep,
		ResourceID:   step.ID,
		Success:      true,
		Details: map[string]any{
			"instance_id":   instance.ID.String(),
			"document_id":   instance.DocumentID.String(),
			"workflow_type": string(instance.WorkflowType),
			"outcome":       string(outcome),
			"next_step":     instance.CurrentStep,
			"status":        string(instance.Status),
			"details":       details,
		},
	}
	audit.EnrichFromContext(ctx, &entry)
	e.auditor.Emit(ctx, entry)
}

func terminalInstanceStatus(outcome StepOutcome) InstanceStatus {
	switch outcome {
	case OutcomeRejected:
		return InstanceRejected
	case OutcomeEscalated:
		return InstanceEscalated
	default:
		return InstanceCompleted
	}
}

func removeStep(steps []string, stepID string) []string {
	out := steps[:0]
	for _, s := range steps {
		if s != stepID {
			out = append(out, s)
		}
	}
	return out
}

func containsUser(users []id.UserID, userID id.UserID) bool {
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}
