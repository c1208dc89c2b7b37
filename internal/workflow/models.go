package workflow

import (
	"time"

	id "kycgate/pkg/domain"
)

// DecisionStatus is the lifecycle state of one workflow-tracked decision
// record. Transitions move forward only and lock at StatusFinal.
type DecisionStatus string

const (
	StatusAIProposed             DecisionStatus = "ai_proposed"
	StatusOfficerReviewed        DecisionStatus = "officer_reviewed"
	StatusPendingManagerApproval DecisionStatus = "pending_manager_approval"
	StatusManagerApproved        DecisionStatus = "manager_approved"
	StatusManagerRejected        DecisionStatus = "manager_rejected"
	StatusCCOEscalated           DecisionStatus = "cco_escalated"
	StatusFinal                  DecisionStatus = "final"
)

// IsTerminal reports whether no further transitions are accepted.
func (s DecisionStatus) IsTerminal() bool { return s == StatusFinal }

// DecisionRecord is one document's decision for one workflow pass. The AI
// fields are copied from the AIDecision at creation and never change; human
// actions fill the officer and manager sections as the record advances.
type DecisionRecord struct {
	ID         id.DecisionID
	DocumentID id.DocumentID

	AIVerdict    id.Verdict
	AIConfidence float64
	AIReasoning  string
	BiasScore    float64
	ModelVersion string

	OfficerID        id.UserID
	OfficerAction    *id.OfficerAction
	OfficerComment   string
	OfficerTimestamp *time.Time

	ManagerID            id.UserID
	ManagerAction        *id.ManagerAction
	ManagerJustification string
	ManagerTimestamp     *time.Time

	Status DecisionStatus
	// FinalVerdict stays nil until Status is StatusFinal. An escalation to
	// the executive leaves it nil while the record sits in StatusCCOEscalated.
	FinalVerdict *id.Verdict

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy. The engine mutates copies and persists only
// after a transition fully validates, so a failed attempt can never leave a
// half-updated record visible.
func (d *DecisionRecord) Clone() *DecisionRecord {
	out := *d
	if d.OfficerAction != nil {
		action := *d.OfficerAction
		out.OfficerAction = &action
	}
	if d.OfficerTimestamp != nil {
		ts := *d.OfficerTimestamp
		out.OfficerTimestamp = &ts
	}
	if d.ManagerAction != nil {
		action := *d.ManagerAction
		out.ManagerAction = &action
	}
	if d.ManagerTimestamp != nil {
		ts := *d.ManagerTimestamp
		out.ManagerTimestamp = &ts
	}
	if d.FinalVerdict != nil {
		v := *d.FinalVerdict
		out.FinalVerdict = &v
	}
	return &out
}

// transitionKey identifies one edge of the decision state graph.
type transitionKey struct {
	from   DecisionStatus
	action string
}

// decisionTransitions is the explicit directed state graph. Any (state,
// action) pair absent from this table is an illegal transition; there is no
// other transition logic anywhere.
var decisionTransitions = map[transitionKey]DecisionStatus{
	{StatusAIProposed, string(id.OfficerAgree)}:    StatusFinal,
	{StatusAIProposed, string(id.OfficerDisagree)}: StatusPendingManagerApproval,

	{StatusPendingManagerApproval, string(id.ManagerApprove)}:  StatusFinal,
	{StatusPendingManagerApproval, string(id.ManagerReject)}:   StatusFinal,
	{StatusPendingManagerApproval, string(id.ManagerEscalate)}: StatusCCOEscalated,

	{StatusCCOEscalated, string(id.ManagerApprove)}: StatusFinal,
	{StatusCCOEscalated, string(id.ManagerReject)}:  StatusFinal,
}

// NextStatus resolves the state graph for one action. The second return is
// false for illegal transitions.
func NextStatus(from DecisionStatus, action string) (DecisionStatus, bool) {
	to, ok := decisionTransitions[transitionKey{from, action}]
	return to, ok
}

// WorkflowType selects one of the three canonical step sequences.
type WorkflowType string

const (
	WorkflowDocumentProcessing WorkflowType = "document_processing"
	WorkflowBulkProcessing     WorkflowType = "bulk_processing"
	WorkflowRAGQuery           WorkflowType = "rag_query"
)

// StepOutcome is the directional result of executing one step.
type StepOutcome string

const (
	OutcomeApproved  StepOutcome = "approved"
	OutcomeRejected  StepOutcome = "rejected"
	OutcomeEscalated StepOutcome = "escalated"
)

// InstanceStatus is the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceEscalated InstanceStatus = "escalated"
	InstanceRejected  InstanceStatus = "rejected"
)

// TrailEntry is one line of an instance's append-only audit trail.
type TrailEntry struct {
	Timestamp time.Time
	UserID    id.UserID
	Role      id.Role
	Action    string
	Details   map[string]any
}

// Instance tracks one document's pass through a workflow. Exactly one
// instance may be active per document at a time.
type Instance struct {
	ID           id.WorkflowInstanceID
	WorkflowType WorkflowType
	DocumentID   id.DocumentID

	CurrentStep    string
	CompletedSteps []string
	PendingSteps   []string
	Status         InstanceStatus

	AssignedUsers []id.UserID
	AuditTrail    []TrailEntry

	// StepAssignedAt is when the current step became pending; the timeout
	// sweep measures elapsed time from here.
	StepAssignedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy, for the same reason as DecisionRecord.Clone.
func (i *Instance) Clone() *Instance {
	out := *i
	out.CompletedSteps = append([]string(nil), i.CompletedSteps...)
	out.PendingSteps = append([]string(nil), i.PendingSteps...)
	out.AssignedUsers = append([]id.UserID(nil), i.AssignedUsers...)
	out.AuditTrail = append([]TrailEntry(nil), i.AuditTrail...)
	return &out
}

// TimeoutBreach describes an active step that has exceeded its deadline.
// The sweep surfaces breaches; escalation is a separate, human-visible act.
type TimeoutBreach struct {
	InstanceID   id.WorkflowInstanceID
	DocumentID   id.DocumentID
	WorkflowType WorkflowType
	StepID       string
	Deadline     time.Time
	Overdue      time.Duration
}
