package audit

import (
	"time"

	id "kycgate/pkg/domain"
)

// EventCategory classifies audit entries by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers entries with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: AI decisions, officer reviews, manager approvals.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers entries relevant to security monitoring.
	// Examples: workflow access denials, permission mismatches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers entries useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Entry is the append-only audit record written for every access grant or
// denial and every workflow transition. Keep it transport-agnostic so stores
// and sinks can fan out.
type Entry struct {
	Category     EventCategory
	Timestamp    time.Time
	ActorID      id.UserID
	Role         id.Role
	Action       string
	ResourceType string
	ResourceID   string
	Success      bool
	Details      map[string]any
	// RequestID is the correlation ID from the HTTP request context, when the
	// entry originated from an HTTP call.
	RequestID string
	// Client metadata captured by the transport middleware. Empty for entries
	// emitted by background workers.
	ClientIP  string
	UserAgent string
	Browser   string
	OS        string
}

// Resource types named in audit entries.
const (
	ResourceDocument     = "DOCUMENT"
	ResourceWorkflowStep = "WORKFLOW_STEP"
	ResourceDecision     = "DECISION"
	ResourceCompliance   = "COMPLIANCE"
	ResourceAIModel      = "AI_MODEL"
)

// Action names emitted by the core. Centralizing them keeps the audit stream
// greppable and lets the category routing stay in one place.
const (
	ActionAIDecisionMade        = "ai_decision_made"
	ActionDecisionFallback      = "ai_decision_fallback"
	ActionOfficerReview         = "officer_review"
	ActionManagerDecision       = "manager_decision"
	ActionExecutiveDecision     = "executive_decision"
	ActionWorkflowAccessGranted = "workflow_access_granted"
	ActionWorkflowAccessDenied  = "workflow_access_denied"
	ActionWorkflowStepExecuted  = "workflow_step_executed"
	ActionWorkflowViolation     = "workflow_violation"
	ActionTimeoutEscalation     = "workflow_timeout_flagged"
	ActionComplianceViolation   = "compliance_violation_detected"
	ActionComplianceReport      = "compliance_report_generated"
	ActionDocumentUploaded      = "document_uploaded"
	ActionDocumentProcessed     = "document_processed"
	ActionBatchProcessed        = "batch_processed"
	ActionRetrainRequested      = "model_retraining_triggered"
)

// actionCategories maps each audit action to its category.
var actionCategories = map[string]EventCategory{
	// Compliance entries - require tamper-proof storage
	ActionAIDecisionMade:    CategoryCompliance,
	ActionDecisionFallback:  CategoryCompliance,
	ActionOfficerReview:     CategoryCompliance,
	ActionManagerDecision:   CategoryCompliance,
	ActionExecutiveDecision: CategoryCompliance,

	// Security entries - feed into SIEM and alerting
	ActionWorkflowAccessDenied: CategorySecurity,
	ActionWorkflowViolation:    CategorySecurity,
	ActionComplianceViolation:  CategorySecurity,

	// Operations entries - routine activity, can be sampled
	ActionWorkflowAccessGranted: CategoryOperations,
	ActionWorkflowStepExecuted:  CategoryOperations,
	ActionTimeoutEscalation:     CategoryOperations,
	ActionComplianceReport:      CategoryOperations,
	ActionDocumentUploaded:      CategoryOperations,
	ActionDocumentProcessed:     CategoryOperations,
	ActionBatchProcessed:        CategoryOperations,
	ActionRetrainRequested:      CategoryOperations,
}

// CategoryFor returns the category for an audit action. Unknown actions
// default to CategoryOperations.
func CategoryFor(action string) EventCategory {
	if cat, ok := actionCategories[action]; ok {
		return cat
	}
	return CategoryOperations
}
