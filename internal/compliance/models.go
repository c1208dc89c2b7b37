package compliance

import (
	"time"

	"kycgate/internal/rbac"
	id "kycgate/pkg/domain"
)

// ViolationType classifies a compliance finding. The values appear in audit
// details and rendered reports, so they stay stable.
type ViolationType string

const (
	ViolationAccessDenied       ViolationType = "ACCESS_DENIED"
	ViolationPermissionMismatch ViolationType = "PERMISSION_MISMATCH"
	ViolationWorkflow           ViolationType = "WORKFLOW_VIOLATION"
	ViolationDataAccess         ViolationType = "DATA_ACCESS_VIOLATION"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ViolationStatus is the triage state of a finding.
type ViolationStatus string

const (
	StatusOpen          ViolationStatus = "OPEN"
	StatusResolved      ViolationStatus = "RESOLVED"
	StatusFalsePositive ViolationStatus = "FALSE_POSITIVE"
)

// Violation is one compliance finding. Scanner-produced findings carry no
// actor; findings raised against a user's behavior do.
type Violation struct {
	ID        id.ViolationID
	Timestamp time.Time
	ActorID   id.UserID
	Role      id.Role
	Type      ViolationType
	Resource  string
	Severity  Severity
	// Description states what was found; Remediation states what to do
	// about it.
	Description string
	Remediation string
	Status      ViolationStatus
}

// Report is the full output of a compliance check: the score, the findings,
// the matrix the findings were evaluated against, and the audit cadence.
type Report struct {
	OverallCompliance int
	Violations        []Violation
	AccessMatrix      []rbac.MatrixEntry
	Recommendations   []string
	LastAudit         time.Time
	NextAuditDue      time.Time
}
