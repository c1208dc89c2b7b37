// Package compliance runs the data-protection scans over the access control
// matrix and renders the periodic compliance report. The scans are
// deterministic: the same matrix always produces the same findings, so a
// report can be regenerated at any time without side effects on stored state.
package compliance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kycgate/internal/rbac"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	platformstrings "kycgate/pkg/platform/strings"
)

const (
	// Each finding costs five points off a perfect score.
	violationPenalty = 5

	// auditCadence is how long a report stays current.
	auditCadence = 30 * 24 * time.Hour
)

// auditEmitter is the write-only audit collaborator.
type auditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// Service runs compliance scans against the permission model.
type Service struct {
	model   *rbac.Model
	auditor auditEmitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets a logger for scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditEmitter sets the audit publisher findings are recorded through.
func WithAuditEmitter(emitter auditEmitter) Option {
	return func(s *Service) { s.auditor = emitter }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the compliance service.
func New(model *rbac.Model, opts ...Option) (*Service, error) {
	if model == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "permission model is required")
	}
	s := &Service{
		model: model,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckCompliance runs every scan and scores the result. Generating a report
// is itself an auditable act.
func (s *Service) CheckCompliance(ctx context.Context, actor id.Actor) (*Report, error) {
	now := s.now()

	var violations []Violation
	violations = append(violations, s.scanDataMinimization(now)...)
	violations = append(violations, s.scanConsentManagement(now)...)
	violations = append(violations, s.scanDataRetention(now)...)
	violations = append(violations, s.scanCrossBorderTransfers(now)...)

	var recommendations []string
	if len(violations) > 0 {
		for _, v := range violations {
			recommendations = append(recommendations, v.Remediation)
		}
		recommendations = append(recommendations,
			"Conduct immediate security audit",
			"Review and update access control policies",
			"Implement additional monitoring controls",
			"Provide additional training to staff",
		)
		recommendations = platformstrings.DedupeAndTrim(recommendations)
	}

	score := 100 - violationPenalty*len(violations)
	if score < 0 {
		score = 0
	}

	report := &Report{
		OverallCompliance: score,
		Violations:        violations,
		AccessMatrix:      s.model.Matrix(),
		Recommendations:   recommendations,
		LastAudit:         now,
		NextAuditDue:      now.Add(auditCadence),
	}

	if s.auditor != nil {
		entry := audit.Entry{
			ActorID:      actor.UserID,
			Role:         actor.Role,
			Action:       audit.ActionComplianceReport,
			ResourceType: audit.ResourceCompliance,
			ResourceID:   "dpdp",
			Success:      true,
			Details: map[string]any{
				"overall_compliance": score,
				"violation_count":    len(violations),
			},
		}
		audit.EnrichFromContext(ctx, &entry)
		s.auditor.Emit(ctx, entry)
	}
	return report, nil
}

// scanDataMinimization flags operational roles whose data scope exceeds what
// their duties need. Oversight and assurance roles legitimately see
// everything; a document-handling officer should not.
func (s *Service) scanDataMinimization(now time.Time) []Violation {
	var violations []Violation
	for _, entry := range s.model.Matrix() {
		if entry.DataScope != rbac.ScopeAll {
			continue
		}
		if !strings.Contains(string(entry.Role), "officer") {
			continue
		}
		violations = append(violations, Violation{
			ID:          id.NewViolationID(),
			Timestamp:   now,
			Role:        entry.Role,
			Type:        ViolationDataAccess,
			Resource:    "Data Scope",
			Severity:    SeverityMedium,
			Description: string(entry.Role) + " has broader data access than necessary",
			Remediation: "Review and restrict data access scope",
			Status:      StatusOpen,
		})
	}
	return violations
}

// scanConsentManagement reports the known gap: document intake does not yet
// collect explicit consent, so every scan surfaces it until the workflow
// exists.
func (s *Service) scanConsentManagement(now time.Time) []Violation {
	return []Violation{{
		ID:          id.NewViolationID(),
		Timestamp:   now,
		Role:        id.RoleSystem,
		Type:        ViolationDataAccess,
		Resource:    "Consent Management",
		Severity:    SeverityHigh,
		Description: "Consent management workflow not fully implemented",
		Remediation: "Implement explicit consent collection and validation",
		Status:      StatusOpen,
	}}
}

// scanDataRetention verifies retention policy. Decisions and audit entries
// are retained indefinitely on purpose (regulatory evidence), so there is
// nothing to flag.
func (s *Service) scanDataRetention(time.Time) []Violation {
	return nil
}

// scanCrossBorderTransfers verifies transfer compliance. All stores are
// deployed in-region; nothing to flag until that changes.
func (s *Service) scanCrossBorderTransfers(time.Time) []Violation {
	return nil
}

// ValidateRolePermissions diffs a live permission set against the canonical
// matrix entry for the role. A non-empty result means drift.
func (s *Service) ValidateRolePermissions(role id.Role, live rbac.PermissionSet) (bool, []string, error) {
	mismatches, err := s.model.Diff(role, live)
	if err != nil {
		return false, nil, err
	}
	return len(mismatches) == 0, mismatches, nil
}

// LogViolation records a finding in the audit stream. The finding itself is
// the payload; violations are not stored separately, the audit stream is
// their system of record.
func (s *Service) LogViolation(ctx context.Context, violation Violation) Violation {
	if violation.ID.IsNil() {
		violation.ID = id.NewViolationID()
	}
	if violation.Timestamp.IsZero() {
		violation.Timestamp = s.now()
	}
	if violation.Status == "" {
		violation.Status = StatusOpen
	}

	if s.auditor != nil {
		entry := audit.Entry{
			ActorID:      violation.ActorID,
			Role:         violation.Role,
			Action:       audit.ActionComplianceViolation,
			ResourceType: audit.ResourceCompliance,
			ResourceID:   violation.ID.String(),
			Success:      false,
			Details: map[string]any{
				"violation_type": string(violation.Type),
				"severity":       string(violation.Severity),
				"description":    violation.Description,
				"remediation":    violation.Remediation,
			},
		}
		audit.EnrichFromContext(ctx, &entry)
		s.auditor.Emit(ctx, entry)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "compliance violation detected",
			"type", violation.Type,
			"severity", violation.Severity,
			"resource", violation.Resource,
		)
	}
	return violation
}

// Sensitive actions gated by EnforceLeastPrivilege.
const (
	ActionUploadDocument   = "UPLOAD_DOCUMENT"
	ActionApproveDocument  = "APPROVE_DOCUMENT"
	ActionViewAllDocuments = "VIEW_ALL_DOCUMENTS"
	ActionBulkProcess      = "BULK_PROCESS"
	ActionExportReports    = "EXPORT_REPORTS"
)

// EnforceLeastPrivilege reports whether a role holds the minimum capability
// for a named sensitive action. Unknown actions are denied.
func (s *Service) EnforceLeastPrivilege(role id.Role, action string) bool {
	caps, err := s.model.CapabilitiesFor(role)
	if err != nil {
		return false
	}
	switch action {
	case ActionUploadDocument:
		return caps.CanUploadDocuments
	case ActionApproveDocument:
		return caps.CanApproveDocuments
	case ActionViewAllDocuments:
		return caps.CanViewAllDocuments
	case ActionBulkProcess:
		return caps.CanBulkProcess
	case ActionExportReports:
		return caps.CanExportReports
	default:
		return false
	}
}
