package compliance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/rbac"
	id "kycgate/pkg/domain"
	"kycgate/pkg/platform/audit"
	auditmem "kycgate/pkg/platform/audit/store/memory"
	"kycgate/pkg/platform/audit/publisher"
)

// =============================================================================
// Compliance Service Test Suite
// =============================================================================
// Justification for unit tests: the scoring formula and the scan findings are
// contractual — regulators read these reports. Determinism (same matrix, same
// findings, same score) is the property everything else leans on.

type ComplianceSuite struct {
	suite.Suite
	auditStore *auditmem.InMemoryStore
	service    *Service
	now        time.Time
	actor      id.Actor
}

func TestComplianceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceSuite))
}

func (s *ComplianceSuite) SetupTest() {
	model, err := rbac.NewModel()
	s.Require().NoError(err)

	s.auditStore = auditmem.NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.actor = id.Actor{UserID: id.NewUserID(), Role: id.RoleCCO}

	s.service, err = New(model,
		WithAuditEmitter(publisher.New(s.auditStore)),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

// =============================================================================
// Compliance Check Tests
// =============================================================================

func (s *ComplianceSuite) TestCheckCompliance() {
	report, err := s.service.CheckCompliance(context.Background(), s.actor)
	s.Require().NoError(err)

	s.Run("consent gap is the single standing finding", func() {
		s.Require().Len(report.Violations, 1)
		v := report.Violations[0]
		s.Equal(ViolationDataAccess, v.Type)
		s.Equal(SeverityHigh, v.Severity)
		s.Equal("Consent Management", v.Resource)
		s.Equal(StatusOpen, v.Status)
	})

	s.Run("score deducts five points per finding", func() {
		s.Equal(95, report.OverallCompliance)
	})

	s.Run("audit cadence is thirty days", func() {
		s.Equal(s.now, report.LastAudit)
		s.Equal(s.now.Add(30*24*time.Hour), report.NextAuditDue)
	})

	s.Run("matrix covers every assignable role", func() {
		s.Len(report.AccessMatrix, len(id.AllRoles))
	})

	s.Run("findings produce remediation plus standard recommendations", func() {
		s.Len(report.Recommendations, 5)
		s.Equal("Implement explicit consent collection and validation", report.Recommendations[0])
		s.Contains(report.Recommendations, "Conduct immediate security audit")
	})

	s.Run("report generation is audited", func() {
		var found bool
		for _, e := range s.auditStore.All() {
			if e.Action == audit.ActionComplianceReport {
				found = true
				s.Equal(audit.ResourceCompliance, e.ResourceType)
				s.True(e.Success)
			}
		}
		s.True(found)
	})

	s.Run("repeated checks are deterministic", func() {
		again, err := s.service.CheckCompliance(context.Background(), s.actor)
		s.Require().NoError(err)
		s.Equal(report.OverallCompliance, again.OverallCompliance)
		s.Len(again.Violations, len(report.Violations))
	})
}

// =============================================================================
// Role Permission Validation Tests
// =============================================================================

func (s *ComplianceSuite) TestValidateRolePermissions() {
	model, err := rbac.NewModel()
	s.Require().NoError(err)

	s.Run("canonical set is compliant", func() {
		canonical, err := model.CapabilitiesFor(id.RoleComplianceOfficer)
		s.Require().NoError(err)

		compliant, mismatches, err := s.service.ValidateRolePermissions(id.RoleComplianceOfficer, canonical)
		s.Require().NoError(err)
		s.True(compliant)
		s.Empty(mismatches)
	})

	s.Run("drifted set reports each mismatch", func() {
		drifted, err := model.CapabilitiesFor(id.RoleComplianceOfficer)
		s.Require().NoError(err)
		drifted.CanApproveDocuments = true

		compliant, mismatches, err := s.service.ValidateRolePermissions(id.RoleComplianceOfficer, drifted)
		s.Require().NoError(err)
		s.False(compliant)
		s.Require().Len(mismatches, 1)
		s.Contains(mismatches[0], "canApproveDocuments")
	})
}

// =============================================================================
// Violation Logging Tests
// =============================================================================

func (s *ComplianceSuite) TestLogViolation() {
	logged := s.service.LogViolation(context.Background(), Violation{
		ActorID:     s.actor.UserID,
		Role:        s.actor.Role,
		Type:        ViolationWorkflow,
		Resource:    "officer_review",
		Severity:    SeverityCritical,
		Description: "Step executed out of order",
		Remediation: "Investigate actor session",
	})

	s.False(logged.ID.IsNil())
	s.Equal(s.now, logged.Timestamp)
	s.Equal(StatusOpen, logged.Status)

	entries := s.auditStore.All()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionComplianceViolation, entries[0].Action)
	s.False(entries[0].Success)
	s.Equal(logged.ID.String(), entries[0].ResourceID)
	s.Equal("WORKFLOW_VIOLATION", entries[0].Details["violation_type"])
}

// =============================================================================
// Least Privilege Tests
// =============================================================================

func (s *ComplianceSuite) TestEnforceLeastPrivilege() {
	cases := []struct {
		name    string
		role    id.Role
		action  string
		allowed bool
	}{
		{"officer can upload", id.RoleComplianceOfficer, ActionUploadDocument, true},
		{"officer cannot approve", id.RoleComplianceOfficer, ActionApproveDocument, false},
		{"manager can bulk process", id.RoleComplianceManager, ActionBulkProcess, true},
		{"auditor can export reports", id.RoleInternalAuditor, ActionExportReports, true},
		{"system admin sees no documents", id.RoleSystemAdmin, ActionViewAllDocuments, false},
		{"unknown action is denied", id.RoleCCO, "DELETE_EVERYTHING", false},
		{"unknown role is denied", id.Role("contractor"), ActionUploadDocument, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.allowed, s.service.EnforceLeastPrivilege(tc.role, tc.action))
		})
	}
}

// =============================================================================
// Report Rendering Tests
// =============================================================================

func (s *ComplianceSuite) TestRenderReport() {
	report, err := s.service.CheckCompliance(context.Background(), s.actor)
	s.Require().NoError(err)

	rendered := RenderReport(report)

	s.True(strings.HasPrefix(rendered, "# DPDP Compliance Report"))
	s.Contains(rendered, "**Overall Compliance Score:** 95%")
	s.Contains(rendered, "### compliance_officer")
	s.Contains(rendered, "- **Data Scope:** OWN")
	s.Contains(rendered, "### DATA_ACCESS_VIOLATION - HIGH")
	s.Contains(rendered, "- Conduct immediate security audit")
}

func (s *ComplianceSuite) TestRenderReportWithoutViolations() {
	rendered := RenderReport(&Report{
		OverallCompliance: 100,
		LastAudit:         s.now,
		NextAuditDue:      s.now.Add(30 * 24 * time.Hour),
	})
	s.Contains(rendered, "No violations detected.")
}
