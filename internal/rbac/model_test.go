package rbac

import (
	"testing"

	"github.com/stretchr/testify/suite"

	id "kycgate/pkg/domain"
)

// =============================================================================
// Permission Model Test Suite
// =============================================================================
// Justification for unit tests: the matrix is the single gate in front of every
// workflow transition; a wrong row here silently opens or closes steps for a
// whole role, which handler-level tests would only catch indirectly.

type ModelSuite struct {
	suite.Suite
	model *Model
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}

func (s *ModelSuite) SetupTest() {
	var err error
	s.model, err = NewModel()
	s.Require().NoError(err)
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *ModelSuite) TestNewModel() {
	s.Run("every assignable role has a matrix entry", func() {
		for _, role := range id.AllRoles {
			_, err := s.model.CapabilitiesFor(role)
			s.NoError(err, "role %s", role)
		}
	})
}

// =============================================================================
// CapabilitiesFor Tests
// =============================================================================

func (s *ModelSuite) TestCapabilitiesFor() {
	s.Run("unknown role is a configuration error", func() {
		_, err := s.model.CapabilitiesFor(id.Role("intern"))
		s.Error(err)
		s.Contains(err.Error(), "unknown role")
	})

	s.Run("officer cannot approve or reject", func() {
		caps, err := s.model.CapabilitiesFor(id.RoleComplianceOfficer)
		s.NoError(err)
		s.False(caps.CanApproveDocuments)
		s.False(caps.CanRejectDocuments)
		s.True(caps.CanProvideReviewFeedback)
		s.True(caps.CanUploadDocuments)
	})

	s.Run("manager holds maker-checker authority", func() {
		caps, err := s.model.CapabilitiesFor(id.RoleComplianceManager)
		s.NoError(err)
		s.True(caps.CanApproveDocuments)
		s.True(caps.CanRejectDocuments)
		s.True(caps.CanBulkProcess)
	})

	s.Run("zero-capability roles are valid", func() {
		for _, role := range []id.Role{id.RoleSystemAdmin, id.RoleMLEngineer} {
			caps, err := s.model.CapabilitiesFor(role)
			s.NoError(err)
			s.Equal(PermissionSet{}, caps, "role %s", role)
		}
	})
}

// =============================================================================
// StepAccess Tests
// =============================================================================

func (s *ModelSuite) TestStepAccess() {
	review := StepRequirements{
		Roles:       []id.Role{id.RoleComplianceOfficer, id.RoleComplianceManager},
		Permissions: []Permission{PermProvideReviewFeedback},
	}
	approval := StepRequirements{
		Roles:       []id.Role{id.RoleComplianceManager, id.RoleCCO},
		Permissions: []Permission{PermApproveDocuments},
	}

	s.Run("role in list with permissions is granted", func() {
		ok, reason := s.model.StepAccess(id.RoleComplianceOfficer, review)
		s.True(ok)
		s.Empty(reason)
	})

	s.Run("role outside list is denied with named role", func() {
		ok, reason := s.model.StepAccess(id.RoleCISO, approval)
		s.False(ok)
		s.Contains(reason, "ciso")
	})

	s.Run("role in list missing a permission is denied", func() {
		req := StepRequirements{
			Roles:       []id.Role{id.RoleComplianceOfficer},
			Permissions: []Permission{PermApproveDocuments},
		}
		ok, reason := s.model.StepAccess(id.RoleComplianceOfficer, req)
		s.False(ok)
		s.Contains(reason, string(PermApproveDocuments))
	})

	s.Run("system role only passes system steps", func() {
		systemStep := StepRequirements{
			Roles:       []id.Role{id.RoleSystem},
			Permissions: []Permission{PermProcessDocuments},
		}
		ok, _ := s.model.StepAccess(id.RoleSystem, systemStep)
		s.True(ok)

		ok, _ = s.model.StepAccess(id.RoleSystem, approval)
		s.False(ok)
	})

	s.Run("zero-capability role reaches no workflow step", func() {
		for _, req := range []StepRequirements{review, approval} {
			ok, _ := s.model.StepAccess(id.RoleSystemAdmin, req)
			s.False(ok)
		}
	})
}

// =============================================================================
// Diff Tests
// =============================================================================

func (s *ModelSuite) TestDiff() {
	s.Run("canonical set has no mismatches", func() {
		caps, err := s.model.CapabilitiesFor(id.RoleComplianceOfficer)
		s.Require().NoError(err)

		mismatches, err := s.model.Diff(id.RoleComplianceOfficer, caps)
		s.NoError(err)
		s.Empty(mismatches)
	})

	s.Run("drifted set names each mismatched permission", func() {
		caps, err := s.model.CapabilitiesFor(id.RoleComplianceOfficer)
		s.Require().NoError(err)
		caps.CanApproveDocuments = true
		caps.CanExportReports = true

		mismatches, err := s.model.Diff(id.RoleComplianceOfficer, caps)
		s.NoError(err)
		s.Len(mismatches, 2)
		s.Contains(mismatches[0], string(PermApproveDocuments))
	})

	s.Run("unknown role is a configuration error", func() {
		_, err := s.model.Diff(id.Role("intern"), PermissionSet{})
		s.Error(err)
	})
}
