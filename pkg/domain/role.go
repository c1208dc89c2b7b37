package domain

import dErrors "kycgate/pkg/domain-errors"

// Role is the enumerated identity assigned at user creation. It is immutable
// and drives every access gate in the system.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type Role string

// Supported roles. Operational roles act on documents, supervisory roles
// approve, oversight and assurance roles observe.
const (
	RoleComplianceOfficer Role = "compliance_officer"
	RoleComplianceManager Role = "compliance_manager"
	RoleCCO               Role = "cco"
	RoleCISO              Role = "ciso"
	RoleSystemAdmin       Role = "system_admin"
	RoleMLEngineer        Role = "ml_engineer"
	RoleInternalAuditor   Role = "internal_auditor"
	RoleDPO               Role = "dpo"
	RoleExternalAuditor   Role = "external_auditor"

	// RoleSystem is the synthetic actor for automated pipeline steps such as
	// AI classification. It never belongs to a human user.
	RoleSystem Role = "system"
)

// validRoles is the single source of truth for assignable roles. RoleSystem is
// deliberately excluded: it cannot be assigned to a user at a trust boundary.
var validRoles = map[Role]bool{
	RoleComplianceOfficer: true,
	RoleComplianceManager: true,
	RoleCCO:               true,
	RoleCISO:              true,
	RoleSystemAdmin:       true,
	RoleMLEngineer:        true,
	RoleInternalAuditor:   true,
	RoleDPO:               true,
	RoleExternalAuditor:   true,
}

// AllRoles lists every assignable role in canonical order.
var AllRoles = []Role{
	RoleComplianceOfficer,
	RoleComplianceManager,
	RoleCCO,
	RoleCISO,
	RoleSystemAdmin,
	RoleMLEngineer,
	RoleInternalAuditor,
	RoleDPO,
	RoleExternalAuditor,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

// IsValid checks if the role is one of the assignable enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Actor couples an authenticated user with their role. The identity
// collaborator supplies it; the core trusts it as already authenticated.
type Actor struct {
	UserID UserID
	Role   Role
}
