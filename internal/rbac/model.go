// Package rbac holds the static role to capability mapping and the pure
// lookup functions that gate every workflow step. Nothing in this package
// performs I/O or mutates state after construction.
package rbac

import (
	"fmt"
	"slices"

	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// StepRequirements is what a workflow step demands of an actor: membership
// in one of the roles and every listed permission.
type StepRequirements struct {
	Roles       []id.Role
	Permissions []Permission
}

// Model is the read-only permission lookup shared by the workflow engine and
// the compliance scans.
type Model struct {
	byRole map[id.Role]MatrixEntry
}

// NewModel builds the lookup from the canonical matrix and validates it.
// A broken table is a programmer error and fails construction loudly.
func NewModel() (*Model, error) {
	byRole := make(map[id.Role]MatrixEntry, len(accessControlMatrix))
	for _, entry := range accessControlMatrix {
		if _, dup := byRole[entry.Role]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("duplicate access matrix entry for role %s", entry.Role))
		}
		byRole[entry.Role] = entry
	}
	for _, role := range id.AllRoles {
		if _, ok := byRole[role]; !ok {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("no access matrix entry for role %s", role))
		}
	}
	return &Model{byRole: byRole}, nil
}

// CapabilitiesFor returns the canonical permission set for a role.
// Unknown roles signal a configuration error, not a request error.
func (m *Model) CapabilitiesFor(role id.Role) (PermissionSet, error) {
	entry, ok := m.byRole[role]
	if !ok {
		return PermissionSet{}, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("unknown role %q", role))
	}
	return entry.Permissions, nil
}

// Entry returns the full matrix row for a role, including restrictions and
// data scope metadata.
func (m *Model) Entry(role id.Role) (MatrixEntry, error) {
	entry, ok := m.byRole[role]
	if !ok {
		return MatrixEntry{}, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("unknown role %q", role))
	}
	return entry, nil
}

// Matrix returns every matrix row in canonical order.
func (m *Model) Matrix() []MatrixEntry {
	return slices.Clone(accessControlMatrix)
}

// StepAccess reports whether a role may act on a step: the role must be in
// the step's required roles and hold every required permission. The returned
// reason is empty when access is granted.
//
// The system role bypasses the matrix; it is only ever attached to internal
// pipeline stages, never to a bearer token.
func (m *Model) StepAccess(role id.Role, req StepRequirements) (bool, string) {
	if role == id.RoleSystem {
		if slices.Contains(req.Roles, id.RoleSystem) {
			return true, ""
		}
		return false, fmt.Sprintf("role %s not authorized for this step", role)
	}

	if !slices.Contains(req.Roles, role) {
		return false, fmt.Sprintf("role %s not authorized for this step", role)
	}

	caps, err := m.CapabilitiesFor(role)
	if err != nil {
		return false, err.Error()
	}
	for _, perm := range req.Permissions {
		if !caps.Has(perm) {
			return false, fmt.Sprintf("missing permission: %s", perm)
		}
	}
	return true, ""
}

// Diff compares a live permission set against the canonical entry for a
// role and describes every mismatch. An empty result means the live set is
// compliant.
func (m *Model) Diff(role id.Role, live PermissionSet) ([]string, error) {
	entry, ok := m.byRole[role]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("unknown role %q", role))
	}

	var mismatches []string
	for _, perm := range AllPermissions {
		expected := entry.Permissions.Has(perm)
		actual := live.Has(perm)
		if expected != actual {
			mismatches = append(mismatches,
				fmt.Sprintf("permission mismatch for %s: expected %t, got %t", perm, expected, actual))
		}
	}
	return mismatches, nil
}
