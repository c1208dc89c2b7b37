package rbac

import (
	id "kycgate/pkg/domain"
)

// Permission names a single boolean capability. The string values appear in
// workflow step definitions and in audit details, so they stay stable.
type Permission string

const (
	PermUploadDocuments       Permission = "canUploadDocuments"
	PermViewOwnDocuments      Permission = "canViewOwnDocuments"
	PermViewTeamDocuments     Permission = "canViewTeamDocuments"
	PermViewAllDocuments      Permission = "canViewAllDocuments"
	PermProcessDocuments      Permission = "canProcessDocuments"
	PermApproveDocuments      Permission = "canApproveDocuments"
	PermRejectDocuments       Permission = "canRejectDocuments"
	PermReassignDocuments     Permission = "canReassignDocuments"
	PermProvideReviewFeedback Permission = "canProvideReviewFeedback"
	PermOverrideAI            Permission = "canOverrideAI"
	PermBulkProcess           Permission = "canBulkProcess"
	PermViewAnalytics         Permission = "canViewAnalytics"
	PermExportReports         Permission = "canExportReports"
	PermSearchDocuments       Permission = "canSearchDocuments"
	PermViewOwnAuditLogs      Permission = "canViewOwnAuditLogs"
	PermViewTeamAuditLogs     Permission = "canViewTeamAuditLogs"
	PermViewAllAuditLogs      Permission = "canViewAllAuditLogs"
)

// AllPermissions lists every capability in canonical order, used when
// diffing a live permission set against the matrix.
var AllPermissions = []Permission{
	PermUploadDocuments,
	PermViewOwnDocuments,
	PermViewTeamDocuments,
	PermViewAllDocuments,
	PermProcessDocuments,
	PermApproveDocuments,
	PermRejectDocuments,
	PermReassignDocuments,
	PermProvideReviewFeedback,
	PermOverrideAI,
	PermBulkProcess,
	PermViewAnalytics,
	PermExportReports,
	PermSearchDocuments,
	PermViewOwnAuditLogs,
	PermViewTeamAuditLogs,
	PermViewAllAuditLogs,
}

// PermissionSet is the per-role record of boolean capabilities. Static
// configuration, never mutated at runtime.
type PermissionSet struct {
	CanUploadDocuments       bool
	CanViewOwnDocuments      bool
	CanViewTeamDocuments     bool
	CanViewAllDocuments      bool
	CanProcessDocuments      bool
	CanApproveDocuments      bool
	CanRejectDocuments       bool
	CanReassignDocuments     bool
	CanProvideReviewFeedback bool
	CanOverrideAI            bool
	CanBulkProcess           bool
	CanViewAnalytics         bool
	CanExportReports         bool
	CanSearchDocuments       bool
	CanViewOwnAuditLogs      bool
	CanViewTeamAuditLogs     bool
	CanViewAllAuditLogs      bool
}

// Has reports whether the set grants the named capability.
func (p PermissionSet) Has(perm Permission) bool {
	switch perm {
	case PermUploadDocuments:
		return p.CanUploadDocuments
	case PermViewOwnDocuments:
		return p.CanViewOwnDocuments
	case PermViewTeamDocuments:
		return p.CanViewTeamDocuments
	case PermViewAllDocuments:
		return p.CanViewAllDocuments
	case PermProcessDocuments:
		return p.CanProcessDocuments
	case PermApproveDocuments:
		return p.CanApproveDocuments
	case PermRejectDocuments:
		return p.CanRejectDocuments
	case PermReassignDocuments:
		return p.CanReassignDocuments
	case PermProvideReviewFeedback:
		return p.CanProvideReviewFeedback
	case PermOverrideAI:
		return p.CanOverrideAI
	case PermBulkProcess:
		return p.CanBulkProcess
	case PermViewAnalytics:
		return p.CanViewAnalytics
	case PermExportReports:
		return p.CanExportReports
	case PermSearchDocuments:
		return p.CanSearchDocuments
	case PermViewOwnAuditLogs:
		return p.CanViewOwnAuditLogs
	case PermViewTeamAuditLogs:
		return p.CanViewTeamAuditLogs
	case PermViewAllAuditLogs:
		return p.CanViewAllAuditLogs
	}
	return false
}

// DataScope bounds which documents a role may read.
type DataScope string

const (
	ScopeOwn  DataScope = "OWN"
	ScopeTeam DataScope = "TEAM"
	ScopeAll  DataScope = "ALL"
)

// MatrixEntry is one row of the access control matrix: a role's canonical
// capabilities plus the policy metadata the compliance scans report on.
type MatrixEntry struct {
	Role          id.Role
	Permissions   PermissionSet
	Restrictions  []string
	DataScope     DataScope
	AuditRequired bool
}

// The single canonical role to capability mapping. Workflow gating, the
// compliance scans, and the access matrix report all read from this table;
// it is never duplicated elsewhere.
var accessControlMatrix = []MatrixEntry{
	{
		Role: id.RoleComplianceOfficer,
		Permissions: PermissionSet{
			CanUploadDocuments:       true,
			CanViewOwnDocuments:      true,
			CanProcessDocuments:      true,
			CanProvideReviewFeedback: true,
			CanViewAnalytics:         true,
			CanSearchDocuments:       true,
			CanViewOwnAuditLogs:      true,
		},
		Restrictions: []string{
			"Cannot approve or reject documents",
			"Cannot access bulk processing",
			"Cannot view documents outside own scope",
			"Cannot export reports",
		},
		DataScope:     ScopeOwn,
		AuditRequired: true,
	},
	{
		Role: id.RoleComplianceManager,
		Permissions: PermissionSet{
			CanUploadDocuments:       true,
			CanViewOwnDocuments:      true,
			CanViewTeamDocuments:     true,
			CanProcessDocuments:      true,
			CanApproveDocuments:      true,
			CanRejectDocuments:       true,
			CanReassignDocuments:     true,
			CanProvideReviewFeedback: true,
			CanOverrideAI:            true,
			CanBulkProcess:           true,
			CanViewAnalytics:         true,
			CanExportReports:         true,
			CanSearchDocuments:       true,
			CanViewOwnAuditLogs:      true,
			CanViewTeamAuditLogs:     true,
		},
		Restrictions: []string{
			"Cannot view all documents (only team scope)",
			"Cannot view all audit logs",
		},
		DataScope:     ScopeTeam,
		AuditRequired: true,
	},
	{
		Role: id.RoleCCO,
		Permissions: PermissionSet{
			CanViewOwnDocuments:      true,
			CanViewTeamDocuments:     true,
			CanViewAllDocuments:      true,
			CanProcessDocuments:      true,
			CanApproveDocuments:      true,
			CanRejectDocuments:       true,
			CanProvideReviewFeedback: true,
			CanOverrideAI:            true,
			CanBulkProcess:           true,
			CanViewAnalytics:         true,
			CanExportReports:         true,
			CanSearchDocuments:       true,
			CanViewOwnAuditLogs:      true,
			CanViewTeamAuditLogs:     true,
			CanViewAllAuditLogs:      true,
		},
		Restrictions: []string{
			"Cannot upload documents directly",
		},
		DataScope:     ScopeAll,
		AuditRequired: true,
	},
	{
		Role: id.RoleCISO,
		Permissions: PermissionSet{
			CanViewAllDocuments: true,
			CanViewAnalytics:    true,
			CanExportReports:    true,
			CanSearchDocuments:  true,
			CanViewAllAuditLogs: true,
		},
		Restrictions: []string{
			"Read-only access to all documents",
			"No operational permissions",
			"Security monitoring focus only",
		},
		DataScope:     ScopeAll,
		AuditRequired: true,
	},
	{
		Role: id.RoleInternalAuditor,
		Permissions: PermissionSet{
			CanViewAllDocuments: true,
			CanViewAnalytics:    true,
			CanExportReports:    true,
			CanSearchDocuments:  true,
			CanViewAllAuditLogs: true,
		},
		Restrictions: []string{
			"Read-only access to all data",
			"No operational permissions",
			"Audit and compliance monitoring only",
		},
		DataScope:     ScopeAll,
		AuditRequired: true,
	},
	{
		Role: id.RoleDPO,
		Permissions: PermissionSet{
			CanViewAllDocuments: true,
			CanViewAnalytics:    true,
			CanExportReports:    true,
			CanSearchDocuments:  true,
			CanViewOwnAuditLogs: true,
			CanViewAllAuditLogs: true,
		},
		Restrictions: []string{
			"Read-only access to all documents",
			"No operational permissions",
			"Privacy compliance focus",
		},
		DataScope:     ScopeAll,
		AuditRequired: true,
	},
	{
		Role: id.RoleExternalAuditor,
		Permissions: PermissionSet{
			CanViewAllDocuments: true,
			CanViewAnalytics:    true,
			CanExportReports:    true,
			CanSearchDocuments:  true,
			CanViewAllAuditLogs: true,
		},
		Restrictions: []string{
			"Read-only access to all data",
			"No operational permissions",
			"External audit access only",
		},
		DataScope:     ScopeAll,
		AuditRequired: true,
	},
	{
		Role:        id.RoleSystemAdmin,
		Permissions: PermissionSet{},
		Restrictions: []string{
			"No data access permissions",
			"System administration only",
			"Cannot view any business data",
		},
		DataScope:     ScopeOwn,
		AuditRequired: true,
	},
	{
		Role:        id.RoleMLEngineer,
		Permissions: PermissionSet{},
		Restrictions: []string{
			"No data access permissions",
			"AI/ML system access only",
			"Cannot view business data",
		},
		DataScope:     ScopeOwn,
		AuditRequired: true,
	},
}
