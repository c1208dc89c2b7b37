package workflow

import (
	"fmt"
	"time"

	"kycgate/internal/rbac"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Step is one stage of a canonical workflow. Steps are static configuration;
// instances track position through them.
type Step struct {
	ID           string
	Name         string
	Requirements rbac.StepRequirements
	Position     int
	IsRequired   bool
	// Timeout is zero for steps with no deadline.
	Timeout time.Duration
}

// Step identifiers in the document processing workflow.
const (
	StepUpload           = "upload"
	StepAIClassification = "ai_classification"
	StepOfficerReview    = "officer_review"
	StepManagerApproval  = "manager_approval"
	StepCCOOversight     = "cco_oversight"
)

// Step identifiers in the bulk processing workflow.
const (
	StepBulkUpload       = "bulk_upload"
	StepBulkAIProcessing = "bulk_ai_processing"
	StepBulkReview       = "bulk_review"
	StepBulkApproval     = "bulk_approval"
)

// Step identifiers in the RAG query workflow.
const (
	StepRAGQuery = "rag_query"
	StepRAGAudit = "rag_audit"
)

var documentProcessingSteps = []Step{
	{
		ID:   StepUpload,
		Name: "Document Upload",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleComplianceOfficer, id.RoleComplianceManager},
			Permissions: []rbac.Permission{rbac.PermUploadDocuments},
		},
		Position:   1,
		IsRequired: true,
	},
	{
		ID:   StepAIClassification,
		Name: "AI Document Classification",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleSystem},
			Permissions: []rbac.Permission{rbac.PermProcessDocuments},
		},
		Position:   2,
		IsRequired: true,
	},
	{
		ID:   StepOfficerReview,
		Name: "Compliance Officer Review",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleComplianceOfficer, id.RoleComplianceManager},
			Permissions: []rbac.Permission{rbac.PermProvideReviewFeedback},
		},
		Position:   3,
		IsRequired: true,
		Timeout:    24 * time.Hour,
	},
	{
		ID:   StepManagerApproval,
		Name: "Manager Approval (if disagreed)",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleComplianceManager, id.RoleCCO},
			Permissions: []rbac.Permission{rbac.PermApproveDocuments},
		},
		Position:   4,
		IsRequired: false,
		Timeout:    48 * time.Hour,
	},
	{
		ID:   StepCCOOversight,
		Name: "CCO Final Oversight (if escalated)",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleCCO},
			Permissions: []rbac.Permission{rbac.PermApproveDocuments},
		},
		Position:   5,
		IsRequired: false,
		Timeout:    72 * time.Hour,
	},
}

var bulkProcessingSteps = []Step{
	{
		ID:   StepBulkUpload,
		Name: "Bulk Document Upload",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleComplianceManager, id.RoleCCO},
			Permissions: []rbac.Permission{rbac.PermBulkProcess},
		},
		Position:   1,
		IsRequired: true,
	},
	{
		ID:   StepBulkAIProcessing,
		Name: "Bulk AI Processing",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleSystem},
			Permissions: []rbac.Permission{rbac.PermProcessDocuments},
		},
		Position:   2,
		IsRequired: true,
	},
	{
		ID:   StepBulkReview,
		Name: "Bulk Review & Validation",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleComplianceManager, id.RoleCCO},
			Permissions: []rbac.Permission{rbac.PermApproveDocuments},
		},
		Position:   3,
		IsRequired: true,
		Timeout:    72 * time.Hour,
	},
	{
		ID:   StepBulkApproval,
		Name: "Final Bulk Approval",
		Requirements: rbac.StepRequirements{
			Roles:       []id.Role{id.RoleCCO},
			Permissions: []rbac.Permission{rbac.PermApproveDocuments},
		},
		Position:   4,
		IsRequired: true,
		Timeout:    24 * time.Hour,
	},
}

var ragQuerySteps = []Step{
	{
		ID:   StepRAGQuery,
		Name: "RAG Query Execution",
		Requirements: rbac.StepRequirements{
			Roles: []id.Role{
				id.RoleComplianceOfficer, id.RoleComplianceManager, id.RoleCCO,
				id.RoleCISO, id.RoleInternalAuditor, id.RoleDPO, id.RoleExternalAuditor,
			},
			Permissions: []rbac.Permission{rbac.PermSearchDocuments},
		},
		Position:   1,
		IsRequired: true,
	},
	{
		ID:   StepRAGAudit,
		Name: "Query Audit Logging",
		Requirements: rbac.StepRequirements{
			Roles: []id.Role{id.RoleSystem},
		},
		Position:   2,
		IsRequired: true,
	},
}

var workflows = map[WorkflowType][]Step{
	WorkflowDocumentProcessing: documentProcessingSteps,
	WorkflowBulkProcessing:     bulkProcessingSteps,
	WorkflowRAGQuery:           ragQuerySteps,
}

// Steps returns the ordered step list for a workflow type.
func Steps(wt WorkflowType) ([]Step, error) {
	steps, ok := workflows[wt]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("unknown workflow type %q", wt))
	}
	return steps, nil
}

// FindStep resolves one step of a workflow by ID. An unknown step in a known
// workflow is a caller error, not a configuration error.
func FindStep(wt WorkflowType, stepID string) (Step, error) {
	steps, err := Steps(wt)
	if err != nil {
		return Step{}, err
	}
	for _, step := range steps {
		if step.ID == stepID {
			return step, nil
		}
	}
	return Step{}, dErrors.New(dErrors.CodeInvalidInput,
		fmt.Sprintf("invalid workflow step %q", stepID))
}

// NextStep computes the step that follows currentStep for a directional
// outcome. On approval the scan moves to the next required step; on
// escalation it moves to the first later non-required step. A zero Step with
// ok=false means the workflow is complete.
func NextStep(wt WorkflowType, currentStep Step, outcome StepOutcome) (Step, bool) {
	steps, err := Steps(wt)
	if err != nil {
		return Step{}, false
	}

	switch outcome {
	case OutcomeApproved:
		for _, step := range steps {
			if step.Position > currentStep.Position && step.IsRequired {
				return step, true
			}
		}
	case OutcomeEscalated:
		for _, step := range steps {
			if step.Position > currentStep.Position && !step.IsRequired {
				return step, true
			}
		}
	}
	// Rejection and exhausted scans both end the workflow.
	return Step{}, false
}

// ValidateDefinitions checks every workflow's step table at startup: unique
// step IDs, strictly increasing positions, and role/permission references
// that resolve against the permission model.
func ValidateDefinitions(model *rbac.Model) error {
	for wt, steps := range workflows {
		seen := make(map[string]bool, len(steps))
		lastPos := 0
		for _, step := range steps {
			if seen[step.ID] {
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("workflow %s: duplicate step %q", wt, step.ID))
			}
			seen[step.ID] = true

			if step.Position <= lastPos {
				return dErrors.New(dErrors.CodeInvariantViolation,
					fmt.Sprintf("workflow %s: step %q out of order", wt, step.ID))
			}
			lastPos = step.Position

			for _, role := range step.Requirements.Roles {
				if role == id.RoleSystem {
					continue
				}
				if _, err := model.CapabilitiesFor(role); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInvariantViolation,
						fmt.Sprintf("workflow %s: step %q references unknown role", wt, step.ID))
				}
			}
		}
	}
	return nil
}
