package httptransport

import (
	"time"

	"kycgate/internal/document"
	"kycgate/internal/workflow"
	"kycgate/pkg/platform/audit"
)

// Wire DTOs. Typed IDs serialize as strings and optional sections as
// pointers; domain structs never hit the encoder directly.

type documentResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"document_type"`
	Status        string  `json:"status"`
	Priority      string  `json:"priority"`
	UploadedBy    string  `json:"uploaded_by"`
	FileName      string  `json:"file_name"`
	FilePath      string  `json:"file_path"`
	OCRConfidence float64 `json:"ocr_confidence"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toDocumentResponse(d *document.Document) documentResponse {
	return documentResponse{
		ID:            d.ID.String(),
		Type:          string(d.Type),
		Status:        string(d.Status),
		Priority:      string(d.Priority),
		UploadedBy:    d.UploadedBy.String(),
		FileName:      d.FileName,
		FilePath:      d.FilePath,
		OCRConfidence: d.OCRConfidence,
		CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type processResultResponse struct {
	DocumentID      string  `json:"document_id"`
	Verdict         string  `json:"verdict,omitempty"`
	Confidence      float64 `json:"confidence"`
	DuplicatesFound int     `json:"duplicates_found"`
	Error           string  `json:"error,omitempty"`
}

func toProcessResultResponse(r document.Result) processResultResponse {
	out := processResultResponse{
		DocumentID:      r.DocumentID.String(),
		Verdict:         string(r.Verdict),
		Confidence:      r.Confidence,
		DuplicatesFound: r.DuplicatesFound,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type reviewSection struct {
	ReviewerID string `json:"reviewer_id"`
	Action     string `json:"action"`
	Comment    string `json:"comment,omitempty"`
	Timestamp  string `json:"timestamp"`
}

type decisionResponse struct {
	ID           string  `json:"id"`
	DocumentID   string  `json:"document_id"`
	Status       string  `json:"status"`
	AIVerdict    string  `json:"ai_verdict"`
	AIConfidence float64 `json:"ai_confidence"`
	AIReasoning  string  `json:"ai_reasoning"`
	BiasScore    float64 `json:"bias_score"`
	ModelVersion string  `json:"model_version"`

	OfficerReview *reviewSection `json:"officer_review,omitempty"`
	ManagerReview *reviewSection `json:"manager_review,omitempty"`

	FinalVerdict *string `json:"final_verdict,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toDecisionResponse(d *workflow.DecisionRecord) decisionResponse {
	out := decisionResponse{
		ID:           d.ID.String(),
		DocumentID:   d.DocumentID.String(),
		Status:       string(d.Status),
		AIVerdict:    string(d.AIVerdict),
		AIConfidence: d.AIConfidence,
		AIReasoning:  d.AIReasoning,
		BiasScore:    d.BiasScore,
		ModelVersion: d.ModelVersion,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if d.OfficerAction != nil {
		out.OfficerReview = &reviewSection{
			ReviewerID: d.OfficerID.String(),
			Action:     string(*d.OfficerAction),
			Comment:    d.OfficerComment,
		}
		if d.OfficerTimestamp != nil {
			out.OfficerReview.Timestamp = d.OfficerTimestamp.UTC().Format(time.RFC3339)
		}
	}
	if d.ManagerAction != nil {
		out.ManagerReview = &reviewSection{
			ReviewerID: d.ManagerID.String(),
			Action:     string(*d.ManagerAction),
			Comment:    d.ManagerJustification,
		}
		if d.ManagerTimestamp != nil {
			out.ManagerReview.Timestamp = d.ManagerTimestamp.UTC().Format(time.RFC3339)
		}
	}
	if d.FinalVerdict != nil {
		v := string(*d.FinalVerdict)
		out.FinalVerdict = &v
	}
	return out
}

type trailEntryResponse struct {
	Timestamp string         `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Role      string         `json:"role"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

type instanceResponse struct {
	ID             string               `json:"id"`
	WorkflowType   string               `json:"workflow_type"`
	DocumentID     string               `json:"document_id"`
	CurrentStep    string               `json:"current_step,omitempty"`
	CompletedSteps []string             `json:"completed_steps"`
	PendingSteps   []string             `json:"pending_steps"`
	Status         string               `json:"status"`
	AssignedUsers  []string             `json:"assigned_users"`
	AuditTrail     []trailEntryResponse `json:"audit_trail"`
	StepAssignedAt string               `json:"step_assigned_at"`
	CreatedAt      string               `json:"created_at"`
	UpdatedAt      string               `json:"updated_at"`
}

func toInstanceResponse(in *workflow.Instance) instanceResponse {
	out := instanceResponse{
		ID:             in.ID.String(),
		WorkflowType:   string(in.WorkflowType),
		DocumentID:     in.DocumentID.String(),
		CurrentStep:    in.CurrentStep,
		CompletedSteps: append([]string{}, in.CompletedSteps...),
		PendingSteps:   append([]string{}, in.PendingSteps...),
		Status:         string(in.Status),
		AssignedUsers:  make([]string, 0, len(in.AssignedUsers)),
		AuditTrail:     make([]trailEntryResponse, 0, len(in.AuditTrail)),
		StepAssignedAt: in.StepAssignedAt.UTC().Format(time.RFC3339),
		CreatedAt:      in.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      in.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, u := range in.AssignedUsers {
		out.AssignedUsers = append(out.AssignedUsers, u.String())
	}
	for _, e := range in.AuditTrail {
		entry := trailEntryResponse{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Role:      string(e.Role),
			Action:    e.Action,
			Details:   e.Details,
		}
		if !e.UserID.IsNil() {
			entry.UserID = e.UserID.String()
		}
		out.AuditTrail = append(out.AuditTrail, entry)
	}
	return out
}

type breachResponse struct {
	InstanceID   string `json:"instance_id"`
	DocumentID   string `json:"document_id"`
	WorkflowType string `json:"workflow_type"`
	StepID       string `json:"step_id"`
	Deadline     string `json:"deadline"`
	OverdueSecs  int64  `json:"overdue_seconds"`
}

func toBreachResponse(b workflow.TimeoutBreach) breachResponse {
	return breachResponse{
		InstanceID:   b.InstanceID.String(),
		DocumentID:   b.DocumentID.String(),
		WorkflowType: string(b.WorkflowType),
		StepID:       b.StepID,
		Deadline:     b.Deadline.UTC().Format(time.RFC3339),
		OverdueSecs:  int64(b.Overdue.Seconds()),
	}
}

type auditEntryResponse struct {
	Timestamp    string         `json:"timestamp"`
	Category     string         `json:"category"`
	ActorID      string         `json:"actor_id,omitempty"`
	Role         string         `json:"role"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Success      bool           `json:"success"`
	Details      map[string]any `json:"details,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	ClientIP     string         `json:"client_ip,omitempty"`
}

func toAuditEntryResponse(e audit.Entry) auditEntryResponse {
	out := auditEntryResponse{
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339),
		Category:     string(e.Category),
		Role:         string(e.Role),
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Success:      e.Success,
		Details:      e.Details,
		RequestID:    e.RequestID,
		ClientIP:     e.ClientIP,
	}
	if !e.ActorID.IsNil() {
		out.ActorID = e.ActorID.String()
	}
	return out
}
