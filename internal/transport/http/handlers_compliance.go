package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/compliance"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

type complianceHandler struct {
	svc    *compliance.Service
	logger *slog.Logger
}

func newComplianceHandler(svc *compliance.Service, logger *slog.Logger) *complianceHandler {
	return &complianceHandler{svc: svc, logger: logger}
}

func (h *complianceHandler) register(r chi.Router) {
	r.Get("/compliance/report", h.handleReport)
	r.Post("/compliance/violations", h.handleLogViolation)
}

type violationResponse struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	ActorID     string `json:"actor_id,omitempty"`
	Role        string `json:"role,omitempty"`
	Type        string `json:"violation_type"`
	Resource    string `json:"resource,omitempty"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Remediation string `json:"remediation"`
	Status      string `json:"status"`
}

func toViolationResponse(v compliance.Violation) violationResponse {
	out := violationResponse{
		ID:          v.ID.String(),
		Timestamp:   v.Timestamp.UTC().Format(time.RFC3339),
		Role:        string(v.Role),
		Type:        string(v.Type),
		Resource:    v.Resource,
		Severity:    string(v.Severity),
		Description: v.Description,
		Remediation: v.Remediation,
		Status:      string(v.Status),
	}
	if !v.ActorID.IsNil() {
		out.ActorID = v.ActorID.String()
	}
	return out
}

type matrixEntryResponse struct {
	Role          string   `json:"role"`
	DataScope     string   `json:"data_scope"`
	AuditRequired bool     `json:"audit_required"`
	Restrictions  []string `json:"restrictions"`
}

type complianceReportResponse struct {
	OverallCompliance int                   `json:"overall_compliance"`
	Violations        []violationResponse   `json:"violations"`
	AccessMatrix      []matrixEntryResponse `json:"access_matrix"`
	Recommendations   []string              `json:"recommendations"`
	LastAudit         string                `json:"last_audit"`
	NextAuditDue      string                `json:"next_audit_due"`
}

func toComplianceReportResponse(report *compliance.Report) complianceReportResponse {
	out := complianceReportResponse{
		OverallCompliance: report.OverallCompliance,
		Violations:        make([]violationResponse, 0, len(report.Violations)),
		AccessMatrix:      make([]matrixEntryResponse, 0, len(report.AccessMatrix)),
		Recommendations:   append([]string{}, report.Recommendations...),
		LastAudit:         report.LastAudit.UTC().Format(time.RFC3339),
		NextAuditDue:      report.NextAuditDue.UTC().Format(time.RFC3339),
	}
	for _, v := range report.Violations {
		out.Violations = append(out.Violations, toViolationResponse(v))
	}
	for _, entry := range report.AccessMatrix {
		out.AccessMatrix = append(out.AccessMatrix, matrixEntryResponse{
			Role:          string(entry.Role),
			DataScope:     string(entry.DataScope),
			AuditRequired: entry.AuditRequired,
			Restrictions:  append([]string{}, entry.Restrictions...),
		})
	}
	return out
}

// handleReport serves the compliance report as JSON, or as the rendered
// markdown document when format=markdown is requested.
func (h *complianceHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.svc.CheckCompliance(ctx, requestcontext.Actor(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(compliance.RenderReport(report)))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toComplianceReportResponse(report))
}

type logViolationRequest struct {
	ActorID     string `json:"actor_id"`
	Role        string `json:"role"`
	Type        string `json:"violation_type"`
	Resource    string `json:"resource"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Remediation string `json:"remediation"`

	actorID  id.UserID
	role     id.Role
	vtype    compliance.ViolationType
	severity compliance.Severity
}

func (r *logViolationRequest) Validate() error {
	switch compliance.ViolationType(r.Type) {
	case compliance.ViolationAccessDenied, compliance.ViolationPermissionMismatch,
		compliance.ViolationWorkflow, compliance.ViolationDataAccess:
		r.vtype = compliance.ViolationType(r.Type)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid violation_type")
	}
	switch compliance.Severity(r.Severity) {
	case compliance.SeverityLow, compliance.SeverityMedium, compliance.SeverityHigh, compliance.SeverityCritical:
		r.severity = compliance.Severity(r.Severity)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid severity")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "description is required")
	}
	if r.ActorID != "" {
		actorID, err := id.ParseUserID(r.ActorID)
		if err != nil {
			return err
		}
		r.actorID = actorID
	}
	if r.Role != "" {
		role, err := id.ParseRole(r.Role)
		if err != nil {
			return err
		}
		r.role = role
	}
	return nil
}

func (h *complianceHandler) handleLogViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[logViolationRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	recorded := h.svc.LogViolation(ctx, compliance.Violation{
		ActorID:     req.actorID,
		Role:        req.role,
		Type:        req.vtype,
		Resource:    req.Resource,
		Severity:    req.severity,
		Description: req.Description,
		Remediation: req.Remediation,
	})
	httputil.WriteJSON(w, http.StatusCreated, toViolationResponse(recorded))
}
