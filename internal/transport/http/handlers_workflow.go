package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/workflow"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

type workflowHandler struct {
	wf     *workflow.Engine
	logger *slog.Logger
}

func newWorkflowHandler(wf *workflow.Engine, logger *slog.Logger) *workflowHandler {
	return &workflowHandler{wf: wf, logger: logger}
}

func (h *workflowHandler) register(r chi.Router) {
	r.Post("/workflows", h.handleStart)
	r.Get("/workflows/timeouts", h.handleTimeouts)
	r.Get("/workflows/{instanceID}", h.handleStatus)
	r.Post("/workflows/{instanceID}/steps/{stepID}", h.handleExecuteStep)
	r.Get("/documents/{documentID}/decisions", h.handleDecisionHistory)
	r.Get("/documents/{documentID}/workflow", h.handleActiveWorkflow)
}

type startWorkflowRequest struct {
	WorkflowType string `json:"workflow_type"`
	DocumentID   string `json:"document_id"`

	workflowType workflow.WorkflowType
	documentID   id.DocumentID
}

func (r *startWorkflowRequest) Validate() error {
	switch workflow.WorkflowType(r.WorkflowType) {
	case workflow.WorkflowDocumentProcessing, workflow.WorkflowBulkProcessing, workflow.WorkflowRAGQuery:
		r.workflowType = workflow.WorkflowType(r.WorkflowType)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid workflow_type")
	}
	docID, err := id.ParseDocumentID(r.DocumentID)
	if err != nil {
		return err
	}
	r.documentID = docID
	return nil
}

func (h *workflowHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[startWorkflowRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	instance, err := h.wf.StartWorkflow(ctx, requestcontext.Actor(ctx), req.workflowType, req.documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toInstanceResponse(instance))
}

type executeStepRequest struct {
	Outcome string         `json:"outcome"`
	Details map[string]any `json:"details"`

	outcome workflow.StepOutcome
}

func (r *executeStepRequest) Validate() error {
	switch workflow.StepOutcome(r.Outcome) {
	case workflow.OutcomeApproved, workflow.OutcomeRejected, workflow.OutcomeEscalated:
		r.outcome = workflow.StepOutcome(r.Outcome)
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid outcome")
	}
	return nil
}

func (h *workflowHandler) handleExecuteStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instanceID, err := id.ParseWorkflowInstanceID(chi.URLParam(r, "instanceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stepID := chi.URLParam(r, "stepID")

	req, ok := httputil.DecodeAndPrepare[executeStepRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	instance, err := h.wf.ExecuteStep(ctx, requestcontext.Actor(ctx), instanceID, stepID, req.outcome, req.Details)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toInstanceResponse(instance))
}

func (h *workflowHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	instanceID, err := id.ParseWorkflowInstanceID(chi.URLParam(r, "instanceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	instance, err := h.wf.GetWorkflowStatus(r.Context(), instanceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toInstanceResponse(instance))
}

func (h *workflowHandler) handleActiveWorkflow(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	instance, err := h.wf.ActiveWorkflowForDocument(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toInstanceResponse(instance))
}

func (h *workflowHandler) handleDecisionHistory(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.wf.DecisionHistory(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]decisionResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toDecisionResponse(record))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"decisions": out})
}

func (h *workflowHandler) handleTimeouts(w http.ResponseWriter, r *http.Request) {
	breaches, err := h.wf.CheckTimeouts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]breachResponse, 0, len(breaches))
	for _, breach := range breaches {
		out = append(out, toBreachResponse(breach))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"breaches": out})
}
