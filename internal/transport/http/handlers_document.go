package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/document"
	id "kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

type documentHandler struct {
	docs   *document.Service
	logger *slog.Logger
}

func newDocumentHandler(docs *document.Service, logger *slog.Logger) *documentHandler {
	return &documentHandler{docs: docs, logger: logger}
}

func (h *documentHandler) register(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Post("/documents/process-batch", h.handleProcessBatch)
	r.Get("/documents/{documentID}", h.handleGet)
	r.Post("/documents/{documentID}/process", h.handleProcess)
	r.Post("/documents/{documentID}/review", h.handleReview)
	r.Post("/documents/{documentID}/approval", h.handleApproval)
	r.Post("/documents/{documentID}/escalation", h.handleEscalation)
}

type uploadRequest struct {
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type"`
	Priority     string `json:"priority"`
	OCRText      string `json:"ocr_text"`

	docType  id.DocumentType
	priority document.Priority
}

func (r *uploadRequest) Validate() error {
	if r.FileName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "file_name is required")
	}
	r.docType = id.DocumentType(r.DocumentType)
	if !r.docType.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid document_type")
	}
	switch document.Priority(r.Priority) {
	case document.PriorityLow, document.PriorityNormal, document.PriorityHigh:
		r.priority = document.Priority(r.Priority)
	case "":
		r.priority = document.PriorityNormal
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid priority")
	}
	return nil
}

func (h *documentHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[uploadRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	doc, err := h.docs.Upload(ctx, requestcontext.Actor(ctx), document.UploadParams{
		FileName: req.FileName,
		Type:     req.docType,
		Priority: req.priority,
		OCRText:  req.OCRText,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *documentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.docs.Get(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *documentHandler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.docs.Process(ctx, requestcontext.Actor(ctx), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProcessResultResponse(*result))
}

type processBatchRequest struct {
	DocumentIDs []string `json:"document_ids"`

	ids []id.DocumentID
}

func (r *processBatchRequest) Validate() error {
	if len(r.DocumentIDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "document_ids are required")
	}
	r.ids = make([]id.DocumentID, 0, len(r.DocumentIDs))
	for _, raw := range r.DocumentIDs {
		docID, err := id.ParseDocumentID(raw)
		if err != nil {
			return err
		}
		r.ids = append(r.ids, docID)
	}
	return nil
}

func (h *documentHandler) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[processBatchRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	results := h.docs.ProcessBatch(ctx, requestcontext.Actor(ctx), req.ids)
	out := make([]processResultResponse, 0, len(results))
	for _, result := range results {
		out = append(out, toProcessResultResponse(result))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": out})
}

type reviewRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`

	action id.OfficerAction
}

func (r *reviewRequest) Validate() error {
	action, err := id.ParseOfficerAction(r.Action)
	if err != nil {
		return err
	}
	r.action = action
	return nil
}

func (h *documentHandler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[reviewRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	record, err := h.docs.Review(ctx, requestcontext.Actor(ctx), docID, req.action, req.Comment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(record))
}

type approvalRequest struct {
	Action        string `json:"action"`
	Justification string `json:"justification"`

	action id.ManagerAction
}

func (r *approvalRequest) Validate() error {
	action, err := id.ParseManagerAction(r.Action)
	if err != nil {
		return err
	}
	r.action = action
	return nil
}

func (h *documentHandler) handleApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[approvalRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	record, err := h.docs.Approve(ctx, requestcontext.Actor(ctx), docID, req.action, req.Justification)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(record))
}

func (h *documentHandler) handleEscalation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[approvalRequest](w, r, h.logger, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	record, err := h.docs.ResolveEscalation(ctx, requestcontext.Actor(ctx), docID, req.action, req.Justification)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(record))
}
