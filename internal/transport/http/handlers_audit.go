package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type auditHandler struct {
	reader AuditReader
}

func newAuditHandler(reader AuditReader) *auditHandler {
	return &auditHandler{reader: reader}
}

func (h *auditHandler) register(r chi.Router) {
	r.Get("/audit/entries", h.handleList)
}

// handleList serves recent audit entries, optionally scoped to one resource
// via resource_type and resource_id query parameters.
func (h *auditHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resourceType := q.Get("resource_type")
	resourceID := q.Get("resource_id")

	if (resourceType == "") != (resourceID == "") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput,
			"resource_type and resource_id must be supplied together"))
		return
	}

	var err error
	entries := []auditEntryResponse{}
	if resourceType != "" {
		raw, listErr := h.reader.ListByResource(r.Context(), resourceType, resourceID)
		err = listErr
		for _, e := range raw {
			entries = append(entries, toAuditEntryResponse(e))
		}
	} else {
		limit := defaultAuditLimit
		if rawLimit := q.Get("limit"); rawLimit != "" {
			limit, err = strconv.Atoi(rawLimit)
			if err != nil || limit < 1 || limit > maxAuditLimit {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid limit"))
				return
			}
		}
		raw, listErr := h.reader.ListRecent(r.Context(), limit)
		err = listErr
		for _, e := range raw {
			entries = append(entries, toAuditEntryResponse(e))
		}
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
