// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and encode; business rules stay behind the service
// boundaries.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycgate/internal/compliance"
	"kycgate/internal/document"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/workflow"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/httputil"
)

// AuditReader is the read side of the audit log exposed to auditors.
type AuditReader interface {
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]audit.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Deps carries everything the router mounts.
type Deps struct {
	Documents  *document.Service
	Workflows  *workflow.Engine
	Compliance *compliance.Service
	Audit      AuditReader
	Auth       middleware.TokenValidator
	// RateLimit guards the API when set; nil disables limiting.
	RateLimit *middleware.RateLimiter
	Logger    *slog.Logger
}

// NewRouter wires middleware and all API routes. Health and metrics stay
// outside the auth gate.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		if deps.RateLimit != nil {
			api.Use(deps.RateLimit.Handler)
		}
		api.Use(middleware.RequireAuth(deps.Auth, deps.Logger))

		newDocumentHandler(deps.Documents, deps.Logger).register(api)
		newWorkflowHandler(deps.Workflows, deps.Logger).register(api)
		newComplianceHandler(deps.Compliance, deps.Logger).register(api)
		newAuditHandler(deps.Audit).register(api)
	})

	return r
}
