// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// services, and encode; error translation lives in pkg/platform/httputil and
// business logic stays in internal services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orgdesk/pkg/platform/httputil"
	"orgdesk/pkg/platform/middleware/admin"
	"orgdesk/pkg/platform/middleware/auth"
	"orgdesk/pkg/platform/middleware/metadata"
	"orgdesk/pkg/platform/middleware/request"
	"orgdesk/pkg/platform/middleware/requesttime"

	"orgdesk/internal/audit/query"
	"orgdesk/internal/org"
	"orgdesk/internal/ticket/gateway"
	"orgdesk/internal/ticket/review"
)

// RoleAdmin may review tickets and mutate organizations. Audit reads admit
// admins and compliance; compliance additionally sees unredacted values.
const RoleAdmin = "admin"

// Handler carries the services the routes delegate to.
type Handler struct {
	gateway *gateway.Service
	review  *review.Service
	orgs    *org.Service
	audit   *query.Service
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(gw *gateway.Service, rv *review.Service, orgs *org.Service, audit *query.Service, logger *slog.Logger) *Handler {
	return &Handler{gateway: gw, review: rv, orgs: orgs, audit: audit, logger: logger}
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(h *Handler, verifier auth.Verifier) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(accessLog(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(verifier, h.logger))
		r.Use(chimiddleware.AllowContentType("application/json"))

		r.Post("/tickets", h.handleSubmitTicket)
		r.Get("/tickets/{ticketID}", h.handleGetTicket)
		r.Get("/organizations/{organizationID}", h.handleGetOrganization)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireRole(h.logger, RoleAdmin))

			r.Post("/tickets/{ticketID}/review", h.handleReviewTicket)
			r.Post("/organizations", h.handleCreateOrganization)
			r.Patch("/organizations/{organizationID}", h.handleUpdateOrganization)
		})

		r.With(admin.RequireRole(h.logger, RoleAdmin, query.RoleCompliance)).
			Get("/audit", h.handleAuditQuery)
	})

	return r
}
