// Package admin gates administrative routes on the caller's role claim.
package admin

import (
	"log/slog"
	"net/http"
	"slices"

	"orgdesk/pkg/requestcontext"
)

// RequireRole rejects requests whose authenticated role matches none of the
// given roles. Must run after auth.RequireAuth, which populates the context.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !slices.Contains(roles, requestcontext.Role(ctx)) {
				logger.WarnContext(ctx, "forbidden, role mismatch",
					"required_roles", roles,
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"insufficient role"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
