// Package request assigns each inbound request an id and threads it through
// the request context, so logs, audit records and responses for one request
// share a correlation key.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"orgdesk/pkg/requestcontext"
)

// Header carries the request id on requests and responses. A caller-supplied
// id is kept so correlation can span an upstream proxy.
const Header = "X-Request-ID"

// Middleware ensures a request id is present in the context and echoes it on
// the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), id)
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
