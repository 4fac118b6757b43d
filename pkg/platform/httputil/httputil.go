// Package httputil translates domain errors and payloads into JSON HTTP
// responses. It is the single place where error codes map to statuses, so
// handlers never pick status codes themselves.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "orgdesk/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a domain error as a JSON error envelope. Internal errors
// deliberately omit the description so infrastructure detail never reaches a
// client; everything else echoes the message, and validation errors carry
// per-field detail under "fields".
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	payload := map[string]any{"error": wireCode(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			payload["error_description"] = de.Message
			if len(de.Fields) > 0 {
				payload["fields"] = de.Fields
			}
		}
	}

	WriteJSON(w, StatusFor(code), payload)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func wireCode(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return string(code)
}
