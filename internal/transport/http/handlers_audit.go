package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"orgdesk/pkg/platform/httputil"

	"orgdesk/internal/audit"
	"orgdesk/internal/audit/query"
)

type auditRecordResponse struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	TableName     string         `json:"table_name"`
	RecordID      string         `json:"record_id"`
	Action        string         `json:"action"`
	UserID        *string        `json:"user_id"`
	RequestID     *string        `json:"request_id,omitempty"`
	OldValues     map[string]any `json:"old_values,omitempty"`
	NewValues     map[string]any `json:"new_values,omitempty"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	Source        string         `json:"source"`
}

type auditPageResponse struct {
	Records    []auditRecordResponse `json:"records"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// handleAuditQuery serves the audit read surface. Redaction already happened
// in the query service based on the caller's role.
func (h *Handler) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		// Non-numeric input falls through as -1 so the service rejects it
		// with the same field error as an out-of-range value.
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			parsed = -1
		}
		limit = parsed
	}

	page, err := h.audit.List(r.Context(), query.Params{
		Table:    q.Get("table"),
		RecordID: q.Get("record_id"),
		UserID:   q.Get("user_id"),
		Action:   q.Get("action"),
		Since:    q.Get("since"),
		Limit:    limit,
		Cursor:   q.Get("cursor"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := auditPageResponse{
		Records:    make([]auditRecordResponse, 0, len(page.Records)),
		NextCursor: page.NextCursor,
	}
	for _, rec := range page.Records {
		resp.Records = append(resp.Records, toAuditRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func toAuditRecordResponse(rec audit.Record) auditRecordResponse {
	return auditRecordResponse{
		ID:            rec.ID.String(),
		Timestamp:     rec.Timestamp,
		TableName:     rec.TableName,
		RecordID:      rec.RecordID,
		Action:        string(rec.Action),
		UserID:        rec.UserID,
		RequestID:     rec.RequestID,
		OldValues:     rec.OldValues,
		NewValues:     rec.NewValues,
		ChangedFields: rec.ChangedFields,
		Source:        string(rec.Source),
	}
}
