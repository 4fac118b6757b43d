package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/platform/httputil"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/ticket/gateway"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/review"
)

// ticketResponse is the wire form of a stored ticket.
type ticketResponse struct {
	TicketID       string         `json:"ticket_id"`
	TicketType     string         `json:"ticket_type"`
	Status         string         `json:"status"`
	SubmitterID    string         `json:"submitter_id"`
	SubmitterEmail string         `json:"submitter_email"`
	Fields         map[string]any `json:"fields,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy     string         `json:"reviewed_by,omitempty"`
	AdminNotes     string         `json:"admin_notes,omitempty"`
}

func toTicketResponse(t *models.Ticket) ticketResponse {
	return ticketResponse{
		TicketID:       t.TicketID,
		TicketType:     string(t.Type),
		Status:         string(t.Status),
		SubmitterID:    t.SubmitterID,
		SubmitterEmail: t.SubmitterEmail,
		Fields:         t.Payload,
		CreatedAt:      t.CreatedAt,
		ReviewedAt:     t.ReviewedAt,
		ReviewedBy:     t.ReviewedBy,
		AdminNotes:     t.AdminNotes,
	}
}

// handleSubmitTicket accepts a submission. The body is flat JSON:
// ticket_type next to the type-specific fields, mirroring the event
// envelope. 202 means accepted for processing, not processed.
func (h *Handler) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object"))
		return
	}

	ticketType, _ := body["ticket_type"].(string)
	delete(body, "ticket_type")

	ctx := r.Context()
	sub := gateway.Submission{
		Type:           models.TicketType(ticketType),
		SubmitterID:    requestcontext.UserID(ctx),
		SubmitterEmail: requestcontext.UserEmail(ctx),
		Fields:         body,
	}

	ticketID, err := h.gateway.Submit(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"ticket_id": ticketID,
		"status":    "accepted",
	})
}

// handleGetTicket returns the stored ticket, or just the cached pipeline
// state while the processor has not inserted the row yet.
func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	t, state, err := h.review.Get(r.Context(), ticketID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if t == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"ticket_id": ticketID,
			"status":    state,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTicketResponse(t))
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// handleReviewTicket applies an admin decision to a pending ticket.
func (h *Handler) handleReviewTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must be a JSON object"))
		return
	}

	t, err := h.review.Decide(r.Context(), ticketID, review.Decision(req.Decision), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTicketResponse(t))
}
