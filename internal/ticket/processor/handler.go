package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"orgdesk/pkg/platform/sentinel"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/audit"
	"orgdesk/internal/bus"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/status"
	"orgdesk/internal/ticket/store"
)

// Notifier sends the post-insert confirmation. notify.Service satisfies it.
type Notifier interface {
	TicketReceived(ctx context.Context, t *models.Ticket) error
}

// SubmittedHandler stores one ticket type. One instance is registered per
// type; the type only drives validation at the gateway, so storage is
// uniform here.
//
// Ordering inside Handle is load-bearing: the ticket row and its audit
// record commit together first, and only then do the cache write and the
// notification run. Those two are best-effort and their failures stay out
// of the delivery result.
type SubmittedHandler struct {
	ticketType models.TicketType
	tickets    store.TicketStore
	uow        audit.UnitOfWork
	recorder   *audit.Recorder
	cache      *status.Cache
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewSubmittedHandler creates the handler for one ticket type.
func NewSubmittedHandler(
	ticketType models.TicketType,
	tickets store.TicketStore,
	uow audit.UnitOfWork,
	recorder *audit.Recorder,
	cache *status.Cache,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SubmittedHandler {
	return &SubmittedHandler{
		ticketType: ticketType,
		tickets:    tickets,
		uow:        uow,
		recorder:   recorder,
		cache:      cache,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
	}
}

// Handle stores the submitted ticket, audits the insert, caches the status
// and notifies the submitter.
func (h *SubmittedHandler) Handle(ctx context.Context, env *models.Envelope) error {
	if env.SubmitterID == "" || env.SubmitterEmail == "" {
		return bus.Permanent(fmt.Errorf("envelope for %s missing submitter identity", env.TicketID))
	}

	// The audit identity for a pipeline insert is the original submitter,
	// carried through the envelope rather than taken from any worker-side
	// ambient state.
	ctx = requestcontext.WithUserID(ctx, env.SubmitterID)
	if env.RequestID != "" {
		ctx = requestcontext.WithRequestID(ctx, env.RequestID)
	}

	if _, err := h.tickets.FindByTicketID(ctx, env.TicketID); err == nil {
		return fmt.Errorf("ticket %s already stored: %w", env.TicketID, sentinel.ErrDuplicate)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("check existing ticket %s: %w", env.TicketID, err)
	}

	t := &models.Ticket{
		ID:             uuid.New(),
		TicketID:       env.TicketID,
		Type:           h.ticketType,
		SubmitterID:    env.SubmitterID,
		SubmitterEmail: env.SubmitterEmail,
		Payload:        env.Fields,
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	err := h.uow.Within(ctx, func(ctx context.Context) error {
		if err := h.tickets.Insert(ctx, t); err != nil {
			return err
		}
		return h.recorder.RecordInsert(ctx, "tickets", t.ID.String(), t.Snapshot())
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			// Lost a race with a concurrent delivery of the same message;
			// the other one stored the row.
			return fmt.Errorf("ticket %s already stored: %w", env.TicketID, sentinel.ErrDuplicate)
		}
		return fmt.Errorf("store ticket %s: %w", env.TicketID, err)
	}

	if err := h.cache.Set(ctx, t.TicketID, string(models.StatusPending)); err != nil {
		h.logger.WarnContext(ctx, "status cache write failed", "ticket_id", t.TicketID, "error", err)
	}

	if err := h.notifier.TicketReceived(ctx, t); err != nil {
		h.metrics.NotificationFailures.Inc()
		h.logger.ErrorContext(ctx, "receipt notification failed", "ticket_id", t.TicketID, "error", err)
	}

	h.logger.InfoContext(ctx, "ticket stored",
		"ticket_id", t.TicketID,
		"ticket_type", string(t.Type),
	)
	return nil
}
