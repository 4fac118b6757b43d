// Package review applies admin decisions to pending tickets.
package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/platform/sentinel"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/audit"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/status"
	"orgdesk/internal/ticket/store"
)

// Decision is a reviewer's verdict on a pending ticket.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) status() (models.TicketStatus, bool) {
	switch d {
	case DecisionApprove:
		return models.StatusApproved, true
	case DecisionReject:
		return models.StatusRejected, true
	default:
		return "", false
	}
}

// Notifier informs the submitter of the outcome. notify.Service satisfies it.
type Notifier interface {
	TicketDecided(ctx context.Context, t *models.Ticket) error
}

// Service transitions tickets out of pending. Approved and rejected are
// terminal, so a decision can be applied exactly once per ticket.
type Service struct {
	tickets  store.TicketStore
	uow      audit.UnitOfWork
	recorder *audit.Recorder
	cache    *status.Cache
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a review service.
func New(
	tickets store.TicketStore,
	uow audit.UnitOfWork,
	recorder *audit.Recorder,
	cache *status.Cache,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		tickets:  tickets,
		uow:      uow,
		recorder: recorder,
		cache:    cache,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Decide applies a decision to a pending ticket and returns the updated
// ticket. The reviewer's identity comes from the request context; the status
// change and its audit record commit in one transaction.
func (s *Service) Decide(ctx context.Context, ticketID string, decision Decision, notes string) (*models.Ticket, error) {
	ctx, span := otel.Tracer("orgdesk/review").Start(ctx, "review.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("decision", string(decision)),
	)

	newStatus, ok := decision.status()
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown decision %q", decision).
			WithFields(map[string]string{"decision": "must be approve or reject"})
	}

	t, err := s.tickets.FindByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "ticket %s not found", ticketID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load ticket")
	}
	if t.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeConflict, "ticket %s is already %s", t.TicketID, t.Status)
	}

	before := t.Snapshot()

	now := time.Now().UTC()
	t.Status = newStatus
	t.ReviewedAt = &now
	t.ReviewedBy = requestcontext.UserID(ctx)
	t.AdminNotes = notes

	err = s.uow.Within(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, t); err != nil {
			return err
		}
		return s.recorder.RecordUpdate(ctx, "tickets", t.ID.String(), before, t.Snapshot())
	})
	if err != nil {
		// Another reviewer won the race between our read and the
		// compare-and-swap write.
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "ticket %s was already decided", ticketID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "apply decision")
	}

	if err := s.cache.Set(ctx, t.TicketID, string(t.Status)); err != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "ticket_id", t.TicketID, "error", err)
	}

	if err := s.notifier.TicketDecided(ctx, t); err != nil {
		s.metrics.NotificationFailures.Inc()
		s.logger.ErrorContext(ctx, "decision notification failed", "ticket_id", t.TicketID, "error", err)
	}

	s.logger.InfoContext(ctx, "ticket decided",
		"ticket_id", t.TicketID,
		"status", string(t.Status),
		"reviewed_by", t.ReviewedBy,
	)
	return t, nil
}

// Get returns a ticket by code, with the cached pipeline state when the row
// is not yet visible (the window between accept and the processor's insert).
func (s *Service) Get(ctx context.Context, ticketID string) (*models.Ticket, string, error) {
	t, err := s.tickets.FindByTicketID(ctx, ticketID)
	if err == nil {
		return t, string(t.Status), nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "load ticket")
	}

	state, cacheErr := s.cache.Get(ctx, ticketID)
	if cacheErr != nil {
		s.logger.WarnContext(ctx, "status cache read failed", "ticket_id", ticketID, "error", cacheErr)
	}
	if state != "" {
		return nil, state, nil
	}
	return nil, "", dErrors.Newf(dErrors.CodeNotFound, "ticket %s not found", ticketID)
}
