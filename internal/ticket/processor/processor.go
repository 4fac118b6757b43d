// Package processor consumes ticket submission events. Dispatch is a
// registration table keyed by event type: adding a ticket type means
// registering another handler, never editing dispatch code.
//
// Failure discipline: anything that fails before the ticket row commits is
// returned so the bus redelivers (or dead-letters, for permanent
// failures); anything after the commit is logged and swallowed, because
// the ticket is already durable and a redelivery would only repeat the
// side effect.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orgdesk/pkg/platform/sentinel"

	"orgdesk/internal/bus"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/ticket/models"
)

// Handler processes one decoded envelope. Returning an error wrapped in
// sentinel.ErrDuplicate marks the no-op success path for redelivered
// messages; bus.Permanent marks failures that can never succeed.
type Handler interface {
	Handle(ctx context.Context, env *models.Envelope) error
}

// Processor routes envelopes to registered handlers.
type Processor struct {
	handlers map[string]Handler
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an empty processor.
func New(m *metrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		handlers: make(map[string]Handler),
		metrics:  m,
		logger:   logger,
	}
}

// Register adds a handler for an event type. Later registrations replace
// earlier ones.
func (p *Processor) Register(eventType string, handler Handler) {
	p.handlers[eventType] = handler
}

// HandleMessage is the bus.Handler for the ticket topic.
func (p *Processor) HandleMessage(ctx context.Context, msg *bus.Message) error {
	ctx, span := otel.Tracer("orgdesk/processor").Start(ctx, "processor.HandleMessage",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.HandlerDuration.Observe(time.Since(start).Seconds())
	}()

	var env models.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		p.metrics.MessagesProcessed.WithLabelValues("permanent_failure").Inc()
		return bus.Permanent(fmt.Errorf("unmarshal envelope: %w", err))
	}
	if env.EventType == "" || env.TicketID == "" {
		p.metrics.MessagesProcessed.WithLabelValues("permanent_failure").Inc()
		return bus.Permanent(fmt.Errorf("envelope missing event_type or ticket_id"))
	}
	span.SetAttributes(
		attribute.String("event.type", env.EventType),
		attribute.String("ticket.id", env.TicketID),
	)

	handler, ok := p.handlers[env.EventType]
	if !ok {
		p.metrics.MessagesProcessed.WithLabelValues("permanent_failure").Inc()
		return bus.Permanent(fmt.Errorf("no handler registered for event type %q", env.EventType))
	}

	err := handler.Handle(ctx, &env)
	switch {
	case err == nil:
		p.metrics.MessagesProcessed.WithLabelValues("processed").Inc()
		return nil
	case errors.Is(err, sentinel.ErrDuplicate):
		// At-least-once transport redelivered an already-stored ticket.
		// Acknowledge without re-inserting or re-notifying.
		p.metrics.MessagesProcessed.WithLabelValues("duplicate").Inc()
		p.logger.InfoContext(ctx, "duplicate delivery acknowledged",
			"ticket_id", env.TicketID,
			"event_type", env.EventType,
			"attempt", msg.Attempts,
		)
		return nil
	case bus.IsPermanent(err):
		p.metrics.MessagesProcessed.WithLabelValues("permanent_failure").Inc()
		return err
	default:
		p.metrics.MessagesProcessed.WithLabelValues("transient_failure").Inc()
		return err
	}
}
