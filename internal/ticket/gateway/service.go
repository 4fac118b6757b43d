// Package gateway accepts ticket submissions: it validates the payload,
// allocates the human-readable ticket code, and publishes the submission
// event. It returns as soon as the broker acknowledges the publish:
// accepted, not yet processed.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/bus"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/sequence"
	"orgdesk/internal/ticket/status"
)

// Submission is the validated caller input: a type-discriminated payload
// plus submitter identity. The HTTP layer decodes into this.
type Submission struct {
	Type           models.TicketType
	SubmitterID    string
	SubmitterEmail string
	Fields         map[string]any
}

// Service is the submission gateway.
type Service struct {
	alloc     sequence.Allocator
	publisher bus.Publisher
	topic     string
	cache     *status.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a gateway publishing to the given topic.
func New(alloc sequence.Allocator, publisher bus.Publisher, topic string, cache *status.Cache, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		alloc:     alloc,
		publisher: publisher,
		topic:     topic,
		cache:     cache,
		metrics:   m,
		logger:    logger,
	}
}

// Submit validates, allocates a ticket code, and publishes the envelope.
// On publish failure the error is surfaced for an explicit caller retry;
// the allocated code is abandoned and a fresh one is drawn on retry, so a
// code never identifies two different publishes.
func (s *Service) Submit(ctx context.Context, sub Submission) (string, error) {
	ctx, span := otel.Tracer("orgdesk/gateway").Start(ctx, "gateway.Submit")
	defer span.End()

	if err := validate(sub); err != nil {
		return "", err
	}

	ticketID, err := s.alloc.Next(ctx, sub.Type)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "allocate ticket id")
	}
	span.SetAttributes(attribute.String("ticket.id", ticketID))

	envelope := models.Envelope{
		EventType:      sub.Type.EventType(),
		TicketID:       ticketID,
		SubmitterID:    sub.SubmitterID,
		SubmitterEmail: sub.SubmitterEmail,
		RequestID:      requestcontext.RequestID(ctx),
		Fields:         sub.Fields,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "marshal envelope")
	}

	msg := &bus.Message{
		Topic: s.topic,
		Key:   []byte(ticketID),
		Value: payload,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.metrics.PublishFailures.Inc()
		s.logger.ErrorContext(ctx, "publish failed",
			"ticket_id", ticketID,
			"event_type", envelope.EventType,
			"error", err,
		)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "publish submission event")
	}

	s.metrics.TicketsSubmitted.WithLabelValues(string(sub.Type)).Inc()

	// Cache failures are not the submitter's problem; the database remains
	// authoritative for status lookups.
	if err := s.cache.Set(ctx, ticketID, status.Accepted); err != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "ticket_id", ticketID, "error", err)
	}

	s.logger.InfoContext(ctx, "submission accepted",
		"ticket_id", ticketID,
		"ticket_type", string(sub.Type),
	)
	return ticketID, nil
}
