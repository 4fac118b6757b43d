// Package notify sends submitter-facing notifications. Sending happens only
// after the ticket row is durably stored, and a send failure is logged and
// counted but never propagated into the delivery pipeline: redelivering an
// already-stored ticket would only duplicate the mail.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"orgdesk/pkg/email"
	"orgdesk/pkg/platform/circuit"

	"orgdesk/internal/ticket/models"
)

// Sender delivers one rendered message. Production wires an SMTP or
// provider-API sender; tests wire a recorder.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service renders and sends ticket notifications behind a circuit breaker,
// so a dead mail dependency stops burning connection attempts.
type Service struct {
	sender  Sender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// New creates a notification service.
func New(sender Sender, logger *slog.Logger) *Service {
	return &Service{
		sender:  sender,
		breaker: circuit.New("notifications", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  logger,
	}
}

// TicketReceived confirms a submission to the submitter.
func (s *Service) TicketReceived(ctx context.Context, t *models.Ticket) error {
	first, _ := email.DeriveNameFromEmail(t.SubmitterEmail)
	subject := fmt.Sprintf("We received your request %s", t.TicketID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s was received and is waiting for review. Track it with code %s.\n",
		first, displayName(t.Type), t.TicketID,
	)
	return s.send(ctx, t, subject, body)
}

// TicketDecided informs the submitter of the review outcome.
func (s *Service) TicketDecided(ctx context.Context, t *models.Ticket) error {
	first, _ := email.DeriveNameFromEmail(t.SubmitterEmail)
	subject := fmt.Sprintf("Your request %s was %s", t.TicketID, t.Status)
	body := fmt.Sprintf("Hi %s,\n\nYour %s (%s) was %s.\n", first, displayName(t.Type), t.TicketID, t.Status)
	if t.AdminNotes != "" {
		body += "\nReviewer notes: " + t.AdminNotes + "\n"
	}
	return s.send(ctx, t, subject, body)
}

func (s *Service) send(ctx context.Context, t *models.Ticket, subject, body string) error {
	if s.breaker.IsOpen() {
		return fmt.Errorf("notification circuit open, skipping send for %s", t.TicketID)
	}

	if err := s.sender.Send(ctx, t.SubmitterEmail, subject, body); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "notification circuit opened", "breaker", s.breaker.Name())
		}
		return fmt.Errorf("send notification for %s: %w", t.TicketID, err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "notification circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

func displayName(t models.TicketType) string {
	switch t {
	case models.TypeAccessRequest:
		return "access request"
	case models.TypeOrgSuggestion:
		return "place suggestion"
	case models.TypeOrgFeedback:
		return "feedback"
	default:
		return "request"
	}
}

// LogSender writes notifications to the log instead of a mail provider.
// Used in development environments without SMTP credentials.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (l *LogSender) Send(ctx context.Context, to, subject, _ string) error {
	l.Logger.InfoContext(ctx, "notification", "to", to, "subject", subject)
	return nil
}
