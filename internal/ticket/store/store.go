// Package store persists tickets. The unique constraint on ticket_id is the
// single source of truth for pipeline idempotency: Insert surfaces a
// violation as sentinel.ErrDuplicate and the processor treats that as an
// already-processed message, not an error.
package store

import (
	"context"

	"orgdesk/internal/ticket/models"
)

// TicketStore is the persistence contract consumed by the processor, the
// review service, and the status endpoint.
type TicketStore interface {
	// Insert stores a new ticket. Returns sentinel.ErrDuplicate when a
	// ticket with the same ticket_id already exists.
	Insert(ctx context.Context, t *models.Ticket) error
	// FindByTicketID looks a ticket up by its human-readable code.
	// Returns sentinel.ErrNotFound when absent.
	FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error)
	// Update rewrites a ticket's mutable review fields. Joins the
	// transaction in context when one is present.
	Update(ctx context.Context, t *models.Ticket) error
}
