package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"orgdesk/pkg/platform/sentinel"
	txcontext "orgdesk/pkg/platform/tx"

	"orgdesk/internal/ticket/models"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// Postgres persists tickets in the tickets table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ticket store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Insert stores a new ticket. A unique violation on ticket_id maps to
// sentinel.ErrDuplicate so callers can treat redelivery as a no-op.
func (s *Postgres) Insert(ctx context.Context, t *models.Ticket) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("marshal ticket payload: %w", err)
	}

	query := `
		INSERT INTO tickets (
			id, ticket_id, ticket_type, submitter_id, submitter_email,
			payload, status, created_at, admin_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		t.ID,
		t.TicketID,
		string(t.Type),
		t.SubmitterID,
		t.SubmitterEmail,
		payload,
		string(t.Status),
		t.CreatedAt,
		t.AdminNotes,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrDuplicate)
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// FindByTicketID looks a ticket up by its human-readable code.
func (s *Postgres) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	query := `
		SELECT id, ticket_id, ticket_type, submitter_id, submitter_email,
		       payload, status, created_at, reviewed_at, reviewed_by, admin_notes
		FROM tickets
		WHERE ticket_id = $1
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, ticketID)

	var (
		t          models.Ticket
		ticketType string
		status     string
		payload    []byte
		reviewedBy sql.NullString
		adminNotes sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.TicketID,
		&ticketType,
		&t.SubmitterID,
		&t.SubmitterEmail,
		&payload,
		&status,
		&t.CreatedAt,
		&t.ReviewedAt,
		&reviewedBy,
		&adminNotes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", ticketID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}

	t.Type = models.TicketType(ticketType)
	t.Status = models.TicketStatus(status)
	t.ReviewedBy = reviewedBy.String
	t.AdminNotes = adminNotes.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal ticket payload: %w", err)
		}
	}
	return &t, nil
}

// Update rewrites the review fields of a ticket still in pending. The status
// guard in the WHERE clause makes the write a compare-and-swap: a row that
// already reached a terminal status is never rewritten, so the loser of two
// concurrent decisions gets ErrInvalidState instead of overwriting.
func (s *Postgres) Update(ctx context.Context, t *models.Ticket) error {
	query := `
		UPDATE tickets
		SET status = $2, reviewed_at = $3, reviewed_by = $4, admin_notes = $5
		WHERE ticket_id = $1 AND status = $6
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		t.TicketID,
		string(t.Status),
		t.ReviewedAt,
		t.ReviewedBy,
		t.AdminNotes,
		string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_id = $1)`, t.TicketID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("update ticket recheck: %w", err)
		}
		if !exists {
			return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrInvalidState)
	}
	return nil
}
