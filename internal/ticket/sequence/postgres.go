package sequence

import (
	"context"
	"database/sql"
	"fmt"

	dErrors "orgdesk/pkg/domain-errors"

	"orgdesk/internal/ticket/models"
)

// sequenceNames maps ticket types to their database sequence. The map
// doubles as a whitelist: nextval's argument is never built from caller
// input directly.
var sequenceNames = map[models.TicketType]string{
	models.TypeAccessRequest: "ticket_seq_access_request",
	models.TypeOrgSuggestion: "ticket_seq_organization_suggestion",
	models.TypeOrgFeedback:   "ticket_seq_organization_feedback",
}

// Postgres allocates codes from per-type database sequences, so concurrent
// submissions of the same type never collide.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a database-backed allocator.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Next returns the next code for the type. Sequence values are consumed even
// when the caller later fails to publish; gaps in codes are acceptable,
// duplicates are not.
func (p *Postgres) Next(ctx context.Context, t models.TicketType) (string, error) {
	seq, ok := sequenceNames[t]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown ticket type %q", t)
	}

	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT nextval($1)`, seq).Scan(&n); err != nil {
		return "", fmt.Errorf("next ticket sequence for %s: %w", t, err)
	}
	return Format(t, n), nil
}
