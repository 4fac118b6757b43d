// Package query is the read-only audit lookup service: history of one
// entity, one actor's activity, or an operational review slice. Results are
// paginated and redacted for non-compliance callers.
package query

import (
	"context"
	"fmt"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/audit"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// RoleCompliance callers receive raw captured values; everyone else gets
// sensitive keys masked.
const RoleCompliance = "compliance"

// Store is the read surface the service needs.
type Store interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Record, error)
}

// Page is one page of results with the cursor for the next one ("" when
// this is the last page).
type Page struct {
	Records    []audit.Record
	NextCursor string
}

// Service validates filters, paginates, and redacts.
type Service struct {
	store    Store
	redactor *Redactor
}

// New creates a query service with the given sensitive-key list.
func New(store Store, redactKeys []string) *Service {
	return &Service{store: store, redactor: NewRedactor(redactKeys)}
}

// Params are the caller-supplied query parameters, pre-decoding.
type Params struct {
	Table    string
	RecordID string
	UserID   string
	Action   string
	Since    string
	Limit    int
	Cursor   string
}

// List runs one audit query. Redaction is skipped only for callers whose
// context carries the compliance role.
func (s *Service) List(ctx context.Context, params Params) (*Page, error) {
	filter, err := s.buildFilter(params)
	if err != nil {
		return nil, err
	}

	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	if requestcontext.Role(ctx) != RoleCompliance {
		for i := range records {
			records[i].OldValues = s.redactor.Redact(records[i].OldValues)
			records[i].NewValues = s.redactor.Redact(records[i].NewValues)
		}
	}

	page := &Page{Records: records}
	if len(records) == filter.Limit {
		last := records[len(records)-1]
		page.NextCursor = encodeCursor(audit.Cursor{Timestamp: last.Timestamp, ID: last.ID})
	}
	return page, nil
}

func (s *Service) buildFilter(params Params) (audit.Filter, error) {
	fields := make(map[string]string)

	if params.RecordID != "" && params.Table == "" {
		fields["record_id"] = "requires table"
	}

	action := audit.Action(params.Action)
	if params.Action != "" && !action.Valid() {
		fields["action"] = "must be INSERT, UPDATE or DELETE"
	}

	filter := audit.Filter{
		Table:    params.Table,
		RecordID: params.RecordID,
		UserID:   params.UserID,
		Action:   action,
		Limit:    params.Limit,
	}

	if params.Since != "" {
		since, err := parseTimestamp(params.Since)
		if err != nil {
			fields["since"] = "must be an RFC 3339 timestamp"
		} else {
			filter.Since = since
		}
	}

	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit < 1 || filter.Limit > maxLimit {
		fields["limit"] = fmt.Sprintf("must be between 1 and %d", maxLimit)
	}

	if params.Cursor != "" {
		cursor, err := decodeCursor(params.Cursor)
		if err != nil {
			fields["cursor"] = "invalid pagination cursor"
		} else {
			filter.Cursor = &cursor
		}
	}

	if len(fields) > 0 {
		return audit.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "invalid audit query").WithFields(fields)
	}
	return filter, nil
}
