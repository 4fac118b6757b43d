// Package postgres persists audit records in the audit_log table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	txcontext "orgdesk/pkg/platform/tx"

	"orgdesk/internal/audit"
)

// Store writes and reads audit records. Append joins the transaction in
// context, which is how the atomicity invariant holds: the record commits
// with the mutation or not at all.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit record.
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	oldValues, newValues, err := marshalValues(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_log (
			id, ts, table_name, record_id, action,
			user_id, request_id, old_values, new_values, changed_fields, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		record.ID,
		record.Timestamp,
		record.TableName,
		record.RecordID,
		string(record.Action),
		record.UserID,
		record.RequestID,
		oldValues,
		newValues,
		pq.Array(record.ChangedFields),
		string(record.Source),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// List returns records matching the filter, newest first, keyset-paginated
// on (ts, id).
func (s *Store) List(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Table != "" {
		conds = append(conds, "table_name = "+arg(f.Table))
	}
	if f.RecordID != "" {
		conds = append(conds, "record_id = "+arg(f.RecordID))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = "+arg(f.UserID))
	}
	if f.Action != "" {
		conds = append(conds, "action = "+arg(string(f.Action)))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "ts >= "+arg(f.Since))
	}
	if f.Cursor != nil {
		conds = append(conds, fmt.Sprintf("(ts, id) < (%s, %s)", arg(f.Cursor.Timestamp), arg(f.Cursor.ID)))
	}

	query := `
		SELECT id, ts, table_name, record_id, action,
		       user_id, request_id, old_values, new_values, changed_fields, source
		FROM audit_log
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC LIMIT " + arg(f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func marshalValues(record audit.Record) (oldValues, newValues []byte, err error) {
	if record.OldValues != nil {
		if oldValues, err = json.Marshal(record.OldValues); err != nil {
			return nil, nil, fmt.Errorf("marshal old values: %w", err)
		}
	}
	if record.NewValues != nil {
		if newValues, err = json.Marshal(record.NewValues); err != nil {
			return nil, nil, fmt.Errorf("marshal new values: %w", err)
		}
	}
	return oldValues, newValues, nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			record        audit.Record
			action        string
			source        string
			oldValues     []byte
			newValues     []byte
			changedFields pq.StringArray
		)
		err := rows.Scan(
			&record.ID,
			&record.Timestamp,
			&record.TableName,
			&record.RecordID,
			&action,
			&record.UserID,
			&record.RequestID,
			&oldValues,
			&newValues,
			&changedFields,
			&source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		record.Action = audit.Action(action)
		record.Source = audit.Source(source)
		record.ChangedFields = []string(changedFields)
		if len(oldValues) > 0 {
			if err := json.Unmarshal(oldValues, &record.OldValues); err != nil {
				return nil, fmt.Errorf("unmarshal old values: %w", err)
			}
		}
		if len(newValues) > 0 {
			if err := json.Unmarshal(newValues, &record.NewValues); err != nil {
				return nil, fmt.Errorf("unmarshal new values: %w", err)
			}
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
