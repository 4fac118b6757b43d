package audit

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "orgdesk/pkg/platform/tx"
)

// UnitOfWork runs a function inside one transactional scope. Stores called
// within fn join the transaction via the context, so an audited mutation
// and its audit record share a commit.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLUnitOfWork is the production unit of work over *sql.DB.
type SQLUnitOfWork struct {
	db *sql.DB
}

// NewSQLUnitOfWork wraps a database handle.
func NewSQLUnitOfWork(db *sql.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

// Within begins a transaction, marks it as application-audited, stores it
// in the context, and commits iff fn returns nil.
//
// The marker is a transaction-local GUC (set_config with is_local=true): it
// vanishes at commit or rollback, so a pooled connection can never leak one
// unit of work's identity into the next. The row trigger installed by the
// migrations skips capture when the marker is present, leaving trigger
// capture to out-of-band mutations only.
func (u *SQLUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT set_config('orgdesk.audit_source', 'application', true)`); err != nil {
		tx.Rollback()
		return fmt.Errorf("set audit source marker: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NopUnitOfWork runs fn directly, for unit tests over in-memory stores
// where there is no transaction to scope.
type NopUnitOfWork struct{}

// Within implements UnitOfWork.
func (NopUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
