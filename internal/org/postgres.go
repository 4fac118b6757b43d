package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"orgdesk/pkg/platform/sentinel"
	txcontext "orgdesk/pkg/platform/tx"
)

// Postgres persists organizations in the organizations table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed organization store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Insert stores a new organization.
func (s *Postgres) Insert(ctx context.Context, o *Organization) error {
	query := `
		INSERT INTO organizations (
			id, name, address, description, latitude, longitude, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		o.ID, o.Name, o.Address, o.Description, o.Latitude, o.Longitude, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

// FindByID returns an organization by id.
func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `
		SELECT id, name, address, description, latitude, longitude, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, id)

	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Address, &o.Description, &o.Latitude, &o.Longitude, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &o, nil
}

// Update rewrites an organization's mutable fields.
func (s *Postgres) Update(ctx context.Context, o *Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, address = $3, description = $4, latitude = $5, longitude = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		o.ID, o.Name, o.Address, o.Description, o.Latitude, o.Longitude, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update organization rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("organization %s: %w", o.ID, sentinel.ErrNotFound)
	}
	return nil
}
