package org

import (
	"context"

	"github.com/google/uuid"
)

// Store persists organizations. Implementations join the transaction in
// context when one is present.
type Store interface {
	// Insert stores a new organization.
	Insert(ctx context.Context, o *Organization) error
	// FindByID returns an organization. Returns sentinel.ErrNotFound when
	// absent.
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	// Update rewrites an organization's mutable fields.
	Update(ctx context.Context, o *Organization) error
}
