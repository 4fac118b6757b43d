package org

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/platform/sentinel"

	"orgdesk/internal/audit"
)

// UpdateParams carries the mutable organization fields. Nil pointers mean
// "leave unchanged", so a partial update audits only what actually moved.
type UpdateParams struct {
	Name        *string
	Address     *string
	Description *string
	Latitude    *float64
	Longitude   *float64
}

// Service is the audited write path for organizations.
type Service struct {
	store    Store
	uow      audit.UnitOfWork
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService creates an organization service.
func NewService(store Store, uow audit.UnitOfWork, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: store, uow: uow, recorder: recorder, logger: logger}
}

// Get returns one organization.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "organization %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load organization")
	}
	return o, nil
}

// Create stores a new organization with an audit record for the insert.
func (s *Service) Create(ctx context.Context, name, address, description string, lat, lng float64) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name is required").
			WithFields(map[string]string{"name": "required"})
	}

	now := time.Now().UTC()
	o := &Organization{
		ID:          uuid.New(),
		Name:        name,
		Address:     strings.TrimSpace(address),
		Description: strings.TrimSpace(description),
		Latitude:    lat,
		Longitude:   lng,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.uow.Within(ctx, func(ctx context.Context) error {
		if err := s.store.Insert(ctx, o); err != nil {
			return err
		}
		return s.recorder.RecordInsert(ctx, "organizations", o.ID.String(), o.Snapshot())
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create organization")
	}

	s.logger.InfoContext(ctx, "organization created", "organization_id", o.ID.String(), "name", o.Name)
	return o, nil
}

// Update applies a partial update and records the before/after diff in the
// audit trail, in the same transaction as the row change.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Organization, error) {
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "organization %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load organization")
	}

	before := o.Snapshot()

	if params.Name != nil {
		trimmed := strings.TrimSpace(*params.Name)
		if trimmed == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name cannot be empty").
				WithFields(map[string]string{"name": "cannot be empty"})
		}
		o.Name = trimmed
	}
	if params.Address != nil {
		o.Address = strings.TrimSpace(*params.Address)
	}
	if params.Description != nil {
		o.Description = strings.TrimSpace(*params.Description)
	}
	if params.Latitude != nil {
		o.Latitude = *params.Latitude
	}
	if params.Longitude != nil {
		o.Longitude = *params.Longitude
	}
	o.UpdatedAt = time.Now().UTC()

	err = s.uow.Within(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, o); err != nil {
			return err
		}
		return s.recorder.RecordUpdate(ctx, "organizations", o.ID.String(), before, o.Snapshot())
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update organization")
	}

	s.logger.InfoContext(ctx, "organization updated", "organization_id", o.ID.String())
	return o, nil
}
