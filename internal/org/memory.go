package org

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"orgdesk/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for unit tests.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]Organization
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[uuid.UUID]Organization)}
}

// Insert implements Store.
func (s *InMemory) Insert(_ context.Context, o *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[o.ID]; exists {
		return fmt.Errorf("organization %s: %w", o.ID, sentinel.ErrDuplicate)
	}
	s.orgs[o.ID] = *o
	return nil
}

// FindByID implements Store.
func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, sentinel.ErrNotFound)
	}
	return &o, nil
}

// Update implements Store.
func (s *InMemory) Update(_ context.Context, o *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; !ok {
		return fmt.Errorf("organization %s: %w", o.ID, sentinel.ErrNotFound)
	}
	s.orgs[o.ID] = *o
	return nil
}
