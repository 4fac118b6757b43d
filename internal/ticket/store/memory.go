package store

import (
	"context"
	"fmt"
	"sync"

	"orgdesk/pkg/platform/sentinel"

	"orgdesk/internal/ticket/models"
)

// InMemory is a map-backed ticket store for unit tests, enforcing the same
// ticket_id uniqueness as the database constraint.
type InMemory struct {
	mu      sync.RWMutex
	tickets map[string]*models.Ticket
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{tickets: make(map[string]*models.Ticket)}
}

// Insert stores a new ticket, rejecting duplicate codes.
func (s *InMemory) Insert(_ context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.TicketID]; exists {
		return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrDuplicate)
	}
	copied := *t
	s.tickets[t.TicketID] = &copied
	return nil
}

// FindByTicketID looks a ticket up by its code.
func (s *InMemory) FindByTicketID(_ context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, sentinel.ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

// Update rewrites the review fields of a ticket still in pending.
func (s *InMemory) Update(_ context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tickets[t.TicketID]
	if !ok {
		return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrNotFound)
	}
	// Same compare-and-swap guard as the postgres store: a terminal row is
	// never rewritten.
	if existing.Status.Terminal() {
		return fmt.Errorf("ticket %s: %w", t.TicketID, sentinel.ErrInvalidState)
	}
	copied := *t
	s.tickets[t.TicketID] = &copied
	return nil
}

// Len returns the number of stored tickets.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
