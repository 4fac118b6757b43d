package sequence

import (
	"context"
	"sync"

	"orgdesk/internal/ticket/models"
)

// InMemory is a mutex-guarded allocator for unit tests.
type InMemory struct {
	mu       sync.Mutex
	counters map[models.TicketType]int64
}

// NewInMemory constructs an in-memory allocator starting each type at 1.
func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[models.TicketType]int64)}
}

// Next returns the next code for the type.
func (m *InMemory) Next(_ context.Context, t models.TicketType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[t]++
	return Format(t, m.counters[t]), nil
}
