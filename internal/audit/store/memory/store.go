// Package memory is an in-memory audit store for unit tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"orgdesk/internal/audit"
)

// Store keeps records in a slice guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records []audit.Record
}

// New constructs an empty store.
func New() *Store {
	return &Store{}
}

// Append implements audit.Store.
func (s *Store) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// List returns records matching the filter, newest first.
func (s *Store) List(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Record
	for _, r := range s.records {
		if !matches(r, f) {
			continue
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})

	if f.Cursor != nil {
		cut := 0
		for cut < len(matched) {
			r := matched[cut]
			if r.Timestamp.Before(f.Cursor.Timestamp) ||
				(r.Timestamp.Equal(f.Cursor.Timestamp) && r.ID.String() < f.Cursor.ID.String()) {
				break
			}
			cut++
		}
		matched = matched[cut:]
	}

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// All returns every stored record, in insertion order.
func (s *Store) All() []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record{}, s.records...)
}

func matches(r audit.Record, f audit.Filter) bool {
	if f.Table != "" && r.TableName != f.Table {
		return false
	}
	if f.RecordID != "" && r.RecordID != f.RecordID {
		return false
	}
	if f.UserID != "" && (r.UserID == nil || *r.UserID != f.UserID) {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
