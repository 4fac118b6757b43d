// Package audit is the change-capture engine: every mutation to a table on
// the audited list gets an immutable before/after record, written in the
// same transaction as the mutation itself.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the kind of mutation a record describes.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether the action is one of the three mutation kinds.
func (a Action) Valid() bool {
	return a == ActionInsert || a == ActionUpdate || a == ActionDelete
}

// Source distinguishes records captured by the application layer from ones
// captured by the database trigger for out-of-band mutations.
type Source string

const (
	SourceApplication Source = "application"
	SourceTrigger     Source = "trigger"
)

// Record is one captured mutation. UserID and RequestID are nil only when
// the mutation happened outside any tracked unit of work. Records are never
// updated or deleted by application code.
type Record struct {
	ID            uuid.UUID
	Timestamp     time.Time
	TableName     string
	RecordID      string
	Action        Action
	UserID        *string
	RequestID     *string
	OldValues     map[string]any
	NewValues     map[string]any
	ChangedFields []string
	Source        Source
}
