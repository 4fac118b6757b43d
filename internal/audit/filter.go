package audit

import (
	"time"

	"github.com/google/uuid"
)

// Cursor is a keyset position: results strictly older than (Timestamp, ID)
// in the descending sort order.
type Cursor struct {
	Timestamp time.Time `json:"ts"`
	ID        uuid.UUID `json:"id"`
}

// Filter selects audit records. Zero values mean "no constraint"; RecordID
// is only meaningful together with Table.
type Filter struct {
	Table    string
	RecordID string
	UserID   string
	Action   Action
	Since    time.Time
	Limit    int
	Cursor   *Cursor
}
