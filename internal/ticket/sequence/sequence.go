// Package sequence allocates human-readable ticket codes: a per-type prefix
// plus a zero-padded counter (S00001). Allocation must stay unique under
// concurrent submissions, so the production implementation leans on a
// database sequence per ticket type.
package sequence

import (
	"context"
	"fmt"

	"orgdesk/internal/ticket/models"
)

// Allocator hands out the next code for a ticket type.
type Allocator interface {
	Next(ctx context.Context, t models.TicketType) (string, error)
}

// Format renders a code from a prefix and counter value.
func Format(t models.TicketType, n int64) string {
	return fmt.Sprintf("%s%05d", t.Prefix(), n)
}
