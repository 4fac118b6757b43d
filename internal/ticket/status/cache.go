// Package status tracks a ticket's coarse pipeline state in Redis so the
// status endpoint can answer without a database round trip. The cache is
// advisory: the tickets table stays authoritative and a nil client degrades
// to database-only lookups.
package status

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"orgdesk/internal/platform/redis"
)

// Accepted is the state between a successful publish and the processor's
// insert; afterwards the cache mirrors the ticket's status column.
const Accepted = "accepted"

// ttl keeps entries around long enough for polling clients without letting
// the cache grow unbounded.
const ttl = 24 * time.Hour

// Cache is a nil-safe wrapper over the Redis client.
type Cache struct {
	client *redis.Client
}

// NewCache wraps the client; a nil client yields a no-op cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func key(ticketID string) string {
	return "ticket:status:" + ticketID
}

// Set records the state for a ticket code. Failures are returned so callers
// can log them; a stale cache entry is harmless.
func (c *Cache) Set(ctx context.Context, ticketID, state string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key(ticketID), state, ttl).Err()
}

// Get returns the cached state, or "" when absent or the cache is down.
func (c *Cache) Get(ctx context.Context, ticketID string) (string, error) {
	if c == nil || c.client == nil {
		return "", nil
	}
	state, err := c.client.Get(ctx, key(ticketID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	return state, nil
}
