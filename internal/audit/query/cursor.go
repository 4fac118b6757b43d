package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"orgdesk/internal/audit"
)

// Cursors are opaque to callers: base64 over a keyset position. Decoding a
// tampered or truncated cursor fails cleanly rather than leaking positions.
func encodeCursor(c audit.Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(s string) (audit.Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return audit.Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c audit.Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return audit.Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.Timestamp.IsZero() {
		return audit.Cursor{}, fmt.Errorf("cursor missing timestamp")
	}
	return c, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
