package query

import "strings"

// Marker replaces sensitive values in returned snapshots. Redaction happens
// at read time only; stored records stay raw for compliance use.
const Marker = "[REDACTED]"

// Redactor masks values whose key contains any configured substring,
// case-insensitively.
type Redactor struct {
	needles []string
}

// NewRedactor builds a redactor from lowercase substrings.
func NewRedactor(keys []string) *Redactor {
	needles := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			needles = append(needles, k)
		}
	}
	return &Redactor{needles: needles}
}

// Redact returns a copy of values with sensitive keys masked. A nil input
// stays nil.
func (r *Redactor) Redact(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if r.sensitive(k) {
			out[k] = Marker
		} else {
			out[k] = v
		}
	}
	return out
}

func (r *Redactor) sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range r.needles {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
