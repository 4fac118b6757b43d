package gateway

import (
	"fmt"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/email"

	"orgdesk/internal/ticket/models"
)

const (
	maxNameLen    = 200
	maxAddressLen = 500
	maxTextLen    = 2000
)

// validate checks the submission's common fields plus its per-type
// constraints, collecting field-level detail for the 400 response.
func validate(sub Submission) error {
	fields := make(map[string]string)

	if !sub.Type.Valid() {
		fields["ticket_type"] = fmt.Sprintf("unknown ticket type %q", sub.Type)
	}
	if sub.SubmitterID == "" {
		fields["submitter_id"] = "required"
	}
	if sub.SubmitterEmail == "" {
		fields["submitter_email"] = "required"
	} else if !email.Valid(sub.SubmitterEmail) {
		fields["submitter_email"] = "not a valid email address"
	}

	switch sub.Type {
	case models.TypeAccessRequest:
		requireString(fields, sub.Fields, "organization_id", 0)
		requireString(fields, sub.Fields, "reason", maxTextLen)
	case models.TypeOrgSuggestion:
		requireString(fields, sub.Fields, "name", maxNameLen)
		requireFloat(fields, sub.Fields, "latitude", -90, 90)
		requireFloat(fields, sub.Fields, "longitude", -180, 180)
		optionalString(fields, sub.Fields, "address", maxAddressLen)
		optionalString(fields, sub.Fields, "description", maxTextLen)
	case models.TypeOrgFeedback:
		requireString(fields, sub.Fields, "organization_id", 0)
		requireString(fields, sub.Fields, "message", maxTextLen)
		optionalRating(fields, sub.Fields, "rating")
	}

	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid submission").WithFields(fields)
	}
	return nil
}

func requireString(fields map[string]string, values map[string]any, key string, maxLen int) {
	v, ok := values[key].(string)
	if !ok || v == "" {
		fields[key] = "required"
		return
	}
	if maxLen > 0 && len(v) > maxLen {
		fields[key] = fmt.Sprintf("must be at most %d characters", maxLen)
	}
}

func optionalString(fields map[string]string, values map[string]any, key string, maxLen int) {
	v, ok := values[key]
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		fields[key] = "must be a string"
		return
	}
	if maxLen > 0 && len(s) > maxLen {
		fields[key] = fmt.Sprintf("must be at most %d characters", maxLen)
	}
}

func requireFloat(fields map[string]string, values map[string]any, key string, min, max float64) {
	v, ok := values[key]
	if !ok {
		fields[key] = "required"
		return
	}
	f, ok := toFloat(v)
	if !ok {
		fields[key] = "must be a number"
		return
	}
	if f < min || f > max {
		fields[key] = fmt.Sprintf("must be between %g and %g", min, max)
	}
}

func optionalRating(fields map[string]string, values map[string]any, key string) {
	v, ok := values[key]
	if !ok {
		return
	}
	f, ok := toFloat(v)
	if !ok || f != float64(int64(f)) {
		fields[key] = "must be an integer"
		return
	}
	if f < 1 || f > 5 {
		fields[key] = "must be between 1 and 5"
	}
}

// toFloat accepts the numeric types JSON decoding can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
