package models

import (
	"encoding/json"
	"fmt"
)

// Envelope is the event published for a submission. It is created once at
// publish time, never mutated, and may be delivered more than once.
//
// Wire format is flat JSON: {"event_type": ..., "ticket_id": ...,
// "submitter_id": ..., "submitter_email": ..., <type-specific fields>}.
type Envelope struct {
	EventType      string
	TicketID       string
	SubmitterID    string
	SubmitterEmail string
	RequestID      string
	Fields         map[string]any
}

// reserved keys of the flat wire format; everything else is a
// type-specific field.
var reservedEnvelopeKeys = map[string]struct{}{
	"event_type":      {},
	"ticket_id":       {},
	"submitter_id":    {},
	"submitter_email": {},
	"request_id":      {},
}

// MarshalJSON flattens the type-specific fields next to the fixed keys.
func (e Envelope) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+5)
	for k, v := range e.Fields {
		if _, reserved := reservedEnvelopeKeys[k]; reserved {
			return nil, fmt.Errorf("envelope field %q collides with a reserved key", k)
		}
		flat[k] = v
	}
	flat["event_type"] = e.EventType
	flat["ticket_id"] = e.TicketID
	flat["submitter_id"] = e.SubmitterID
	flat["submitter_email"] = e.SubmitterEmail
	if e.RequestID != "" {
		flat["request_id"] = e.RequestID
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the fixed keys back out of the flat object.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	e.EventType, _ = flat["event_type"].(string)
	e.TicketID, _ = flat["ticket_id"].(string)
	e.SubmitterID, _ = flat["submitter_id"].(string)
	e.SubmitterEmail, _ = flat["submitter_email"].(string)
	e.RequestID, _ = flat["request_id"].(string)

	e.Fields = make(map[string]any)
	for k, v := range flat {
		if _, reserved := reservedEnvelopeKeys[k]; reserved {
			continue
		}
		e.Fields[k] = v
	}
	return nil
}
