package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWireFormatIsFlat(t *testing.T) {
	env := Envelope{
		EventType:      "organization_feedback.submitted",
		TicketID:       "F00007",
		SubmitterID:    "user-1",
		SubmitterEmail: "jane.doe@example.com",
		RequestID:      "req-1",
		Fields:         map[string]any{"organization_id": "org-9", "message": "great", "rating": float64(5)},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "F00007", flat["ticket_id"])
	assert.Equal(t, "great", flat["message"], "type-specific fields sit next to the fixed keys")
	_, nested := flat["fields"]
	assert.False(t, nested, "the wire format has no nested fields object")

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.EventType, decoded.EventType)
	assert.Equal(t, env.TicketID, decoded.TicketID)
	assert.Equal(t, env.RequestID, decoded.RequestID)
	assert.Equal(t, env.Fields, decoded.Fields)
}

func TestEnvelopeOmitsEmptyRequestID(t *testing.T) {
	data, err := json.Marshal(Envelope{
		EventType:      "access_request.submitted",
		TicketID:       "A00001",
		SubmitterID:    "user-1",
		SubmitterEmail: "jane.doe@example.com",
	})
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	_, ok := flat["request_id"]
	assert.False(t, ok)
}

func TestEnvelopeRejectsReservedFieldNames(t *testing.T) {
	_, err := json.Marshal(Envelope{
		EventType:      "access_request.submitted",
		TicketID:       "A00001",
		SubmitterID:    "user-1",
		SubmitterEmail: "jane.doe@example.com",
		Fields:         map[string]any{"ticket_id": "spoofed"},
	})
	require.Error(t, err)
}

func TestTicketTypePrefixes(t *testing.T) {
	assert.Equal(t, "A", TypeAccessRequest.Prefix())
	assert.Equal(t, "S", TypeOrgSuggestion.Prefix())
	assert.Equal(t, "F", TypeOrgFeedback.Prefix())
	assert.False(t, TicketType("complaint").Valid())
}

func TestTicketStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}
