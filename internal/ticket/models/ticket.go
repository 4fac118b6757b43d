// Package models defines the ticket entity and its wire envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketType discriminates submissions. New types are added here plus a
// handler registration in the processor; no central dispatch code changes.
type TicketType string

const (
	TypeAccessRequest TicketType = "access_request"
	TypeOrgSuggestion TicketType = "organization_suggestion"
	TypeOrgFeedback   TicketType = "organization_feedback"
)

// ticketPrefixes maps each type to the prefix of its human-readable code.
var ticketPrefixes = map[TicketType]string{
	TypeAccessRequest: "A",
	TypeOrgSuggestion: "S",
	TypeOrgFeedback:   "F",
}

// Valid reports whether the type is registered.
func (t TicketType) Valid() bool {
	_, ok := ticketPrefixes[t]
	return ok
}

// Prefix returns the code prefix for the type ("S" for S00001).
func (t TicketType) Prefix() string {
	return ticketPrefixes[t]
}

// EventType returns the submission event name published to the bus.
func (t TicketType) EventType() string {
	return string(t) + ".submitted"
}

// AllTypes returns the registered ticket types.
func AllTypes() []TicketType {
	return []TicketType{TypeAccessRequest, TypeOrgSuggestion, TypeOrgFeedback}
}

// TicketStatus is the review state. pending is the only non-terminal state;
// there is no transition out of approved or rejected.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusApproved TicketStatus = "approved"
	StatusRejected TicketStatus = "rejected"
)

// Terminal reports whether the status permits no further transition.
func (s TicketStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Ticket is a user-submitted item awaiting asynchronous processing and
// eventual admin review. TicketID is the human-readable code and the
// idempotency key for the whole pipeline.
type Ticket struct {
	ID             uuid.UUID
	TicketID       string
	Type           TicketType
	SubmitterID    string
	SubmitterEmail string
	Payload        map[string]any
	Status         TicketStatus
	CreatedAt      time.Time
	ReviewedAt     *time.Time
	ReviewedBy     string
	AdminNotes     string
}

// Snapshot returns the ticket's audited field values. Used by the audit
// recorder for before/after capture.
func (t *Ticket) Snapshot() map[string]any {
	snap := map[string]any{
		"ticket_id":       t.TicketID,
		"ticket_type":     string(t.Type),
		"submitter_id":    t.SubmitterID,
		"submitter_email": t.SubmitterEmail,
		"status":          string(t.Status),
		"admin_notes":     t.AdminNotes,
		"reviewed_by":     t.ReviewedBy,
	}
	for k, v := range t.Payload {
		snap[k] = v
	}
	return snap
}
