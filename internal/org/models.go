// Package org manages organization records. Organizations are an audited
// table: every mutation going through the service layer carries the acting
// user's identity into the audit trail.
package org

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a listed place users can request access to or comment on.
type Organization struct {
	ID          uuid.UUID
	Name        string
	Address     string
	Description string
	Latitude    float64
	Longitude   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot returns the audited field values for before/after capture.
func (o *Organization) Snapshot() map[string]any {
	return map[string]any{
		"name":        o.Name,
		"address":     o.Address,
		"description": o.Description,
		"latitude":    o.Latitude,
		"longitude":   o.Longitude,
	}
}
