package models

import (
	"time"

	"github.com/google/uuid"
)

// ClosingReport is the accounting record a closing writes. The descriptor
// purge commits in the same transaction as this row.
type ClosingReport struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	ClosedBy  string    `json:"closed_by" db:"closed_by"`
	Notes     string    `json:"notes" db:"notes"`
}
