package dto

import "github.com/google/uuid"

type CloseDayRequest struct {
	ClosedBy string `json:"closed_by" binding:"required"`
	Notes    string `json:"notes"`
}

type CloseDayResponse struct {
	ID                uuid.UUID `json:"id"`
	Timestamp         string    `json:"timestamp"`
	PurgedDescriptors int64     `json:"purged_descriptors"`
}

type ClosingResponse struct {
	ID        uuid.UUID `json:"id"`
	Timestamp string    `json:"timestamp"`
	ClosedBy  string    `json:"closed_by"`
	Notes     string    `json:"notes,omitempty"`
}
