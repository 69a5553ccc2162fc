package dto

import "github.com/google/uuid"

type UploadResponse struct {
	ID        uuid.UUID `json:"id"`
	ObjectKey string    `json:"object_key"`
	CreatedAt string    `json:"created_at"`
}

// WSActivity is a WebSocket message for the kiosk dashboard feed.
type WSActivity struct {
	Type      string    `json:"type"` // photo_indexed
	PhotoID   uuid.UUID `json:"photo_id"`
	FaceCount int       `json:"face_count"`
	Timestamp string    `json:"timestamp"`
}
