package models

import (
	"time"

	"github.com/google/uuid"
)

type Photo struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	ObjectKey    string    `json:"object_key" db:"object_key"`
	Photographer string    `json:"photographer" db:"photographer"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PhotoStoredTask is the message published to NATS when a photo has been
// uploaded and is ready for face extraction.
type PhotoStoredTask struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	ObjectKey string    `json:"object_key"`
	Timestamp time.Time `json:"timestamp"`
}

// PhotoIndexed is the activity event published after a worker finishes a photo.
type PhotoIndexed struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	FaceCount int       `json:"face_count"`
	Timestamp time.Time `json:"timestamp"`
}
