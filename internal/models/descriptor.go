package models

import (
	"time"

	"github.com/google/uuid"
)

// Box is a face bounding box in source-photo pixel coordinates.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// FaceDescriptor is one stored face: the embedding plus where it was found.
// Rows are created only by the ingestion pool and destroyed only by the
// closing purge or by cascade when the owning photo is deleted.
type FaceDescriptor struct {
	ID        int64     `json:"id" db:"id"`
	PhotoID   uuid.UUID `json:"photo_id" db:"photo_id"`
	Embedding []float32 `json:"-" db:"embedding"`
	Box       Box       `json:"box" db:"box"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Match is one similarity-search hit, most similar first in result order.
type Match struct {
	DescriptorID int64     `json:"-"`
	PhotoID      uuid.UUID `json:"photo_id"`
	Similarity   float64   `json:"similarity"`
	Box          Box       `json:"box"`
	Path         string    `json:"path"`
	Date         time.Time `json:"date"`
}
