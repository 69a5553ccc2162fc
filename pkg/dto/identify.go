package dto

import "github.com/google/uuid"

// IdentifyRequest carries a webcam snapshot. The image is base64, optionally
// in data-URL form ("data:image/jpeg;base64,....").
type IdentifyRequest struct {
	Image string `json:"image" binding:"required"`
}

type IdentifyResult struct {
	PhotoID    uuid.UUID `json:"photo_id"`
	Similarity float64   `json:"similarity"`
	Path       string    `json:"path"`
	Date       string    `json:"date"`
}

// IdentifyResponse always carries a results array. Message is set only when
// no face was detected in the probe, so the kiosk can show something other
// than "no matches".
type IdentifyResponse struct {
	Results []IdentifyResult `json:"results"`
	Message string           `json:"message,omitempty"`
}
