package vision

import (
	"context"
	"errors"

	"github.com/juandiegoalamohe-alt/localpix/internal/models"
)

// EmbeddingDim is the dimensionality of the ArcFace embedding model.
// Every stored descriptor must carry exactly this many components.
const EmbeddingDim = 512

var (
	// ErrUnavailable marks infrastructure failures of the extraction
	// capability (model not loaded, runtime error). Retryable upstream.
	ErrUnavailable = errors.New("face extraction unavailable")

	// ErrDimensionMismatch marks embeddings whose length disagrees with
	// the model output. Comparing such vectors is data corruption, not a
	// low score.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBadImage marks input bytes that could not be decoded as an image.
	ErrBadImage = errors.New("unreadable image")
)

// Face is one detected face: its identity embedding plus where it sits in
// the source photo.
type Face struct {
	Embedding []float32
	Box       models.Box
}

// Extractor detects faces in an image and returns one embedding per face.
// A readable image with no detectable face yields an empty slice and a nil
// error; a non-nil error means the input was unreadable or the capability
// is unavailable, never "no face".
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]Face, error)
}
