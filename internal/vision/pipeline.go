package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
)

// Pipeline is the concrete Extractor: RetinaFace detection followed by
// ArcFace embedding for every face in the photo. One instance is shared by
// all workers; ONNX sessions serialize internally.
type Pipeline struct {
	detector *Detector
	embedder *Embedder
}

var _ Extractor = (*Pipeline)(nil)

// NewPipeline loads both ONNX models from cfg.ModelsDir.
func NewPipeline(cfg config.VisionConfig) (*Pipeline, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Pipeline{detector: det, embedder: emb}, nil
}

// Extract detects every face in the image and returns an embedding and a
// bounding box per face. No face is a success with an empty result.
// Degenerate (zero-area) boxes are dropped before returning.
func (p *Pipeline) Extract(ctx context.Context, imageData []byte) ([]Face, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, p.detector.inputW, p.detector.inputH)
	detections, err := p.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("%w: detect: %v", ErrUnavailable, err)
	}
	observability.ExtractDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]Face, 0, len(detections))
	for _, det := range detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		box := boxFromBBox(det.BBox)
		if box.W <= 0 || box.H <= 0 {
			continue
		}

		crop := cropFace(img, det.BBox)
		if crop == nil {
			continue
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, p.embedder.inputW, p.embedder.inputH)
		embedding, err := p.embedder.Embed(embInput)
		if err != nil {
			return nil, fmt.Errorf("%w: embed: %v", ErrUnavailable, err)
		}
		observability.ExtractDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		faces = append(faces, Face{Embedding: embedding, Box: box})
	}

	return faces, nil
}

func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
	if p.embedder != nil {
		p.embedder.Close()
	}
}

// boxFromBBox converts corner coordinates to the stored x/y/w/h form.
func boxFromBBox(bbox [4]float32) models.Box {
	x := int(bbox[0])
	y := int(bbox[1])
	return models.Box{
		X: x,
		Y: y,
		W: int(bbox[2]) - x,
		H: int(bbox[3]) - y,
	}
}
