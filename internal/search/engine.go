// Package search answers "find all photos containing this face" queries
// against the accumulated descriptor store.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
)

// Searcher scores a probe embedding against every live descriptor and
// returns matches strictly above threshold, best first, ties broken by
// ascending descriptor id, truncated to limit.
type Searcher interface {
	SearchDescriptors(ctx context.Context, probe []float32, threshold float64, limit int) ([]models.Match, error)
}

// Result distinguishes "no face in the probe" from "face found, nothing
// matched" so callers can render different messages.
type Result struct {
	Matches []models.Match
	NoFace  bool
}

type Engine struct {
	extractor vision.Extractor
	store     Searcher
	threshold float64
	topK      int
}

// NewEngine uses the configured threshold and limit as-is; defaults live in
// the config layer. A zero threshold is meaningful: every descriptor above
// exact orthogonality comes back ranked.
func NewEngine(cfg config.SearchConfig, extractor vision.Extractor, store Searcher) *Engine {
	return &Engine{
		extractor: extractor,
		store:     store,
		threshold: cfg.Threshold,
		topK:      cfg.TopK,
	}
}

// Identify extracts the probe embedding and ranks every stored descriptor
// against it. When the probe contains several faces only the first is used.
// Extraction failures surface to the caller; a probe with no detectable
// face is a success with NoFace set.
func (e *Engine) Identify(ctx context.Context, image []byte) (Result, error) {
	start := time.Now()
	defer func() {
		observability.IdentifyDuration.Observe(time.Since(start).Seconds())
	}()

	faces, err := e.extractor.Extract(ctx, image)
	if err != nil {
		return Result{}, fmt.Errorf("extract probe: %w", err)
	}
	if len(faces) == 0 {
		return Result{NoFace: true}, nil
	}

	matches, err := e.store.SearchDescriptors(ctx, faces[0].Embedding, e.threshold, e.topK)
	if err != nil {
		return Result{}, fmt.Errorf("search descriptors: %w", err)
	}

	return Result{Matches: matches}, nil
}
