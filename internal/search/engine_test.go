package search

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
)

// fakeExtractor returns canned faces or a canned error.
type fakeExtractor struct {
	faces []vision.Face
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte) ([]vision.Face, error) {
	return f.faces, f.err
}

// memStore mimics the descriptor store contract in memory: strict threshold,
// descending similarity, ties by ascending id, truncated to limit.
type memStore struct {
	descriptors []models.FaceDescriptor
}

func (s *memStore) add(photoID uuid.UUID, embedding []float32) int64 {
	id := int64(len(s.descriptors) + 1)
	s.descriptors = append(s.descriptors, models.FaceDescriptor{
		ID:        id,
		PhotoID:   photoID,
		Embedding: embedding,
		CreatedAt: time.Now(),
	})
	return id
}

func (s *memStore) purge() {
	s.descriptors = nil
}

func (s *memStore) SearchDescriptors(ctx context.Context, probe []float32, threshold float64, limit int) ([]models.Match, error) {
	var matches []models.Match
	for _, d := range s.descriptors {
		sim, err := vision.Cosine(probe, d.Embedding)
		if err != nil {
			return nil, err
		}
		if sim > threshold {
			matches = append(matches, models.Match{
				DescriptorID: d.ID,
				PhotoID:      d.PhotoID,
				Similarity:   sim,
				Date:         d.CreatedAt,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].DescriptorID < matches[j].DescriptorID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func newTestEngine(extractor vision.Extractor, store Searcher) *Engine {
	return NewEngine(config.SearchConfig{Threshold: 0.65, TopK: 20}, extractor, store)
}

func TestIdentifySingleMatch(t *testing.T) {
	store := &memStore{}
	photoID := uuid.New()
	emb := unitVector(8, 0)
	store.add(photoID, emb)

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: emb}}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.NoFace {
		t.Fatal("NoFace = true; want false")
	}
	if len(result.Matches) != 1 {
		t.Fatalf("got %d matches; want 1", len(result.Matches))
	}
	m := result.Matches[0]
	if m.PhotoID != photoID {
		t.Errorf("photo = %s; want %s", m.PhotoID, photoID)
	}
	if m.Similarity < 0.999 {
		t.Errorf("similarity = %v; want ~1.0", m.Similarity)
	}
}

func TestIdentifyNoFaceInProbe(t *testing.T) {
	store := &memStore{}
	store.add(uuid.New(), unitVector(8, 0))

	engine := newTestEngine(&fakeExtractor{faces: nil}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !result.NoFace {
		t.Error("NoFace = false; want true")
	}
	if len(result.Matches) != 0 {
		t.Errorf("got %d matches; want 0", len(result.Matches))
	}
}

func TestIdentifyExtractionUnavailable(t *testing.T) {
	engine := newTestEngine(&fakeExtractor{err: vision.ErrUnavailable}, &memStore{})

	_, err := engine.Identify(context.Background(), []byte("probe"))
	if !errors.Is(err, vision.ErrUnavailable) {
		t.Errorf("error = %v; want ErrUnavailable", err)
	}
}

func TestIdentifyThresholdIsStrict(t *testing.T) {
	store := &memStore{}

	// cos(probe, stored) = 0.65 exactly: must be excluded.
	probe := []float32{1, 0}
	stored := []float32{0.65, float32(0.7599342076785331)} // sqrt(1 - 0.65^2)
	store.add(uuid.New(), stored)

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: probe}}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("got %d matches at exact threshold; want 0", len(result.Matches))
	}
}

func TestIdentifyTopKTruncation(t *testing.T) {
	store := &memStore{}
	probe := make([]float32, 32)
	probe[0] = 1

	// 25 descriptors, all above threshold with distinct scores.
	for i := 0; i < 25; i++ {
		emb := make([]float32, 32)
		emb[0] = 1
		emb[1] = float32(i) * 0.01 // small off-axis component lowers similarity
		store.add(uuid.New(), emb)
	}

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: probe}}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Matches) != 20 {
		t.Fatalf("got %d matches; want 20", len(result.Matches))
	}

	for i := 1; i < len(result.Matches); i++ {
		if result.Matches[i].Similarity > result.Matches[i-1].Similarity {
			t.Fatalf("matches out of order at %d: %v > %v",
				i, result.Matches[i].Similarity, result.Matches[i-1].Similarity)
		}
	}

	// The 20 kept must be the 20 highest scoring, i.e. the smallest
	// off-axis components (descriptor ids 1..20).
	for i, m := range result.Matches {
		if m.DescriptorID != int64(i+1) {
			t.Errorf("match %d has descriptor id %d; want %d", i, m.DescriptorID, i+1)
		}
	}
}

func TestIdentifyTieBreakByDescriptorID(t *testing.T) {
	store := &memStore{}
	emb := unitVector(8, 0)

	// Same embedding stored three times: identical scores.
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, store.add(uuid.New(), emb))
	}

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: emb}}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Matches) != 3 {
		t.Fatalf("got %d matches; want 3", len(result.Matches))
	}
	for i, m := range result.Matches {
		if m.DescriptorID != ids[i] {
			t.Errorf("match %d descriptor = %d; want %d (ascending id ties)", i, m.DescriptorID, ids[i])
		}
	}
}

func TestIdentifyUsesFirstProbeFace(t *testing.T) {
	store := &memStore{}
	matchFirst := uuid.New()
	store.add(matchFirst, unitVector(8, 0))
	store.add(uuid.New(), unitVector(8, 1))

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{
		{Embedding: unitVector(8, 0)},
		{Embedding: unitVector(8, 1)},
	}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("got %d matches; want 1", len(result.Matches))
	}
	if result.Matches[0].PhotoID != matchFirst {
		t.Errorf("matched %s; want the first probe face's photo %s", result.Matches[0].PhotoID, matchFirst)
	}
}

func TestIdentifyAfterPurge(t *testing.T) {
	store := &memStore{}
	emb := unitVector(8, 0)
	store.add(uuid.New(), emb)

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: emb}}}, store)

	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil || len(result.Matches) != 1 {
		t.Fatalf("pre-purge: matches = %d, err = %v; want 1, nil", len(result.Matches), err)
	}

	store.purge()

	result, err = engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("post-purge Identify failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("post-purge matches = %d; want 0 even with the exact embedding", len(result.Matches))
	}
}

// recordingSearcher captures the query parameters the engine passes down.
type recordingSearcher struct {
	threshold float64
	limit     int
}

func (s *recordingSearcher) SearchDescriptors(ctx context.Context, probe []float32, threshold float64, limit int) ([]models.Match, error) {
	s.threshold = threshold
	s.limit = limit
	return nil, nil
}

func TestIdentifyZeroThresholdPassesThrough(t *testing.T) {
	store := &recordingSearcher{}
	engine := NewEngine(config.SearchConfig{Threshold: 0, TopK: 3},
		&fakeExtractor{faces: []vision.Face{{Embedding: unitVector(8, 0)}}}, store)

	if _, err := engine.Identify(context.Background(), []byte("probe")); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if store.threshold != 0 {
		t.Errorf("threshold = %v; want the configured 0, not a re-applied default", store.threshold)
	}
	if store.limit != 3 {
		t.Errorf("limit = %d; want 3", store.limit)
	}
}

func TestIdentifyZeroThresholdRanksWeakMatches(t *testing.T) {
	store := &memStore{}
	// cos(probe, stored) ~ 0.1: invisible at 0.65, visible at 0.
	store.add(uuid.New(), []float32{0.1, float32(0.99498743710662)})

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: []float32{1, 0}}}}, store)
	result, err := engine.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Fatalf("default threshold returned %d matches; want 0", len(result.Matches))
	}

	open := NewEngine(config.SearchConfig{Threshold: 0, TopK: 20},
		&fakeExtractor{faces: []vision.Face{{Embedding: []float32{1, 0}}}}, store)
	result, err = open.Identify(context.Background(), []byte("probe"))
	if err != nil {
		t.Fatalf("zero-threshold Identify failed: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Errorf("zero threshold returned %d matches; want 1", len(result.Matches))
	}
}

func TestIdentifyDimensionMismatchSurfaces(t *testing.T) {
	store := &memStore{}
	store.add(uuid.New(), unitVector(8, 0))

	engine := newTestEngine(&fakeExtractor{faces: []vision.Face{{Embedding: unitVector(4, 0)}}}, store)

	_, err := engine.Identify(context.Background(), []byte("probe"))
	if !errors.Is(err, vision.ErrDimensionMismatch) {
		t.Errorf("error = %v; want ErrDimensionMismatch", err)
	}
}
