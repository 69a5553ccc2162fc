package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/juandiegoalamohe-alt/localpix/internal/config"
	"github.com/juandiegoalamohe-alt/localpix/internal/models"
	"github.com/juandiegoalamohe-alt/localpix/internal/vision"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema. Descriptors cascade with their photo; the
// embedding column is fixed at the model's dimensionality so a stored
// vector can never disagree with the extractor output.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS photos (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			object_key TEXT NOT NULL,
			photographer TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_descriptors (
			id BIGSERIAL PRIMARY KEY,
			photo_id UUID NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
			embedding VECTOR(%d) NOT NULL,
			box_x INT NOT NULL CHECK (box_x >= 0),
			box_y INT NOT NULL CHECK (box_y >= 0),
			box_w INT NOT NULL CHECK (box_w >= 0),
			box_h INT NOT NULL CHECK (box_h >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, vision.EmbeddingDim),
		`CREATE TABLE IF NOT EXISTS closing_reports (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_by TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_face_descriptors_photo_id ON face_descriptors(photo_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- Photos ---

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO photos (id, filename, object_key, photographer) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.Filename, p.ObjectKey, p.Photographer,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	p := &models.Photo{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, object_key, photographer, created_at FROM photos WHERE id = $1`, id,
	).Scan(&p.ID, &p.Filename, &p.ObjectKey, &p.Photographer, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

// DeletePhoto removes a photo row; its descriptors go with it via cascade.
func (s *PostgresStore) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo not found")
	}
	return nil
}

// --- Face descriptors ---

// AddDescriptors stores every face of one photo in a single transaction, so
// a reader observes either all of a photo's faces or none of them.
func (s *PostgresStore) AddDescriptors(ctx context.Context, photoID uuid.UUID, faces []vision.Face) error {
	if len(faces) == 0 {
		return nil
	}
	for _, f := range faces {
		if len(f.Embedding) != vision.EmbeddingDim {
			return fmt.Errorf("add descriptors for photo %s: %w", photoID, vision.ErrDimensionMismatch)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin add descriptors: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range faces {
		vec := pgvector.NewVector(f.Embedding)
		_, err := tx.Exec(ctx,
			`INSERT INTO face_descriptors (photo_id, embedding, box_x, box_y, box_w, box_h)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			photoID, vec, f.Box.X, f.Box.Y, f.Box.W, f.Box.H)
		if err != nil {
			return fmt.Errorf("insert descriptor: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit descriptors: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDescriptors(ctx context.Context) ([]models.FaceDescriptor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, photo_id, embedding, box_x, box_y, box_w, box_h, created_at
		 FROM face_descriptors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list descriptors: %w", err)
	}
	defer rows.Close()

	var descriptors []models.FaceDescriptor
	for rows.Next() {
		var d models.FaceDescriptor
		var vec pgvector.Vector
		if err := rows.Scan(&d.ID, &d.PhotoID, &vec, &d.Box.X, &d.Box.Y, &d.Box.W, &d.Box.H, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		d.Embedding = vec.Slice()
		descriptors = append(descriptors, d)
	}
	return descriptors, rows.Err()
}

func (s *PostgresStore) CountDescriptors(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM face_descriptors`).Scan(&count)
	return count, err
}

// DeleteByPhoto removes all descriptors of one photo.
func (s *PostgresStore) DeleteByPhoto(ctx context.Context, photoID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM face_descriptors WHERE photo_id = $1`, photoID)
	if err != nil {
		return 0, fmt.Errorf("delete descriptors by photo: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SearchDescriptors scores the probe against every live descriptor and
// returns matches strictly above the threshold, best first, ties broken by
// ascending descriptor id. Exhaustive scan: O(N*D), fine at single-kiosk
// volume; an index can replace this query without changing the contract.
func (s *PostgresStore) SearchDescriptors(ctx context.Context, probe []float32, threshold float64, limit int) ([]models.Match, error) {
	if len(probe) != vision.EmbeddingDim {
		return nil, fmt.Errorf("search descriptors: %w", vision.ErrDimensionMismatch)
	}
	if limit <= 0 {
		limit = 20
	}
	vec := pgvector.NewVector(probe)

	rows, err := s.pool.Query(ctx,
		`SELECT fd.id, fd.photo_id, 1 - (fd.embedding <=> $1) AS similarity,
		        fd.box_x, fd.box_y, fd.box_w, fd.box_h,
		        p.object_key, p.created_at
		 FROM face_descriptors fd
		 JOIN photos p ON p.id = fd.photo_id
		 WHERE 1 - (fd.embedding <=> $1) > $2
		 ORDER BY fd.embedding <=> $1 ASC, fd.id ASC
		 LIMIT $3`,
		vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search descriptors: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.DescriptorID, &m.PhotoID, &m.Similarity,
			&m.Box.X, &m.Box.Y, &m.Box.W, &m.Box.H, &m.Path, &m.Date); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// --- Purge ---

// PurgeAllWith deletes every descriptor and runs fn (the closing record
// write) inside the same transaction. The table lock serializes the purge
// against concurrent descriptor inserts, so a descriptor created before the
// closing can never survive it. Returns the number of rows destroyed.
func (s *PostgresStore) PurgeAllWith(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE face_descriptors IN ACCESS EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("lock descriptors: %w", err)
	}

	if fn != nil {
		if err := fn(ctx, tx); err != nil {
			return 0, fmt.Errorf("closing write: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM face_descriptors`)
	if err != nil {
		return 0, fmt.Errorf("purge descriptors: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Closing reports ---

func (s *PostgresStore) LastClosing(ctx context.Context) (*models.ClosingReport, error) {
	r := &models.ClosingReport{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, timestamp, closed_by, notes FROM closing_reports ORDER BY timestamp DESC LIMIT 1`,
	).Scan(&r.ID, &r.Timestamp, &r.ClosedBy, &r.Notes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("last closing: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListClosings(ctx context.Context, limit int) ([]models.ClosingReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, closed_by, notes FROM closing_reports ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list closings: %w", err)
	}
	defer rows.Close()

	var reports []models.ClosingReport
	for rows.Next() {
		var r models.ClosingReport
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.ClosedBy, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan closing: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
