package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"occal/internal/model"
	"occal/internal/plan"
)

// PostgresStore keeps the document as a single jsonb row, upserted whole on
// every persist. Like the file store, overlapping persists are last-writer-
// wins; the upsert itself is atomic at the database.
type PostgresStore struct {
	pool *pgxpool.Pool
	// key distinguishes documents when several events share one database.
	key string
}

// NewPostgresStore connects a pool to one document key.
func NewPostgresStore(pool *pgxpool.Pool, key string) *PostgresStore {
	if key == "" {
		key = "default"
	}
	return &PostgresStore{pool: pool, key: key}
}

// EnsureSchema creates the backing table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS occurrence_documents (
			key        TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

// Load reads and normalizes the stored document; a missing row yields an
// empty document.
func (s *PostgresStore) Load(ctx context.Context, ids model.IDGenerator) ([]model.Occurrence, string, *plan.Serialized, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM occurrence_documents WHERE key = $1`, s.key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil, nil
		}
		return nil, "", nil, err
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, "", nil, err
	}

	occs := model.NormalizeAll(doc.Occurrences, ids)
	var p *plan.Serialized
	if doc.Plan != nil {
		normalized := doc.Plan.Normalize()
		p = &normalized
	}
	return occs, doc.Summary, p, nil
}

// Persist implements editor.Persister via an upsert of the whole document.
func (s *PostgresStore) Persist(ctx context.Context, occs []model.Occurrence, summary string, p plan.Serialized) error {
	doc := Document{
		Version:     documentVersion,
		UpdatedAt:   time.Now().UTC(),
		Summary:     summary,
		Plan:        &p,
		Occurrences: rawFrom(occs),
	}
	payload, err := json.Marshal(&doc)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO occurrence_documents (key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		s.key, payload, doc.UpdatedAt)
	return err
}
