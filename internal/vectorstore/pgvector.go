package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/merchantkit/storesync/internal/pkg/dbutil"
)

// PGVectorIndex stores vectors in a single Postgres table with a pgvector
// column. Rows are keyed by (namespace, id); similarity is cosine.
type PGVectorIndex struct {
	db *sql.DB
}

func NewPGVectorIndex(db *sql.DB) *PGVectorIndex {
	return &PGVectorIndex{db: db}
}

func (s *PGVectorIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	const query = `
		INSERT INTO store_vectors (namespace, id, embedding, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata
	`
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", rec.ID, err)
		}
		if _, err := s.db.ExecContext(ctx, query, namespace, rec.ID, pgvector.NewVector(rec.Vector), rec.Content, meta); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", namespace, rec.ID, err)
		}
	}
	return nil
}

func (s *PGVectorIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]string) ([]Match, error) {
	query := `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM store_vectors
		WHERE namespace = $2
	`
	args := []interface{}{pgvector.NewVector(vector), namespace}
	if len(filter) > 0 {
		cond, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND metadata @> $%d", len(args)+1)
		args = append(args, cond)
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query %s: %w", namespace, err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, err
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PGVectorIndex) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := dbutil.In(`DELETE FROM store_vectors WHERE namespace = ? AND id IN (?)`, namespace, ids)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *PGVectorIndex) DeleteBySource(ctx context.Context, namespace string, sourceEntityID string) error {
	const query = `DELETE FROM store_vectors WHERE namespace = $1 AND metadata->>'source_entity_id' = $2`
	_, err := s.db.ExecContext(ctx, query, namespace, sourceEntityID)
	return err
}

func (s *PGVectorIndex) DeleteAll(ctx context.Context, namespace string) error {
	const query = `DELETE FROM store_vectors WHERE namespace = $1`
	_, err := s.db.ExecContext(ctx, query, namespace)
	return err
}
