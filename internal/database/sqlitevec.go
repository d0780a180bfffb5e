package database

import (
	"context"
	"errors"
	"fmt"

	"umpire-rules-rag/internal/models"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/jmoiron/sqlx"
)

// SQLiteVecIndex is a sqlite-vec vec0 table keyed by corpus offset (rowid)
type SQLiteVecIndex struct {
	db  *sqlx.DB
	Dim int
}

// NewSQLiteVecIndex opens dsn and ensures the vec0 table exists
func NewSQLiteVecIndex(dsn string, dim int) (*SQLiteVecIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", dim)
	}

	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_rules USING vec0(embedding float[%d] distance_metric=cosine)`, dim))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vec_rules table: %w", err)
	}

	return &SQLiteVecIndex{db: db, Dim: dim}, nil
}

// Add stores the vector for a corpus offset
func (s *SQLiteVecIndex) Add(ctx context.Context, offset int, vec []float32) error {
	if len(vec) != s.Dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.Dim, len(vec))
	}

	blob, err := sqlitevec.SerializeFloat32(vec)
	if err != nil {
		return fmt.Errorf("failed to serialize vector: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO vec_rules (rowid, embedding) VALUES (?, ?)`, offset, blob)
	if err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

type vecHit struct {
	Offset   int64   `db:"rowid"`
	Distance float64 `db:"distance"`
}

// Search runs a vec0 KNN query
func (s *SQLiteVecIndex) Search(ctx context.Context, vec []float32, k int) ([]models.IndexHit, error) {
	if len(vec) != s.Dim {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.Dim, len(vec))
	}

	blob, err := sqlitevec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vector: %w", err)
	}

	var rows []vecHit
	err = s.db.SelectContext(ctx, &rows, `
		SELECT rowid, distance
		FROM vec_rules
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar vectors: %w", err)
	}

	hits := make([]models.IndexHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, models.IndexHit{Offset: int(r.Offset), Distance: float32(r.Distance)})
	}
	return hits, nil
}

// Dimension returns the vec0 column width
func (s *SQLiteVecIndex) Dimension() int {
	return s.Dim
}

// Available checks the connection and that the table holds vectors
func (s *SQLiteVecIndex) Available(ctx context.Context) error {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM vec_rules`); err != nil {
		return fmt.Errorf("failed to count vectors: %w", err)
	}
	if count == 0 {
		return errors.New("vec_rules table is empty")
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteVecIndex) Close() error {
	return s.db.Close()
}
