package database

import (
	"context"
	"errors"
	"fmt"

	"umpire-rules-rag/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGVectorIndex is a pgvector-backed nearest-neighbour index over corpus offsets
type PGVectorIndex struct {
	Pool *pgxpool.Pool
	Dim  int
}

// NewPGVectorIndex connects to PostgreSQL. A zero dim is read from the stored vectors.
func NewPGVectorIndex(ctx context.Context, connStr string, dim int) (*PGVectorIndex, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PGVectorIndex{Pool: pool, Dim: dim}
	if dim == 0 {
		if err := db.Pool.QueryRow(ctx, `SELECT vector_dims(embedding) FROM rule_vectors LIMIT 1`).Scan(&db.Dim); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			pool.Close()
			return nil, fmt.Errorf("failed to read vector dimension: %w", err)
		}
	}

	return db, nil
}

// Initialize sets up the vector table and its cosine index
func (db *PGVectorIndex) Initialize(ctx context.Context) error {
	if db.Dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", db.Dim)
	}

	_, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS rule_vectors (
            chunk_offset INTEGER PRIMARY KEY,
            embedding vector(%d) NOT NULL
        )
    `, db.Dim))
	if err != nil {
		return fmt.Errorf("failed to create rule_vectors table: %w", err)
	}

	// pgvector caps indexed dimensions at 2000, larger vectors are scanned
	if db.Dim <= 2000 {
		_, err = db.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS rule_vectors_embedding_idx ON rule_vectors
		USING hnsw (embedding vector_cosine_ops)
	`)
		if err != nil {
			return fmt.Errorf("failed to create vector index: %w", err)
		}
	}

	return nil
}

// Add stores the vector for a corpus offset
func (db *PGVectorIndex) Add(ctx context.Context, offset int, vec []float32) error {
	if len(vec) != db.Dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", db.Dim, len(vec))
	}

	_, err := db.Pool.Exec(ctx, `
        INSERT INTO rule_vectors (chunk_offset, embedding)
        VALUES ($1, $2::real[]::vector)
        ON CONFLICT (chunk_offset) DO UPDATE SET embedding = EXCLUDED.embedding
    `, offset, vec)
	if err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

// Search finds the offsets nearest to the query embedding by cosine distance
func (db *PGVectorIndex) Search(ctx context.Context, vec []float32, k int) ([]models.IndexHit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT chunk_offset, embedding <=> $1::real[]::vector AS distance
		FROM rule_vectors
		ORDER BY distance, chunk_offset
		LIMIT $2
	`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar vectors: %w", err)
	}
	defer rows.Close()

	var hits []models.IndexHit
	for rows.Next() {
		var (
			offset   int
			distance float64
		)
		if err := rows.Scan(&offset, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hits = append(hits, models.IndexHit{Offset: offset, Distance: float32(distance)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return hits, nil
}

// Dimension returns the stored vector length
func (db *PGVectorIndex) Dimension() int {
	return db.Dim
}

// Available pings the server and checks that vectors are present
func (db *PGVectorIndex) Available(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var count int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM rule_vectors`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count vectors: %w", err)
	}
	if count == 0 {
		return errors.New("rule_vectors table is empty")
	}
	return nil
}

// Close closes the database connection
func (db *PGVectorIndex) Close() error {
	db.Pool.Close()
	return nil
}
