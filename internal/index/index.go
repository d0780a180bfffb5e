// Package index provides the nearest-neighbour stores that map a query
// embedding to corpus offsets.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"umpire-rules-rag/internal/database"
	"umpire-rules-rag/internal/models"

	"github.com/hack-pad/hackpadfs"
)

var (
	// ErrEmpty is returned when an index holds no vectors
	ErrEmpty = errors.New("vector index is empty")
	// ErrDimensionMismatch means a vector does not match the index's length
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Store is a read-only k-NN index keyed by corpus offset
type Store interface {
	Search(ctx context.Context, vec []float32, k int) ([]models.IndexHit, error)
	Dimension() int
	Available(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendHNSW      = "hnsw"
	BackendPGVector  = "pgvector"
	BackendSQLiteVec = "sqlitevec"
)

// Options selects and configures an index backend
type Options struct {
	Backend   string
	Dimension int
	// FS and Path locate the gob-encoded HNSW graph
	FS   hackpadfs.FS
	Path string
	// DSN is the PostgreSQL URL or SQLite file for the database backends
	DSN string
}

// Open connects to the configured backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendHNSW:
		return NewHNSWIndex(opts.FS, opts.Path, opts.Dimension)
	case BackendPGVector:
		return database.NewPGVectorIndex(ctx, opts.DSN, opts.Dimension)
	case BackendSQLiteVec:
		return database.NewSQLiteVecIndex(opts.DSN, opts.Dimension)
	default:
		return nil, fmt.Errorf("unknown index backend %q", opts.Backend)
	}
}
