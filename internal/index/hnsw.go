package index

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"umpire-rules-rag/internal/models"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	"github.com/hack-pad/hackpadfs"
	kvector "github.com/kshard/vector"
)

var cosine = vector.SurfaceVF32(kvector.Cosine())

// HNSWIndex is an in-process cosine HNSW graph persisted as gob-encoded nodes
type HNSWIndex struct {
	FS   hackpadfs.FS
	Path string
	Dim  int

	graph *hnsw.HNSW[vector.VF32]
	mu    sync.RWMutex
}

// NewHNSWIndex loads the graph at path, or starts an empty one when the file
// does not exist yet. dim may be 0 to take the dimension from the first vector.
func NewHNSWIndex(fsys hackpadfs.FS, path string, dim int) (*HNSWIndex, error) {
	x := &HNSWIndex{
		FS:   fsys,
		Path: path,
		Dim:  dim,
	}

	if fsys != nil && path != "" {
		err := x.Load()
		if err == nil {
			return x, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	x.graph = hnsw.New[vector.VF32](cosine)
	return x, nil
}

// Dimension returns the vector length the index accepts. A non-empty graph
// reports the length of its stored vectors.
func (x *HNSWIndex) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if d := x.graphDimension(); d > 0 {
		return d
	}
	return x.Dim
}

func (x *HNSWIndex) graphDimension() int {
	if x.graph == nil || x.graph.Size() == 0 {
		return 0
	}
	return len(x.graph.Head().Vec)
}

// Add inserts the vector for a corpus offset
func (x *HNSWIndex) Add(offset int, vec []float32) error {
	if offset < 0 {
		return fmt.Errorf("invalid corpus offset %d", offset)
	}
	if dim := x.Dimension(); dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(vec))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.graph.Insert(vector.VF32{Key: uint32(offset), Vec: vec})
	return nil
}

// Search returns up to k offsets ordered by ascending cosine distance
func (x *HNSWIndex) Search(ctx context.Context, vec []float32, k int) ([]models.IndexHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dim := x.Dimension(); dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dim, len(vec))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Size() == 0 {
		return nil, ErrEmpty
	}

	ef := k * 2
	if ef < 100 {
		ef = 100
	}

	query := vector.VF32{Vec: vec}
	results := x.graph.Search(query, k, ef)

	hits := make([]models.IndexHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.IndexHit{
			Offset:   int(r.Key),
			Distance: cosine.Distance(query, r),
		})
	}
	return hits, nil
}

// Save persists the graph to FS
func (x *HNSWIndex) Save() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.graph == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(x.graph.Nodes()); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	if err := hackpadfs.WriteFullFile(x.FS, x.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

// Load reads the graph from FS
func (x *HNSWIndex) Load() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	content, err := hackpadfs.ReadFile(x.FS, x.Path)
	if err != nil {
		return err
	}

	var nodes hnsw.Nodes[vector.VF32]
	if err := gob.NewDecoder(bytes.NewReader(content)).Decode(&nodes); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	graph := hnsw.FromNodes[vector.VF32](cosine, nodes)
	if graph.Size() > 0 {
		if d := len(graph.Head().Vec); x.Dim > 0 && d != x.Dim {
			return fmt.Errorf("%w: %s holds %d-dimensional vectors, configured for %d", ErrDimensionMismatch, x.Path, d, x.Dim)
		}
	}

	x.graph = graph
	return nil
}

// Available reports an empty graph or a backing file that has gone away
func (x *HNSWIndex) Available(ctx context.Context) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Size() == 0 {
		return ErrEmpty
	}
	if x.FS != nil && x.Path != "" {
		if _, err := hackpadfs.Stat(x.FS, x.Path); err != nil {
			return fmt.Errorf("index file %s: %w", x.Path, err)
		}
	}
	return nil
}

// Close is a no-op; the graph lives in memory
func (x *HNSWIndex) Close() error {
	return nil
}
