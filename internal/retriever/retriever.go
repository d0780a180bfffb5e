// Package retriever turns a query into ranked rulebook passages: embed,
// nearest-neighbour search, corpus lookup and rule-id resolution.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"umpire-rules-rag/internal/models"
	"umpire-rules-rag/internal/ruleid"
)

// DefaultK is the number of passages returned when k is not positive
const DefaultK = 5

var (
	// ErrEmbedding means the embedding provider failed or timed out
	ErrEmbedding = errors.New("embedding failed")
	// ErrDimensionMismatch means the embedder and index disagree on vector length
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDataUnavailable means the corpus or index could not be read
	ErrDataUnavailable = errors.New("rulebook data unavailable")
)

// Embedder produces a query vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Index is a k-NN search over corpus offsets
type Index interface {
	Search(ctx context.Context, vec []float32, k int) ([]models.IndexHit, error)
	Dimension() int
	Available(ctx context.Context) error
}

// Corpus resolves an offset to its chunk
type Corpus interface {
	Chunk(offset int) (models.RuleChunk, bool)
	Available() error
}

// IDMap resolves canonical ids for corpus offsets
type IDMap interface {
	ruleid.Lookup
	CanonicalID(offset int) string
}

// Retriever ranks corpus passages for a query
type Retriever struct {
	Embedder Embedder
	Index    Index
	Corpus   Corpus
	IDMap    IDMap
	Timeout  time.Duration
}

// NewRetriever wires the collaborators loaded at startup
func NewRetriever(embedder Embedder, index Index, corpus Corpus, idmap IDMap) *Retriever {
	return &Retriever{
		Embedder: embedder,
		Index:    index,
		Corpus:   corpus,
		IDMap:    idmap,
		Timeout:  30 * time.Second,
	}
}

// CheckDimensions compares the embedder's output length with the index
func (r *Retriever) CheckDimensions() error {
	want, got := r.Index.Dimension(), r.Embedder.Dimension()
	if want > 0 && got > 0 && want != got {
		return fmt.Errorf("%w: embedder produces %d, index expects %d", ErrDimensionMismatch, got, want)
	}
	return nil
}

// Available reports whether the corpus and the index can be read
func (r *Retriever) Available(ctx context.Context) error {
	if err := r.Corpus.Available(); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if err := r.Index.Available(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return nil
}

// Retrieve returns up to k passages ordered by ascending distance, ties by offset
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	if k <= 0 {
		k = DefaultK
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	vec, err := r.Embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if dim := r.Index.Dimension(); dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vec), dim)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	hits, err := r.Index.Search(searchCtx, vec, k)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Offset < hits[j].Offset
	})

	docs := make([]models.RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := r.Corpus.Chunk(hit.Offset)
		if !ok {
			log.Printf("Index offset %d is outside the corpus, skipping", hit.Offset)
			continue
		}

		documentID := r.IDMap.CanonicalID(hit.Offset)
		docs = append(docs, models.RetrievedDocument{
			RuleChunk:  chunk,
			Distance:   hit.Distance,
			ResolvedID: ruleid.Standardize(documentID, chunk, r.IDMap),
		})
		if len(docs) == k {
			break
		}
	}

	return docs, nil
}
