package index

import (
	"context"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededIndex(t *testing.T, fsys hackpadfs.FS) *HNSWIndex {
	t.Helper()

	x, err := NewHNSWIndex(fsys, "rules.hnsw", 4)
	require.NoError(t, err)

	require.NoError(t, x.Add(0, []float32{0.1, 0.2, 0.3, 0.0}))
	require.NoError(t, x.Add(1, []float32{0.9, 0.8, 0.9, 0.0}))
	require.NoError(t, x.Add(2, []float32{0.1, 0.21, 0.31, 0.0}))
	return x
}

func TestHNSWIndex_RoundTrip(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	x := seededIndex(t, fsys)
	require.NoError(t, x.Save())

	loaded, err := NewHNSWIndex(fsys, "rules.hnsw", 4)
	require.NoError(t, err)
	require.NoError(t, loaded.Available(context.Background()))

	hits, err := loaded.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, 0, hits[0].Offset)
	assert.Equal(t, 2, hits[1].Offset)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	x := seededIndex(t, fsys)
	assert.Equal(t, 4, x.Dimension())

	assert.ErrorIs(t, x.Add(3, []float32{1, 2}), ErrDimensionMismatch)

	_, err = x.Search(context.Background(), []float32{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestHNSWIndex_LoadRejectsOtherDimension(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, seededIndex(t, fsys).Save())

	_, err = NewHNSWIndex(fsys, "rules.hnsw", 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Open(context.Background(), Options{Backend: BackendHNSW, FS: fsys, Path: "rules.hnsw", Dimension: 3072})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestHNSWIndex_DimensionFromLoadedGraph(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, seededIndex(t, fsys).Save())

	x, err := NewHNSWIndex(fsys, "rules.hnsw", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, x.Dimension())

	_, err = x.Search(context.Background(), []float32{0.1, 0.2}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestHNSWIndex_DimensionFromHead(t *testing.T) {
	x, err := NewHNSWIndex(nil, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, x.Dimension())

	require.NoError(t, x.Add(7, []float32{1, 0, 0}))
	assert.Equal(t, 3, x.Dimension())
	assert.NoError(t, x.Available(context.Background()))
}

func TestHNSWIndex_Empty(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	x, err := NewHNSWIndex(fsys, "missing.hnsw", 4)
	require.NoError(t, err)

	assert.ErrorIs(t, x.Available(context.Background()), ErrEmpty)
	_, err = x.Search(context.Background(), []float32{1, 0, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHNSWIndex_FileRemoved(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	x := seededIndex(t, fsys)
	require.NoError(t, x.Save())
	require.NoError(t, x.Available(context.Background()))

	require.NoError(t, hackpadfs.Remove(fsys, "rules.hnsw"))
	assert.Error(t, x.Available(context.Background()))
}

func TestHNSWIndex_CanceledContext(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	x := seededIndex(t, fsys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = x.Search(ctx, []float32{0.1, 0.2, 0.3, 0.0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "faiss"})
	assert.Error(t, err)
}

func TestOpen_HNSW(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	store, err := Open(context.Background(), Options{Backend: BackendHNSW, FS: fsys, Path: "rules.hnsw", Dimension: 8})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 8, store.Dimension())
}
