package database

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"umpire-rules-rag/internal/models"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) *InteractionLog {
	t.Helper()
	l, err := NewInteractionLog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleInteraction() *models.Interaction {
	ref := "Rule 8.05"
	return &models.Interaction{
		QueryText:     "What is a balk?",
		Division:      "Majors",
		Response:      "**Ruling:** A balk is an illegal act by the pitcher.",
		SessionID:     "3f1c",
		ResponseTime:  1.25,
		QueryType:     "rule_reference",
		APIUsed:       "OpenAI",
		TokensUsed:    321,
		RuleReference: &ref,
	}
}

func TestInteractionLog_LogAndGet(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	in := sampleInteraction()
	id, err := l.Log(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, in.ID)
	assert.NotEmpty(t, in.Timestamp)

	got, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "What is a balk?", got.QueryText)
	assert.Equal(t, "Majors", got.Division)
	assert.Equal(t, 321, got.TokensUsed)
	assert.InDelta(t, 1.25, got.ResponseTime, 1e-9)
	require.NotNil(t, got.RuleReference)
	assert.Equal(t, "Rule 8.05", *got.RuleReference)
	assert.Nil(t, got.ThumbsUp)
	assert.Nil(t, got.FeedbackText)
}

func TestInteractionLog_Feedback(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	id, err := l.Log(ctx, sampleInteraction())
	require.NoError(t, err)

	require.NoError(t, l.UpdateFeedback(ctx, id, true, false, "clear answer"))

	got, err := l.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.ThumbsUp)
	require.NotNil(t, got.ThumbsDown)
	assert.True(t, *got.ThumbsUp)
	assert.False(t, *got.ThumbsDown)
	require.NotNil(t, got.FeedbackText)
	assert.Equal(t, "clear answer", *got.FeedbackText)

	// empty text keeps the earlier comment
	require.NoError(t, l.UpdateFeedback(ctx, id, false, true, ""))
	got, err = l.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, *got.ThumbsDown)
	assert.Equal(t, "clear answer", *got.FeedbackText)

	err = l.UpdateFeedback(ctx, 999, true, false, "")
	assert.ErrorIs(t, err, ErrInteractionNotFound)
}

func TestInteractionLog_Export(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	_, err := l.Log(ctx, sampleInteraction())
	require.NoError(t, err)

	cached := sampleInteraction()
	cached.Response = "Hey coach, I need a bit more info, like \"outs\", please"
	cached.APIUsed = "Cached"
	cached.TokensUsed = 0
	cached.RuleReference = nil
	_, err = l.Log(ctx, cached)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := l.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, ExportColumns, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "Rule 8.05", records[1][13])
	assert.Equal(t, "", records[1][10])
	assert.Equal(t, cached.Response, records[2][3])
	assert.Equal(t, "Cached", records[2][8])
	assert.Equal(t, "", records[2][13])
}

func TestInteractionLog_ExportFile(t *testing.T) {
	l := newLog(t)
	ctx := context.Background()

	_, err := l.Log(ctx, sampleInteraction())
	require.NoError(t, err)

	fsys, err := mem.NewFS()
	require.NoError(t, err)

	now := time.Date(2025, 4, 1, 13, 5, 9, 0, time.UTC)
	name, n, err := l.ExportFile(ctx, fsys, "backups", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "backups/interactions-20250401-130509.csv", name)

	content, err := hackpadfs.ReadFile(fsys, name)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), strings.Join(ExportColumns, ",")+"\n"))
}

func TestSQLiteVecIndex(t *testing.T) {
	x, err := NewSQLiteVecIndex(":memory:", 4)
	require.NoError(t, err)
	defer x.Close()
	ctx := context.Background()

	assert.Error(t, x.Available(ctx))
	assert.Equal(t, 4, x.Dimension())

	require.NoError(t, x.Add(ctx, 0, []float32{1, 0, 0, 0}))
	require.NoError(t, x.Add(ctx, 1, []float32{0, 1, 0, 0}))
	require.NoError(t, x.Add(ctx, 2, []float32{0.9, 0.1, 0, 0}))
	require.NoError(t, x.Available(ctx))

	hits, err := x.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Offset)
	assert.Equal(t, 2, hits[1].Offset)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)

	_, err = x.Search(ctx, []float32{1, 0}, 2)
	assert.Error(t, err)
	assert.Error(t, x.Add(ctx, 3, []float32{1}))
}

func TestNewSQLiteVecIndex_InvalidDimension(t *testing.T) {
	_, err := NewSQLiteVecIndex(":memory:", 0)
	assert.Error(t, err)
}

func TestNewPGVectorIndex_BadURL(t *testing.T) {
	_, err := NewPGVectorIndex(context.Background(), "postgres://user@localhost:notaport/rules", 3)
	assert.Error(t, err)
}
