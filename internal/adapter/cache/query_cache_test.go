package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qalog/internal/domain"
)

type countingRetriever struct {
	calls int
	err   error
}

func (r *countingRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []domain.ScoredChunk{{Chunk: domain.Chunk{ID: query}, Score: float64(k)}}, nil
}

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	_, ok := c.Get("q", 4)
	assert.False(t, ok)

	c.Put("q", 4, []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "a"}}})
	got, ok := c.Get("q", 4)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Chunk.ID)

	_, ok = c.Get("q", 5)
	assert.False(t, ok, "k is part of the key")
}

func TestQueryCache_ResultsAreCopied(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	results := []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "a"}}}
	c.Put("q", 1, results)
	results[0].Chunk.ID = "mutated"

	got, ok := c.Get("q", 1)
	require.True(t, ok)
	assert.Equal(t, "a", got[0].Chunk.ID)

	got[0].Chunk.ID = "mutated again"
	got, _ = c.Get("q", 1)
	assert.Equal(t, "a", got[0].Chunk.ID)
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("q", 1, nil)
	now = now.Add(30 * time.Second)
	_, ok := c.Get("q", 1)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("q", 1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("a", 1, nil)
	c.Put("b", 1, nil)

	_, ok := c.Get("a", 1)
	require.True(t, ok)

	c.Put("c", 1, nil)
	assert.Equal(t, 2, c.Size())

	_, ok = c.Get("b", 1)
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a", 1)
	assert.True(t, ok)
	_, ok = c.Get("c", 1)
	assert.True(t, ok)
}

func TestCachedRetriever(t *testing.T) {
	ctx := context.Background()
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	first, err := r.Search(ctx, "q", 3)
	require.NoError(t, err)
	second, err := r.Search(ctx, "q", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = r.Search(ctx, "q", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRetriever_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRetriever{err: errors.Join(errors.New("down"), domain.ErrTransient)}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))

	_, err := r.Search(ctx, "q", 3)
	assert.ErrorIs(t, err, domain.ErrTransient)

	inner.err = nil
	got, err := r.Search(ctx, "q", 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, inner.calls)
}
