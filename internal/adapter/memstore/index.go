// Package memstore holds the in-memory vector index built once at startup.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"math"
	"slices"

	"qalog/internal/domain"
	"qalog/internal/port"
)

var _ port.Retriever = (*Index)(nil)

const defaultBatchSize = 100

// Index stores every chunk with its embedding. It has no mutation methods, so
// once Build returns any number of goroutines may search it without locking.
type Index struct {
	embedder  port.Embedder
	dimension int
	entries   []entry
	documents int
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

type buildOptions struct {
	batchSize int
	progress  func(done, total int)
}

type BuildOption func(*buildOptions)

func WithBatchSize(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithProgress reports embedded chunk counts after every batch.
func WithProgress(fn func(done, total int)) BuildOption {
	return func(o *buildOptions) {
		o.progress = fn
	}
}

// Build consumes chunks once, embeds them with embedder and returns the
// finished index. The same embedder is used for every later query.
func Build(ctx context.Context, embedder port.Embedder, chunks iter.Seq[domain.Chunk], opts ...BuildOption) (*Index, error) {
	o := buildOptions{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}

	var all []domain.Chunk
	docs := make(map[string]struct{})
	for chunk := range chunks {
		all = append(all, chunk)
		docs[chunk.DocID] = struct{}{}
	}

	idx := &Index{
		embedder:  embedder,
		dimension: embedder.Dimension(),
		entries:   make([]entry, 0, len(all)),
		documents: len(docs),
	}

	for i := 0; i < len(all); i += o.batchSize {
		end := min(i+o.batchSize, len(all))
		batch := all[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", i, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for j, v := range vectors {
			if len(v) != idx.dimension {
				return nil, fmt.Errorf("vector dimension mismatch for chunk %s: expected %d, got %d", batch[j].ID, idx.dimension, len(v))
			}
			idx.entries = append(idx.entries, entry{chunk: batch[j], vector: v, norm: norm(v)})
		}

		if o.progress != nil {
			o.progress(end, len(all))
		}
	}

	return idx, nil
}

// Search embeds text with the index's embedder and returns up to k chunks by
// descending cosine similarity. Equal scores keep insertion order.
func (idx *Index) Search(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrValidation, k)
	}

	vectors, err := idx.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	return idx.SearchVector(vectors[0], k)
}

// SearchVector ranks the index against an already embedded query.
func (idx *Index) SearchVector(query []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrValidation, k)
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", idx.dimension, len(query))
	}

	qnorm := norm(query)
	results := make([]domain.ScoredChunk, len(idx.entries))
	for i, e := range idx.entries {
		results[i] = domain.ScoredChunk{
			Chunk: e.chunk,
			Score: cosineSimilarity(query, qnorm, e.vector, e.norm),
		}
	}

	slices.SortStableFunc(results, func(a, b domain.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

func (idx *Index) Stats() domain.IndexStats {
	return domain.IndexStats{
		Documents: idx.documents,
		Chunks:    len(idx.entries),
		Dimension: idx.dimension,
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}

	var dotProduct float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
	}
	return dotProduct / (normA * normB)
}
