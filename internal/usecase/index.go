package usecase

import (
	"context"
	"fmt"
	"iter"

	"qalog/internal/adapter/memstore"
	"qalog/internal/domain"
	"qalog/internal/logger"
	"qalog/internal/port"
)

// IndexUseCase builds the in-memory vector index from a document directory.
type IndexUseCase struct {
	walker    port.FileWalker
	loader    port.DocumentLoader
	chunker   port.Chunker
	embedder  port.Embedder
	batchSize int
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	walker port.FileWalker,
	loader port.DocumentLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	batchSize int,
) *IndexUseCase {
	return &IndexUseCase{
		walker:    walker,
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	FilesIndexed  int
	FilesSkipped  int
	ChunksCreated int
	Errors        []string
}

// Build walks root, loads and chunks every matching file and embeds the
// chunks into a new index. Files that cannot be read are skipped and
// reported in the result. progress may be nil.
func (u *IndexUseCase) Build(ctx context.Context, root string, progress func(done, total int)) (*memstore.Index, *IndexResult, error) {
	result := &IndexResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	logger.Debug("walked document directory", "root", root, "files", len(files))

	docs := make([]domain.Document, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, err := u.loader.Load(ctx, file)
		if err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("failed to load %s: %v", file.Path, err))
			logger.Warn("skipping document", "path", file.Path, "error", err)
			continue
		}
		docs = append(docs, doc)
		result.FilesIndexed++
	}

	opts := []memstore.BuildOption{memstore.WithBatchSize(u.batchSize)}
	if progress != nil {
		opts = append(opts, memstore.WithProgress(progress))
	}

	idx, err := memstore.Build(ctx, u.embedder, u.chunks(docs), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index: %w", err)
	}
	result.ChunksCreated = idx.Len()

	if idx.Len() == 0 {
		logger.Warn("index is empty, answers will not be grounded", "root", root)
	}
	return idx, result, nil
}

// chunks chains the chunk sequences of docs in walk order.
func (u *IndexUseCase) chunks(docs []domain.Document) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		for _, doc := range docs {
			for chunk := range u.chunker.Chunks(doc) {
				if !yield(chunk) {
					return
				}
			}
		}
	}
}
