package port

import (
	"context"

	"qalog/internal/domain"
)

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// DocumentLoader reads one walked file into a document.
type DocumentLoader interface {
	Load(ctx context.Context, file FileInfo) (domain.Document, error)
}
