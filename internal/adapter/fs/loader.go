package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"qalog/internal/domain"
	"qalog/internal/port"
)

var _ port.DocumentLoader = (*TextLoader)(nil)

// TextLoader reads plain text files. Files that are not valid UTF-8 are
// rejected so the chunker never sees broken characters.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Load(ctx context.Context, file port.FileInfo) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return domain.Document{}, err
	}
	if !utf8.Valid(data) {
		return domain.Document{}, fmt.Errorf("%s is not valid UTF-8 text", file.Path)
	}

	return domain.Document{
		ID:      generateDocID(file.Path),
		Path:    file.Path,
		Text:    string(data),
		ModTime: time.Unix(file.ModTime, 0),
	}, nil
}

func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
