package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"

	"qalog/internal/domain"
)

// CharChunker splits text into fixed-size windows measured in characters.
// Consecutive windows share overlap characters.
type CharChunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk_overlap must not be negative, got %d", domain.ErrConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)", domain.ErrConfig, overlap, size)
	}
	return &CharChunker{size: size, overlap: overlap}, nil
}

func (c *CharChunker) Size() int    { return c.size }
func (c *CharChunker) Overlap() int { return c.overlap }

// Chunks yields the document's windows lazily. The text is decoded into runes
// on every range so the sequence can be replayed.
func (c *CharChunker) Chunks(doc domain.Document) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		runes := []rune(doc.Text)
		step := c.size - c.overlap

		for seq, start := 0, 0; start < len(runes); seq, start = seq+1, start+step {
			end := start + c.size
			if end > len(runes) {
				end = len(runes)
			}

			chunk := domain.Chunk{
				ID:    generateChunkID(doc.ID, seq),
				DocID: doc.ID,
				Path:  doc.Path,
				Seq:   seq,
				Start: start,
				End:   end,
				Text:  string(runes[start:end]),
			}
			if !yield(chunk) {
				return
			}

			if end == len(runes) {
				return
			}
		}
	}
}

// Chunk collects every chunk of the document.
func (c *CharChunker) Chunk(doc domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for chunk := range c.Chunks(doc) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func generateChunkID(docID string, seq int) string {
	data := fmt.Sprintf("%s:%d", docID, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
