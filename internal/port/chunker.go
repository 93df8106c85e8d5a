package port

import (
	"iter"

	"qalog/internal/domain"
)

type Chunker interface {
	// Chunks returns a lazy sequence over the document's chunks. Ranging it
	// again restarts from the first chunk.
	Chunks(doc domain.Document) iter.Seq[domain.Chunk]
}
