package knowledge

import (
	"context"
	"time"
)

// VectorDimension is the embedding dimension the doc_chunks schema uses.
// Embedders must be configured to produce vectors of this size.
const VectorDimension = 768

// Chunk is the unit of retrieval: a bounded window of source text with
// its position within the source document.
type Chunk struct {
	// ID identifies the chunk; derived from the source ID and window number.
	ID string
	// Source identifies the document the chunk came from.
	Source string
	// Ordinal is the window number within the source document, starting at 0.
	Ordinal int
	// Seq is the index-assigned insertion sequence, used for
	// deterministic tie-breaking. Zero until inserted.
	Seq int64
	// Content is the raw window text.
	Content string
	// Metadata carries free-form source attributes.
	Metadata map[string]string
	// CreatedAt is when the chunk was indexed.
	CreatedAt time.Time
}

// Index is the vector index the retrieval subsystem runs on.
// Implementations must assign monotonically increasing sequence numbers
// on insert and break distance ties by that sequence, so equal-distance
// results come back in insertion order.
type Index interface {
	// Insert adds a chunk with its embedding. Append-only.
	Insert(ctx context.Context, chunk Chunk, embedding []float32) error
	// Query returns the k nearest chunks to the embedding.
	Query(ctx context.Context, embedding []float32, k int) ([]Chunk, error)
	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)
	// Clear removes all chunks.
	Clear(ctx context.Context) error
}
