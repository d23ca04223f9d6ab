package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force in-process vector index. It exists for
// tests and DB-less development; PgIndex is the production backend.
//
// Distance is cosine distance. Ties break by insertion sequence, matching
// the ORDER BY the pgvector backend uses.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memEntry
	nextSeq int64
}

type memEntry struct {
	chunk Chunk
	vec   []float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Insert adds a chunk, assigning it the next insertion sequence.
func (m *MemoryIndex) Insert(_ context.Context, chunk Chunk, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("chunk %q: empty embedding", chunk.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	chunk.Seq = m.nextSeq
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	m.entries = append(m.entries, memEntry{chunk: chunk, vec: vec})
	return nil
}

// Query returns the k nearest chunks by cosine distance, ties broken by
// insertion order.
func (m *MemoryIndex) Query(_ context.Context, embedding []float32, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		chunk Chunk
		dist  float64
	}
	results := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		dist, err := cosineDistance(embedding, e.vec)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", e.chunk.ID, err)
		}
		results = append(results, scored{chunk: e.chunk, dist: dist})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].chunk.Seq < results[j].chunk.Seq
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]Chunk, k)
	for i := range k {
		out[i] = results[i].chunk
	}
	return out, nil
}

// Count returns the number of indexed chunks.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Clear removes all chunks and resets the insertion sequence.
func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.nextSeq = 0
	return nil
}

// cosineDistance computes 1 - cosine similarity.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
