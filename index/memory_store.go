package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type storedChunk struct {
	chunk     Chunk
	embedding []float32
}

// MemoryStore is a flat in-memory vector store: brute-force cosine
// similarity over every stored fragment. Sufficient for the synopsis
// corpus, which holds a handful of fragments.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]storedChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]storedChunk)}
}

func (s *MemoryStore) Replace(_ context.Context, synopsisID string, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	stored := make([]storedChunk, len(chunks))
	for i, chunk := range chunks {
		stored[i] = storedChunk{chunk: chunk, embedding: vectors[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[synopsisID] = stored
	return nil
}

func (s *MemoryStore) SimilarChunks(_ context.Context, synopsisID string, embedding []float32, limit int) ([]Chunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.mu.RLock()
	stored := s.chunks[synopsisID]
	s.mu.RUnlock()

	results := make([]Chunk, 0, len(stored))
	for _, item := range stored {
		chunk := item.chunk
		chunk.Score = cosineSimilarity(embedding, item.embedding)
		results = append(results, chunk)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ VectorStore = (*MemoryStore)(nil)
