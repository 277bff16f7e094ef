// Package index builds and queries the similarity-searchable knowledge
// index over the dataset synopsis.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dfarias/incident-insights/dataset"
	"github.com/dfarias/incident-insights/embeddings"
	"github.com/dfarias/incident-insights/summary"
)

// DefaultSearchLimit is the retriever's default k.
const DefaultSearchLimit = 4

type Chunk struct {
	ID       string
	Position int
	Text     string
	Score    float64
}

// VectorStore persists embedded fragments and serves nearest-neighbor
// lookups. vectors runs parallel to chunks in Replace.
type VectorStore interface {
	Replace(ctx context.Context, synopsisID string, chunks []Chunk, vectors [][]float32) error
	SimilarChunks(ctx context.Context, synopsisID string, embedding []float32, limit int) ([]Chunk, error)
}

// EmbeddingError reports an unreachable or misbehaving embedding backend.
// It is surfaced to the caller; the build is never retried silently.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding service: %v", e.Err) }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Index is the built, immutable knowledge index for one dataset view.
type Index struct {
	id       string
	synopsis string
	store    VectorStore
	embedder embeddings.Embedder
}

func (ix *Index) ID() string { return ix.id }

func (ix *Index) Synopsis() string { return ix.synopsis }

// Search returns the limit nearest fragments to the query text.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vectors) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("embedder returned no vectors")}
	}

	return ix.store.SimilarChunks(ctx, ix.id, vectors[0], limit)
}

// Builder constructs indexes, memoized by the fingerprint of the view's
// synopsis. Embedding calls are expensive, so a view is embedded at most
// once per process.
type Builder struct {
	store        VectorStore
	embedder     embeddings.Embedder
	logger       *log.Logger
	chunkSize    int
	chunkOverlap int

	mu    sync.Mutex
	built map[string]*Index
}

func NewBuilder(store VectorStore, embedder embeddings.Embedder, logger *log.Logger, chunkSize, chunkOverlap int) *Builder {
	if logger == nil {
		logger = log.Default()
	}

	return &Builder{
		store:        store,
		embedder:     embedder,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		built:        make(map[string]*Index),
	}
}

func (b *Builder) Build(ctx context.Context, view dataset.View) (*Index, error) {
	if b.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if b.store == nil {
		return nil, fmt.Errorf("vector store not configured")
	}

	synopsis, err := summary.BuildSynopsis(view)
	if err != nil {
		return nil, err
	}

	id := Fingerprint(synopsis)

	b.mu.Lock()
	defer b.mu.Unlock()

	if ix, ok := b.built[id]; ok {
		return ix, nil
	}

	fragments := SplitSynopsis(synopsis, b.chunkSize, b.chunkOverlap)
	if len(fragments) == 0 {
		return nil, fmt.Errorf("synopsis produced no fragments")
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}

	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(vectors) != len(fragments) {
		return nil, &EmbeddingError{Err: fmt.Errorf("embedding count mismatch: have %d fragments, %d vectors", len(fragments), len(vectors))}
	}

	chunks := make([]Chunk, len(fragments))
	for i, fragment := range fragments {
		chunks[i] = Chunk{
			ID:       uuid.New().String(),
			Position: i,
			Text:     fragment.Text,
		}
	}

	if err := b.store.Replace(ctx, id, chunks, vectors); err != nil {
		return nil, fmt.Errorf("store fragments: %w", err)
	}

	ix := &Index{
		id:       id,
		synopsis: synopsis,
		store:    b.store,
		embedder: b.embedder,
	}
	b.built[id] = ix

	b.logger.Printf("built knowledge index %s (%d fragments)", id[:12], len(chunks))
	return ix, nil
}

// Fingerprint identifies a dataset view by the content of its synopsis.
func Fingerprint(synopsis string) string {
	sum := sha256.Sum256([]byte(synopsis))
	return hex.EncodeToString(sum[:])
}
