package port

import (
	"context"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, each of length Dimension().
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores knowledge entries with their embeddings and answers
// nearest-neighbour queries.
type VectorStore interface {
	// Upsert adds or replaces entries. Every entry must carry an embedding.
	Upsert(ctx context.Context, entries []domain.KnowledgeEntry) error

	// Search returns at most k entries ordered by decreasing similarity, ties
	// broken by lower ID. A non-empty category restricts the results to that
	// category; no match yields an empty slice.
	Search(ctx context.Context, query []float32, k int, category domain.Category) ([]VectorResult, error)

	// All returns every stored entry ordered by ID.
	All(ctx context.Context) ([]domain.KnowledgeEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// CategoryCounts returns the number of stored entries per category.
	CategoryCounts(ctx context.Context) (map[domain.Category]int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// VectorResult is one search hit.
type VectorResult struct {
	Entry domain.KnowledgeEntry
	Score float64 // Cosine similarity in [-1, 1], higher is better
}
