package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/EmonKarmaker/ai-support-system/internal/adapter/store"
	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

// MemoryVectorStore is a non-persistent vector store.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]domain.KnowledgeEntry
}

// NewMemoryVectorStore creates a store for vectors of the given dimension.
// A dimension of 0 accepts any length.
func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{
		dimension: dimension,
		entries:   make(map[string]domain.KnowledgeEntry),
	}
}

func (s *MemoryVectorStore) Upsert(ctx context.Context, entries []domain.KnowledgeEntry) error {
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry has empty id")
		}
		if s.dimension > 0 && len(e.Embedding) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", e.ID, s.dimension, len(e.Embedding))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, query []float32, k int, category domain.Category) ([]port.VectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.dimension > 0 && len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]domain.KnowledgeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, e)
	}
	return store.TopK(query, candidates, k, category), nil
}

func (s *MemoryVectorStore) All(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.SortedEntries(s.entries), nil
}

func (s *MemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryVectorStore) CategoryCounts(ctx context.Context) (map[domain.Category]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CountByCategory(s.entries), nil
}

func (s *MemoryVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.KnowledgeEntry)
	return nil
}

func (s *MemoryVectorStore) Close() error {
	return nil
}
