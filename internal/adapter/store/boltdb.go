package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
)

// BoltVectorStore persists knowledge entries and their embeddings in BoltDB
// and serves searches from an in-memory copy.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	model     string

	mu      sync.RWMutex
	entries map[string]domain.KnowledgeEntry
}

type storedEntry struct {
	ID       string          `json:"id"`
	Category domain.Category `json:"category"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Product  string          `json:"product,omitempty"`
	Vector   []float32       `json:"v"`
}

// OpenBoltVectorStore opens (or creates) the database at path for vectors of
// the given dimension produced by model.
func OpenBoltVectorStore(path string, dimension int, model string) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		model:     model,
		entries:   make(map[string]domain.KnowledgeEntry),
	}

	if err := s.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	return s, nil
}

// loadEntries loads all entries from BoltDB into memory.
func (s *BoltVectorStore) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.entries[string(k)] = domain.KnowledgeEntry{
				ID:        stored.ID,
				Category:  stored.Category,
				Question:  stored.Question,
				Answer:    stored.Answer,
				Product:   stored.Product,
				Embedding: stored.Vector,
			}
			return nil
		})
	})
}

// Upsert adds or replaces entries. The whole batch is written in one
// transaction; a dimension mismatch rejects it without partial writes.
func (s *BoltVectorStore) Upsert(ctx context.Context, entries []domain.KnowledgeEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry has empty id")
		}
		if len(e.Embedding) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", e.ID, s.dimension, len(e.Embedding))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, e := range entries {
			data, err := json.Marshal(storedEntry{
				ID:       e.ID,
				Category: e.Category,
				Question: e.Question,
				Answer:   e.Answer,
				Product:  e.Product,
				Vector:   e.Embedding,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return s.writeSchemaInfo(tx, s.model, s.dimension)
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// Search finds the k nearest entries to the query using cosine similarity.
func (s *BoltVectorStore) Search(ctx context.Context, query []float32, k int, category domain.Category) ([]port.VectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]domain.KnowledgeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, e)
	}
	return TopK(query, candidates, k, category), nil
}

func (s *BoltVectorStore) All(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SortedEntries(s.entries), nil
}

func (s *BoltVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *BoltVectorStore) CategoryCounts(ctx context.Context) (map[domain.Category]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CountByCategory(s.entries), nil
}

// Clear removes every entry and forgets the recorded embedding model, so the
// next Upsert may use a different one.
func (s *BoltVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntries, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.entries = make(map[string]domain.KnowledgeEntry)
	return nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}
