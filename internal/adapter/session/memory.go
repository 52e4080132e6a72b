// Package session keeps recent conversation history in memory.
package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

const shardCount = 16

// MemoryStore is a sharded in-memory session store. Each session carries its
// own lock, so updates to one conversation never wait on another.
type MemoryStore struct {
	shards   [shardCount]shard
	maxTurns int
	idleTTL  time.Duration
	now      func() time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	session domain.Session
	removed bool // set once the entry is no longer in its shard
}

func NewMemoryStore(maxTurns int, idleTTL time.Duration) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	s := &MemoryStore{
		maxTurns: maxTurns,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*entry)
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

// lookup returns the live entry for id, replacing an expired one with a
// fresh session.
func (s *MemoryStore) lookup(id string) *entry {
	sh := s.shardFor(id)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.sessions[id]
	if ok {
		e.mu.Lock()
		expired := now.Sub(e.session.LastActive) > s.idleTTL
		e.mu.Unlock()
		if !expired {
			return e
		}
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}

	e = &entry{session: domain.Session{ID: id, LastActive: now}}
	sh.sessions[id] = e
	return e
}

// acquire returns the live entry for id with its lock held. An entry swept
// or replaced between lookup and locking is retried, so writes never land on
// a session that has left the store.
func (s *MemoryStore) acquire(id string) *entry {
	for {
		e := s.lookup(id)
		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

// Get returns a copy of the session.
func (s *MemoryStore) Get(ctx context.Context, id string) domain.Session {
	e := s.acquire(id)
	defer e.mu.Unlock()

	out := e.session
	out.Turns = append([]domain.SessionTurn(nil), e.session.Turns...)
	return out
}

func (s *MemoryStore) Append(ctx context.Context, id string, turns ...domain.SessionTurn) {
	if len(turns) == 0 {
		return
	}
	e := s.acquire(id)
	defer e.mu.Unlock()

	e.session.Turns = append(e.session.Turns, turns...)
	if over := len(e.session.Turns) - s.maxTurns; over > 0 {
		e.session.Turns = append([]domain.SessionTurn(nil), e.session.Turns[over:]...)
	}
	e.session.LastActive = s.now()
}

func (s *MemoryStore) SetEscalated(ctx context.Context, id string, escalated bool) {
	e := s.acquire(id)
	defer e.mu.Unlock()

	e.session.Escalated = escalated
	e.session.LastActive = s.now()
}

// Len returns the number of sessions that have not expired.
func (s *MemoryStore) Len() int {
	now := s.now()
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, e := range sh.sessions {
			e.mu.Lock()
			if now.Sub(e.session.LastActive) <= s.idleTTL {
				n++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return n
}

// Sweep removes sessions idle longer than the TTL and returns how many were
// removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, e := range sh.sessions {
			e.mu.Lock()
			if now.Sub(e.session.LastActive) > s.idleTTL {
				delete(sh.sessions, id)
				e.removed = true
				removed++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}
