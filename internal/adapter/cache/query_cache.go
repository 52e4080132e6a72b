package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// Key identifies one retrieval call.
type Key struct {
	Query    string
	Category domain.Category
	TopN     int
}

func (k Key) normalized() Key {
	k.Query = strings.Join(strings.Fields(strings.ToLower(k.Query)), " ")
	return k
}

// QueryCache is an LRU cache of retrieval results with a TTL. Invalidate
// bumps a generation counter so results computed against an older knowledge
// base are never returned.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[Key]*list.Element
	order    *list.List // front is most recently used
	maxSize  int
	ttl      time.Duration
	indexGen uint64
	now      func() time.Time
}

type cacheEntry struct {
	key       Key
	results   []domain.RetrievedCandidate
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[Key]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached results for key.
func (c *QueryCache) Get(key Key) ([]domain.RetrievedCandidate, bool) {
	key = key.normalized()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.timestamp) > c.ttl || entry.indexGen != c.indexGen {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(el)
	return append([]domain.RetrievedCandidate(nil), entry.results...), true
}

// Put stores results for key unless the cache was invalidated after gen was
// read, which would mean the results may describe a stale knowledge base.
func (c *QueryCache) Put(key Key, gen uint64, results []domain.RetrievedCandidate) {
	key = key.normalized()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.indexGen {
		return
	}

	entry := &cacheEntry{
		key:       key,
		results:   append([]domain.RetrievedCandidate(nil), results...),
		timestamp: c.now(),
		indexGen:  gen,
	}

	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(entry)
}

// Generation returns the current generation, to be passed back to Put.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexGen
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*list.Element)
	c.order.Init()
	c.indexGen++
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}
