// Package resultcache keeps recently answered queries in an in-process
// LRU so repeated questions skip retrieval and synthesis entirely.
package resultcache

import (
	"crypto/sha256"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
)

// Key identifies one cacheable query shape.
type Key = [32]byte

type entry struct {
	res      result.Result
	storedAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// HitRate returns hits / (hits + misses), or 0 when the cache is cold.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a TTL-bounded LRU of answered queries. Expired entries are
// dropped lazily on access; the LRU cap bounds memory.
type Cache struct {
	lru *lru.Cache[Key, entry]
	ttl time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache holding up to maxEntries results for ttl each.
func New(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be positive")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}

	inner, err := lru.New[Key, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{lru: inner, ttl: ttl}, nil
}

// KeyFor derives the cache key from every request knob that changes the
// answer. Two requests with the same key are interchangeable.
func KeyFor(req request.Request) Key {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%g\x00%d\x00%s\x00%t",
		req.Query(), req.Scope().String(), req.TopK(),
		req.Threshold(), req.Strictness(), req.Mode(), req.IncludeAnswer())

	var key Key
	copy(key[:], h.Sum(nil))
	return key
}

// Get returns a detached copy of the cached result for the request,
// if present and fresh.
func (c *Cache) Get(req request.Request) (result.Result, bool) {
	key := KeyFor(req)
	e, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return result.Result{}, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.lru.Remove(key)
		c.misses.Add(1)
		return result.Result{}, false
	}

	c.hits.Add(1)
	return e.res.Clone(), true
}

// Put stores a detached copy of the result. Concurrent requests may
// race on the same key; the last put wins, which is fine because both
// computed the result for identical inputs.
func (c *Cache) Put(req request.Request, res result.Result) {
	c.lru.Add(KeyFor(req), entry{res: res.Clone(), storedAt: time.Now()})
}

// InvalidateAll drops every entry. Called after any ingest or delete,
// since stored answers may cite passages that no longer exist.
func (c *Cache) InvalidateAll() {
	c.lru.Purge()
}

// Stats returns current cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.lru.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
