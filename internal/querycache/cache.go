// Package querycache is the bounded, TTL-expiring cache of search
// results keyed by query fingerprint. It subscribes to internal/events
// for repository-scoped invalidation instead of being owned by any one
// searcher.
package querycache

import (
	"crypto/sha256"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coderune/rune/internal/events"
	"github.com/coderune/rune/pkg/types"
)

// entry pairs a cached result set with when it expires.
type entry struct {
	results    []types.Result
	repository map[string]bool // repositories this query touched, for invalidation
	sizeBytes  int64
	expiresAt  time.Time
}

// entrySize approximates an entry's memory footprint from the string
// payloads each Result carries.
func entrySize(results []types.Result) int64 {
	var n int64
	for _, r := range results {
		n += int64(len(r.Path) + len(r.RelPath) + len(r.Repository) + len(r.Snippet) + len(r.SymbolName) + 64)
		for _, l := range r.ContextBefore {
			n += int64(len(l))
		}
		for _, l := range r.ContextAfter {
			n += int64(len(l))
		}
	}
	return n
}

// Cache is an LRU cache of search results keyed by the SHA-256 of a
// query's Fingerprint, with a per-entry TTL and repository-scoped
// invalidation driven by internal/events.
type Cache struct {
	ttl time.Duration

	mu        sync.RWMutex
	lru       *lru.Cache[[32]byte, *entry]
	sizeBytes int64
	subCh     chan events.RepositoryChanged
	done      chan struct{}
	closeOnce sync.Once
}

// New builds a Cache holding at most maxEntries results, each valid for
// ttl, and subscribes to bus for repository-changed invalidation.
func New(maxEntries int, ttl time.Duration, bus *events.Bus) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c := &Cache{
		ttl:   ttl,
		subCh: make(chan events.RepositoryChanged, 64),
		done:  make(chan struct{}),
	}
	backing, err := lru.NewWithEvict[[32]byte, *entry](maxEntries, func(_ [32]byte, e *entry) {
		c.sizeBytes -= e.sizeBytes
	})
	if err != nil {
		return nil, err
	}
	c.lru = backing
	if bus != nil {
		bus.Subscribe(c.subCh)
		go c.invalidationLoop()
	}
	go c.janitor()
	return c, nil
}

// Close stops the background janitor. Entries stay readable until the
// owning engine drops the cache.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// janitor sweeps expired entries periodically so a quiet cache doesn't
// pin stale result sets in memory until their keys happen to be read
// or evicted.
func (c *Cache) janitor() {
	interval := c.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Cache) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && now.After(e.expiresAt) {
			c.lru.Remove(key)
		}
	}
}

// Get returns the cached results for q, if present and unexpired.
func (c *Cache) Get(q types.Query) ([]types.Result, bool) {
	key := fingerprintKey(q)

	c.mu.RLock()
	e, ok := c.lru.Get(key)
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		c.lru.Remove(key)
		c.mu.Unlock()
		return nil, false
	}

	out := make([]types.Result, len(e.results))
	copy(out, e.results)
	return out, true
}

// Put stores results for q, associating it with the repositories the
// results came from so a later RepositoryChanged for any of them evicts
// this entry.
func (c *Cache) Put(q types.Query, results []types.Result) {
	repos := make(map[string]bool)
	for _, r := range results {
		repos[r.Repository] = true
	}
	for _, r := range q.Repositories {
		repos[r] = true
	}

	stored := make([]types.Result, len(results))
	copy(stored, results)

	e := &entry{
		results:    stored,
		repository: repos,
		sizeBytes:  entrySize(stored),
		expiresAt:  time.Now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fingerprintKey(q), e)
	c.sizeBytes += e.sizeBytes
}

// SizeBytes approximates the cache's current memory footprint.
func (c *Cache) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sizeBytes
}

// Len returns the number of entries currently cached, for
// stats.cache_size_bytes's caller to weight against.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// invalidationLoop purges every entry touching a changed repository.
func (c *Cache) invalidationLoop() {
	for ev := range c.subCh {
		c.invalidateRepository(ev.Repository)
	}
}

func (c *Cache) invalidateRepository(repository string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if e.repository[repository] {
			c.lru.Remove(key)
		}
	}
}

// fingerprintKey hashes a Query's Fingerprint into the cache key.
func fingerprintKey(q types.Query) [32]byte {
	b, _ := json.Marshal(q.Fingerprint())
	return sha256.Sum256(b)
}
