// package store holds the process-local mutable state of the resolution
// engine: the equivalence cache and the processed-event set.
//
// Both stores use the same degenerate capacity policy: once the entry count
// passes a fixed threshold the whole store is cleared. This is a documented
// simplification, not an LRU; the stores are small, short-lived, and never
// persisted across restarts.
package store

import (
	"sync"
	"time"

	"github.com/desertthunder/chorus/internal/models"
)

// maxEntries is the clear-all threshold shared by [Cache] and [Seen].
const maxEntries = 2000

type cacheEntry struct {
	result    *models.Equivalence
	createdAt time.Time
}

// Cache maps a normalized URL to a previously fetched equivalence with lazy TTL expiry on read.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a Cache with the given freshness window.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached equivalence for url, or nil when absent or stale.
//
// A stale entry is evicted on read rather than by a background sweep.
func (c *Cache) Get(url string) *models.Equivalence {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, url)
		return nil
	}
	return entry.result
}

// Put stores the equivalence for url, overwriting any existing entry.
//
// When the cache is over capacity it is cleared wholesale before the insert.
func (c *Cache) Put(url string, result *models.Equivalence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > maxEntries {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[url] = cacheEntry{result: result, createdAt: c.now()}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Seen tracks inbound event identifiers that already produced a reply.
//
// An event is marked only after a candidate URL was extracted for it, so an
// edited message that later gains a URL stays eligible.
type Seen struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeen creates an empty processed-event set.
func NewSeen() *Seen {
	return &Seen{ids: make(map[string]struct{})}
}

// ShouldProcess reports whether the event identifier has not been handled yet.
func (s *Seen) ShouldProcess(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, done := s.ids[eventID]
	return !done
}

// CheckAndMark claims the event identifier under one lock, reporting whether
// the caller won the claim. Concurrently delivered duplicates see exactly one
// true result.
func (s *Seen) CheckAndMark(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.ids[eventID]; done {
		return false
	}
	if len(s.ids) > maxEntries {
		s.ids = make(map[string]struct{})
	}
	s.ids[eventID] = struct{}{}
	return true
}

// MarkProcessed records the event identifier as handled.
func (s *Seen) MarkProcessed(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) > maxEntries {
		s.ids = make(map[string]struct{})
	}
	s.ids[eventID] = struct{}{}
}

// Len returns the current entry count.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
