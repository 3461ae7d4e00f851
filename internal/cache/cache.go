// Package cache implements the per-agent telemetry cache: a short-TTL
// memoization of volatile probe responses, restricted to the cacheable
// RequestKind discriminants (spec.md §4.5).
package cache

import (
	"sync"
	"time"

	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// Duration is the fixed TTL for every cache entry.
const Duration = 1500 * time.Millisecond

type entry struct {
	resp      wire.ResponseKind
	insertedAt time.Time
}

// Cache holds at most one entry per cacheable RequestKind name. It is not
// safe to share across agents; each connection actor owns its own instance.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// Get returns the cached response for req if present and not yet expired.
// Expired entries are evicted on read.
func (c *Cache) Get(req wire.RequestKind) (wire.ResponseKind, bool) {
	if !wire.CacheableRequest(req) {
		return nil, false
	}
	name := wire.RequestKindName(req)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= Duration {
		delete(c.entries, name)
		return nil, false
	}
	return e.resp, true
}

// Insert stores resp if its discriminant is cacheable, overwriting any
// existing entry for that name.
func (c *Cache) Insert(resp wire.ResponseKind) {
	if !wire.CacheableResponse(resp) {
		return
	}
	name := wire.ResponseKindName(resp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = entry{resp: resp, insertedAt: c.now()}
}
