package cache

import (
	"sync"
	"time"

	"lumen/internal/pipeline"
	"lumen/internal/timeutil"
)

type entry struct {
	detections []pipeline.Detection
	insertedAt time.Time
}

// ResultCache maps a frame fingerprint to a previously obtained detection
// result. Entries expire after a TTL, checked lazily on read, and when the
// cache grows past its capacity the oldest-inserted entry is evicted (FIFO,
// not LRU). The cache exclusively owns its entries; callers receive copies.
type ResultCache struct {
	maxEntries int
	ttl        time.Duration
	clock      timeutil.Clock

	mu      sync.Mutex
	entries map[uint64]*entry
	order   []uint64 // insertion order, oldest first
}

// NewResultCache creates a cache bounded by maxEntries and ttl
func NewResultCache(maxEntries int, ttl time.Duration, clock timeutil.Clock) *ResultCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ResultCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[uint64]*entry),
	}
}

// Get returns the cached detections for key, or false on a miss. An entry
// whose age has reached the TTL is evicted here and treated as a miss.
func (c *ResultCache) Get(key uint64) ([]pipeline.Detection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.clock.Since(e.insertedAt) >= c.ttl {
		c.remove(key)
		return nil, false
	}

	out := make([]pipeline.Detection, len(e.detections))
	copy(out, e.detections)
	return out, true
}

// Put stores detections under key. Empty results are never cached so "nothing
// visible" is always re-verified instead of sticking for a TTL window. When
// the key is new and the cache is full, the oldest-inserted entry is evicted
// first.
func (c *ResultCache) Put(key uint64, detections []pipeline.Detection) {
	if len(detections) == 0 {
		return
	}

	stored := make([]pipeline.Detection, len(detections))
	copy(stored, detections)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.detections = stored
		e.insertedAt = c.clock.Now()
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.remove(oldest)
	}

	c.entries[key] = &entry{
		detections: stored,
		insertedAt: c.clock.Now(),
	}
	c.order = append(c.order, key)
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been read.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry
func (c *ResultCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[uint64]*entry)
	c.order = nil
	c.mu.Unlock()
}

// remove deletes key from both the map and the order queue.
// Caller holds c.mu.
func (c *ResultCache) remove(key uint64) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
