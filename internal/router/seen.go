package router

import "sync"

// SeenCache remembers processed (tab, URL) keys with a bounded size. When it
// grows past its capacity it keeps only the most recently inserted trimTo
// keys, in strict insertion order.
type SeenCache struct {
	mu       sync.Mutex
	capacity int
	trimTo   int
	order    []string
	set      map[string]struct{}
}

// NewSeenCache returns a cache holding at most capacity keys between trims.
// trimTo is clamped to [0, capacity].
func NewSeenCache(capacity, trimTo int) *SeenCache {
	if capacity <= 0 {
		capacity = 100
	}
	if trimTo < 0 {
		trimTo = 0
	}
	if trimTo > capacity {
		trimTo = capacity
	}
	return &SeenCache{
		capacity: capacity,
		trimTo:   trimTo,
		set:      make(map[string]struct{}),
	}
}

// Has reports whether key was added and not yet evicted.
func (c *SeenCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[key]
	return ok
}

// Add records key. Re-adding a present key does not move it.
func (c *SeenCache) Add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.set[key]; ok {
		return
	}
	c.set[key] = struct{}{}
	c.order = append(c.order, key)

	if len(c.order) <= c.capacity {
		return
	}
	drop := len(c.order) - c.trimTo
	for _, k := range c.order[:drop] {
		delete(c.set, k)
	}
	kept := make([]string, c.trimTo, c.capacity+1)
	copy(kept, c.order[drop:])
	c.order = kept
}

// Len returns the number of keys held.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Keys returns the held keys, oldest first.
func (c *SeenCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
