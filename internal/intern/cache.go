package intern

import (
	"sync"
)

// Cache deduplicates short strings decoded off the wire, such as header names and their
// usual values. It's bounded by the number of entries: once full, it's emptied and starts
// over, so strings seen after the first capacity distinct ones are cached too. Safe for
// concurrent use.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]string
	capacity  int
	maxLength int
}

// New returns a cache holding at most capacity entries, each at most maxLength bytes long.
// A nil *Cache is valid and never caches anything.
func New(capacity, maxLength int) *Cache {
	return &Cache{
		entries:   make(map[string]string, capacity),
		capacity:  capacity,
		maxLength: maxLength,
	}
}

// String returns a string with the same contents as b. The result never aliases b.
func (c *Cache) String(b []byte) string {
	if c == nil || c.capacity <= 0 || len(b) > c.maxLength || len(b) == 0 {
		return string(b)
	}

	c.mu.RLock()
	str, found := c.entries[string(b)]
	c.mu.RUnlock()
	if found {
		return str
	}

	str = string(b)

	c.mu.Lock()
	if len(c.entries) >= c.capacity {
		clear(c.entries)
	}
	c.entries[str] = str
	c.mu.Unlock()

	return str
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
