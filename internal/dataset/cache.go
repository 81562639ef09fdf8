package dataset

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes loaded bundles by source. It holds at most capacity entries and
// evicts the least recently used one; a capacity below 1 disables caching.
type Cache struct {
	entries *lru.Cache[string, *Bundle]
}

func NewCache(capacity int) *Cache {
	if capacity < 1 {
		return &Cache{}
	}
	entries, err := lru.New[string, *Bundle](capacity)
	if err != nil {
		// only reachable with a non-positive size
		return &Cache{}
	}
	return &Cache{entries: entries}
}

func (c *Cache) Get(key string) (*Bundle, bool) {
	if c.entries == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

func (c *Cache) Put(key string, b *Bundle) {
	if c.entries == nil {
		return
	}
	c.entries.Add(key, b)
}

func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every entry, ending the cache's scope.
func (c *Cache) Purge() {
	if c.entries == nil {
		return
	}
	c.entries.Purge()
}
