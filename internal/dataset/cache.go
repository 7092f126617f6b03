package dataset

import (
	"sync"
	"time"
)

// Cache holds the most recent dataset snapshot with a time-to-live. It is
// the only caching layer in the system; everything derived from the dataset
// is recomputed per request.
type Cache struct {
	mu  sync.RWMutex
	ds  *Dataset
	ttl time.Duration
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Get returns the cached dataset and whether it is still fresh.
func (c *Cache) Get() (*Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ds == nil {
		return nil, false
	}
	if time.Since(c.ds.LoadedAt) > c.ttl {
		return c.ds, false
	}
	return c.ds, true
}

// Set replaces the cached dataset.
func (c *Cache) Set(ds *Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ds = ds
}
