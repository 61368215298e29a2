// Package memo provides the process-wide cache for pure, expensive
// constructions: the compiled grammar, per-dialect dump tables, function
// registries.
//
// An entry is built at most once: concurrent requesters of the same key wait
// for the first builder and share its result. Entries are never evicted. A
// failed build is reported to every waiter and is not stored.
package memo

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes construction results by key.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	group   singleflight.Group
	builds  map[string]int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]any),
		builds:  make(map[string]int),
	}
}

var process = New()

// Process returns the process-wide cache.
func Process() *Cache {
	return process
}

// Get returns the value stored under key, building it with build on first use.
func (c *Cache) Get(key string, build func() (any, error)) (any, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A builder that finished between our read and Do already stored it.
		c.mu.RLock()
		v, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := build()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.builds[key]++
		if err != nil {
			return nil, err
		}
		c.entries[key] = v
		return v, nil
	})
	return v, err
}

// Builds reports how many times the builder for key has been invoked.
func (c *Cache) Builds(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builds[key]
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Of is the typed form of Cache.Get.
func Of[T any](c *Cache, key string, build func() (T, error)) (T, error) {
	v, err := c.Get(key, func() (any, error) {
		return build()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
