package inventory

import (
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache for listing pages
type Cache struct {
	data    map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	gen     uint64 // bumped by DeleteByPrefix, guarded by mu
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewCache creates a cache and starts its cleanup goroutine. Call Stop when done.
func NewCache(ttl time.Duration) *Cache {
	cache := &Cache{
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Get retrieves a live value from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()

	ok = ok && time.Now().Before(entry.expiration)

	c.statsMu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.statsMu.Unlock()

	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// DeleteByPrefix removes all entries with keys starting with the given prefix
func (c *Cache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
}

// GetOrSet retrieves a value from the cache, or computes and stores it if not
// present. A value computed across a DeleteByPrefix is returned but not stored.
func (c *Cache) GetOrSet(key string, compute func() (interface{}, error)) (interface{}, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.data[key] = &cacheEntry{
			value:      value,
			expiration: time.Now().Add(c.ttl),
		}
	}
	return value, nil
}

// Size returns the number of entries in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	return CacheStats{
		Size:   c.Size(),
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// Stop stops the cleanup goroutine
func (c *Cache) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}

func (c *Cache) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}
