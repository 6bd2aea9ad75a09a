package cache

import (
	"sort"
	"sync"
	"time"
)

// TTLCache is a bounded in-process cache with per-entry expiry. An expired
// entry is never returned, even before the sweeper has reclaimed it. When
// the size cap is exceeded the oldest ~20% of entries are evicted.
type TTLCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
	stats      Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	value    any
	expires  time.Time
	inserted time.Time
}

// Stats tracks cache effectiveness for the health report.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// New creates a TTL cache capped at maxEntries, with a background sweeper
// reclaiming expired entries at the given interval. Call Stop to release
// the sweeper.
func New(maxEntries int, sweepInterval time.Duration) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

// Get returns the cached value if present and not expired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expires) {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores a value with the given TTL, evicting the oldest fifth of the
// cache if the cap is exceeded.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{value: value, expires: now.Add(ttl), inserted: now}
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *TTLCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// Stop shuts down the sweeper goroutine.
func (c *TTLCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// evictOldestLocked drops the oldest 20% of entries by insertion time.
// Caller must hold the write lock.
func (c *TTLCache) evictOldestLocked() {
	n := len(c.entries) / 5
	if n < 1 {
		n = 1
	}

	type aged struct {
		key      string
		inserted time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.inserted})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].inserted.Before(all[j].inserted) })

	for i := 0; i < n && i < len(all); i++ {
		delete(c.entries, all[i].key)
		c.stats.Evictions++
	}
}

func (c *TTLCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTLCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}
