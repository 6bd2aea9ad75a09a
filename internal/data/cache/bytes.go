package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Bytes is the shared raw-response cache used by the provider clients.
// The default backend is an in-process map; when a Redis address is
// configured the cache is shared across processes instead.
type Bytes interface {
	GetBytes(key string) ([]byte, bool)
	SetBytes(key string, val []byte, ttl time.Duration)
}

// Keys are per-token request paths, so the in-process map needs the same
// cap discipline as TTLCache or a long scan grows it without bound.
const maxBytesEntries = 2048

type memoryBytes struct {
	mu sync.Mutex
	m  map[string]bytesEntry
}

type bytesEntry struct {
	b     []byte
	exp   time.Time
	added time.Time
}

// NewBytes creates an in-process byte cache.
func NewBytes() Bytes {
	return &memoryBytes{m: make(map[string]bytesEntry)}
}

func (c *memoryBytes) GetBytes(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memoryBytes) SetBytes(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if _, exists := c.m[key]; !exists && len(c.m) >= maxBytesEntries {
		c.evictLocked(now)
	}
	e := bytesEntry{b: append([]byte(nil), val...), added: now}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	c.m[key] = e
}

// evictLocked reclaims expired entries first, then the oldest fifth if the
// map is still at the cap. Caller must hold the lock.
func (c *memoryBytes) evictLocked(now time.Time) {
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
	if len(c.m) < maxBytesEntries {
		return
	}

	type aged struct {
		key   string
		added time.Time
	}
	all := make([]aged, 0, len(c.m))
	for k, e := range c.m {
		all = append(all, aged{k, e.added})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].added.Before(all[j].added) })
	for i := 0; i < len(all)/5+1; i++ {
		delete(c.m, all[i].key)
	}
}

type redisBytes struct{ r *redis.Client }

// NewBytesAuto returns a Redis-backed cache when addr is non-empty, else
// the in-process implementation.
func NewBytesAuto(addr string) Bytes {
	if addr != "" {
		return &redisBytes{r: redis.NewClient(&redis.Options{Addr: addr})}
	}
	return NewBytes()
}

func (c *redisBytes) GetBytes(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *redisBytes) SetBytes(key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = c.r.Set(ctx, key, val, ttl).Err()
}
