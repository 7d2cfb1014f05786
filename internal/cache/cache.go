// Package cache holds scraped clean-source snapshots between cycles.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Cache stores values by key. Implementations expire entries on their own.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
	Len() int
}

// Clock returns the current time.
type Clock func() time.Time

// Default sizing for the in-memory cache.
const (
	DefaultTTL      = 600 * time.Second
	DefaultCapacity = 100
)

// Stats contains cache performance statistics.
type Stats struct {
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// TTL is a bounded in-memory cache whose entries expire a fixed time after
// they were written. Safe for concurrent use.
type TTL[V any] struct {
	mu       sync.Mutex
	entries  map[string]ttlEntry[V]
	capacity int
	ttl      time.Duration
	now      Clock
	hits     atomic.Int64
	misses   atomic.Int64
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTL creates a TTL cache. Non-positive capacity or ttl fall back to the
// defaults; a nil clock uses time.Now.
func NewTTL[V any](capacity int, ttl time.Duration, clock Clock) *TTL[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &TTL[V]{
		entries:  make(map[string]ttlEntry[V]),
		capacity: capacity,
		ttl:      ttl,
		now:      clock,
	}
}

// Get returns the live value for key. Expired entries are removed.
func (c *TTL[V]) Get(_ context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return zero, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		c.misses.Add(1)
		return zero, false, nil
	}
	c.hits.Add(1)
	return entry.value, true, nil
}

// Set stores value under key, evicting when the cache is full.
func (c *TTL[V]) Set(_ context.Context, key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evict(now)
	}
	c.entries[key] = ttlEntry[V]{value: value, expiresAt: now.Add(c.ttl)}
	return nil
}

// Len counts stored entries, including any that expired but were not yet
// touched.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every expired entry and reports how many were removed.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpired(c.now())
}

// Stats returns cache performance statistics.
func (c *TTL[V]) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Entries:  entries,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate,
	}
}

// evict frees one slot: expired entries go first, otherwise the entry
// closest to expiry. Caller holds mu.
func (c *TTL[V]) evict(now time.Time) {
	if c.purgeExpired(now) > 0 {
		return
	}

	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(soonest) || (e.expiresAt.Equal(soonest) && k < victim) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

func (c *TTL[V]) purgeExpired(now time.Time) int {
	var n int
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
