// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package cache provides a thread-safe in-memory TTL cache with
// tenant/user/session key isolation.
//
// Every entry carries an absolute expiry computed at insertion time; reads
// never extend it. Expired entries are treated as absent and removed lazily
// on access; Prune performs an eager full-scan removal for housekeeping but
// is never required for correctness.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelpick/reelpick/internal/metrics"
)

// Entry represents a cached item with its absolute expiry.
// Entries are owned exclusively by the Cache and never exposed to callers.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory key/value store with per-entry TTL.
// One instance is expected to service all callers for the process lifetime;
// Reset exists for test isolation.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// New creates a cache whose Set entries expire after defaultTTL.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
	}
}

// Set stores a value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value under key with a custom TTL. The expiry is
// absolute from now and is never re-extended by later reads.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	size := len(c.entries)
	c.mu.Unlock()

	metrics.CacheSize.Set(float64(size))
}

// Get retrieves the value stored under key. An expired-but-not-yet-pruned
// entry is treated as absent and opportunistically deleted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.deleteExpired(key, entry.ExpiresAt)
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return entry.Value, true
}

// Has reports whether a live entry exists under key. Expired entries are
// absent and are opportunistically deleted, exactly as in Get.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// deleteExpired removes an expired entry. The expiry is re-checked under the
// write lock so a key that was concurrently overwritten with a fresh entry
// is left intact: observers see the entry fully present or fully absent,
// never half-expired.
func (c *Cache) deleteExpired(key string, expiresAt time.Time) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && entry.ExpiresAt.Equal(expiresAt) {
		delete(c.entries, key)
		c.evictions.Add(1)
		metrics.CacheEvictions.Inc()
	}
	c.mu.Unlock()
}

// Delete removes the entry under key and reports whether a live entry was
// removed.
func (c *Cache) Delete(key string) bool {
	now := time.Now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	c.evictions.Add(1)
	metrics.CacheEvictions.Inc()
	return now.Before(entry.ExpiresAt)
}

// Clear removes all entries unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	evicted := len(c.entries)
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.evictions.Add(int64(evicted))
	metrics.CacheSize.Set(0)
}

// Reset clears all entries and counters. Intended for test isolation.
func (c *Cache) Reset() {
	c.Clear()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Size returns the number of live (unexpired) entries.
func (c *Cache) Size() int {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, entry := range c.entries {
		if now.Before(entry.ExpiresAt) {
			n++
		}
	}
	return n
}

// Prune eagerly removes all expired entries and returns the removed count.
func (c *Cache) Prune() int {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.CacheEvictions.Add(float64(removed))
	}
	metrics.CacheSize.Set(float64(size))
	return removed
}

// StartJanitor runs Prune every interval until ctx is cancelled.
// Housekeeping only; lazy expiry keeps the cache correct without it.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Prune()
			}
		}
	}()
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}

func (c *Cache) recordHit() {
	c.hits.Add(1)
	metrics.CacheHits.Inc()
}

func (c *Cache) recordMiss() {
	c.misses.Add(1)
	metrics.CacheMisses.Inc()
}

// GetTyped retrieves the value under key as T. A stored value of a
// different type is a miss.
func GetTyped[T any](c *Cache, key string) (T, bool) {
	var zero T

	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
