package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/open-rails/paykit/entitlement"
)

// StatusCache is an in-memory entitlement.CacheStore. Freshness policy
// (TTL, grace) belongs to entitlement.Cache; this store only retains
// entries long enough for the grace window and drops older ones in a
// background janitor.
type StatusCache struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]entitlement.CacheEntry
	closed    chan struct{}
}

// NewStatusCache creates the cache. retention bounds how long stale entries
// stay reachable; if <= 0 it defaults to 30 minutes, comfortably past the
// default TTL×grace window.
func NewStatusCache(retention time.Duration) *StatusCache {
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	c := &StatusCache{
		retention: retention,
		entries:   make(map[string]entitlement.CacheEntry),
		closed:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *StatusCache) Get(ctx context.Context, subject string) (entitlement.CacheEntry, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[subject]
	return entry, ok, nil
}

func (c *StatusCache) Put(ctx context.Context, subject string, entry entitlement.CacheEntry) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subject] = entry
	return nil
}

func (c *StatusCache) Delete(ctx context.Context, subject string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subject)
	return nil
}

func (c *StatusCache) Clear(ctx context.Context) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entitlement.CacheEntry)
	return nil
}

func (c *StatusCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.closed:
			return
		}
	}
}

func (c *StatusCache) sweep() {
	cutoff := time.Now().Add(-c.retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	for subject, entry := range c.entries {
		if entry.ComputedAt.Before(cutoff) {
			delete(c.entries, subject)
		}
	}
}

// Close stops the janitor goroutine.
func (c *StatusCache) Close() error {
	close(c.closed)
	return nil
}
