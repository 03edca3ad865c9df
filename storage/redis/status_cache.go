package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/paykit/entitlement"
)

// StatusCache is a redis-backed entitlement.CacheStore, for deployments
// where several instances should share one resolved view per subject.
// Keys carry a retention expiry sized past the grace window; freshness
// itself is judged by entitlement.Cache from ComputedAt.
type StatusCache struct {
	rdb       *redis.Client
	keyNS     string
	retention time.Duration
}

// NewStatusCache creates the cache over rdb. Defaults: key prefix
// "paykit:status:", retention 30 minutes.
func NewStatusCache(rdb *redis.Client, keyPrefix string, retention time.Duration) *StatusCache {
	if keyPrefix == "" {
		keyPrefix = "paykit:status:"
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	return &StatusCache{rdb: rdb, keyNS: keyPrefix, retention: retention}
}

func (c *StatusCache) key(subject string) string { return c.keyNS + subject }

func (c *StatusCache) Get(ctx context.Context, subject string) (entitlement.CacheEntry, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(subject)).Bytes()
	if err == redis.Nil {
		return entitlement.CacheEntry{}, false, nil
	}
	if err != nil {
		return entitlement.CacheEntry{}, false, err
	}
	var entry entitlement.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return entitlement.CacheEntry{}, false, err
	}
	return entry, true, nil
}

func (c *StatusCache) Put(ctx context.Context, subject string, entry entitlement.CacheEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(subject), b, c.retention).Err()
}

func (c *StatusCache) Delete(ctx context.Context, subject string) error {
	return c.rdb.Del(ctx, c.key(subject)).Err()
}

// Clear drops every cached status under the prefix. SCAN keeps this safe on
// shared instances, unlike FLUSHDB.
func (c *StatusCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.keyNS+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
