// Package redislimiter is the multi-instance counterpart of the in-memory
// limiter, keeping sliding windows in redis ZSETs so every instance sees
// the same counts.
package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit caps calls per window for one bucket.
type Limit struct {
	Calls  int
	Window time.Duration
}

// Limiter scores each call by its millisecond timestamp and counts window
// membership atomically in one pipeline.
type Limiter struct {
	rdb    *redis.Client
	keyNS  string
	limits map[string]Limit
}

// New constructs a limiter over rdb with the given per-bucket limits.
func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, keyNS: "paykit:rl:", limits: limits}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Calls: 60, Window: time.Minute}
}

// Allow records one call for key in bucket and reports whether it fits.
// Over-limit calls are removed again so they do not extend the window.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.limitFor(bucket)
	nowMs := time.Now().UnixMilli()
	cutoff := nowMs - lim.Window.Milliseconds()
	zkey := l.keyNS + bucket + ":" + key

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "0", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(nowMs), Member: nowMs})
	countCmd := pipe.ZCard(ctx, zkey)
	pipe.Expire(ctx, zkey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Calls) {
		l.rdb.ZRem(ctx, zkey, nowMs)
		return false, nil
	}
	return true, nil
}
