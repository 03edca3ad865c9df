// Package memorylimiter is a single-node sliding-window rate limiter for
// the entitlement HTTP surface. Use the redis variant when more than one
// instance serves traffic.
package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit caps calls per window for one bucket.
type Limit struct {
	Calls  int
	Window time.Duration
}

// Default per-bucket limits for this module's endpoints. "default" backs
// any bucket without an explicit entry.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"status_refresh": {Calls: 6, Window: time.Minute},
		"admin_override": {Calls: 30, Window: time.Minute},
		"admin_bulk":     {Calls: 2, Window: time.Minute},
		"default":        {Calls: 60, Window: time.Minute},
	}
}

type window struct {
	hits []time.Time
}

// Limiter tracks per-key sliding windows in memory.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
}

// New constructs a limiter; nil limits falls back to DefaultLimits.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{limits: limits, windows: make(map[string]*window)}
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

// Allow records one call for key in bucket and reports whether it fits the
// bucket's window. Denied calls are not recorded, so a blocked caller does
// not extend its own penalty.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	_ = ctx
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.limitFor(bucket)
	now := time.Now()
	cutoff := now.Add(-lim.Window)
	id := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[id]
	if !ok {
		w = &window{}
		l.windows[id] = w
	}

	// Drop hits that fell out of the window.
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept

	if len(w.hits) >= lim.Calls {
		return false, nil
	}
	w.hits = append(w.hits, now)
	return true, nil
}
