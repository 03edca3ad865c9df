package entitlement

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// Cache is the time-boxed memoization layer in front of the Resolver.
// Entries are keyed by normalized subject. On resolver failure it fails
// open: a stale entry within the grace window is served, and past that the
// caller gets the conservative free-tier default rather than an error —
// transient backend trouble must degrade access, never lock users out.
type Cache struct {
	store    CacheStore
	resolver *Resolver
	cfg      core.Config
	log      logrus.FieldLogger
}

// NewCache constructs a Cache over the given entry store and resolver.
func NewCache(store CacheStore, resolver *Resolver, cfg core.Config, log logrus.FieldLogger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{store: store, resolver: resolver, cfg: cfg.Normalize(), log: log}
}

// GetOrResolve returns the cached status when fresh, otherwise resolves and
// caches. Never returns an error to feature gating: failure degrades to the
// last cached value inside the grace window, then to free-tier limits.
func (c *Cache) GetOrResolve(ctx context.Context, subject string) ResolvedStatus {
	subject = core.NormalizeSubject(subject)
	entry, found := c.lookup(ctx, subject)
	if found && time.Since(entry.ComputedAt) < c.cfg.CacheTTL {
		return entry.Value
	}

	resolved, err := c.resolver.Resolve(ctx, subject)
	if err == nil {
		c.put(ctx, subject, resolved)
		return resolved
	}

	grace := c.cfg.CacheTTL * time.Duration(c.cfg.CacheGraceMultiplier)
	if found && time.Since(entry.ComputedAt) < grace {
		c.log.WithError(err).WithField("subject", subject).
			Warn("resolution failed, serving stale entitlement")
		return entry.Value
	}
	c.log.WithError(err).WithField("subject", subject).
		Warn("resolution failed with no usable cache, defaulting to free tier")
	return ResolvedStatus{SubscriptionStatus: StatusNone, Limits: c.cfg.FreeLimits}
}

// ForceRefresh drops the subject's entry and resolves fresh, bypassing TTL.
func (c *Cache) ForceRefresh(ctx context.Context, subject string) ResolvedStatus {
	subject = core.NormalizeSubject(subject)
	c.Invalidate(ctx, subject)
	resolved, err := c.resolver.Resolve(ctx, subject)
	if err != nil {
		c.log.WithError(err).WithField("subject", subject).
			Warn("forced resolution failed, defaulting to free tier")
		return ResolvedStatus{SubscriptionStatus: StatusNone, Limits: c.cfg.FreeLimits}
	}
	c.put(ctx, subject, resolved)
	return resolved
}

// Invalidate clears one subject's entry.
func (c *Cache) Invalidate(ctx context.Context, subject string) {
	if err := c.store.Delete(ctx, core.NormalizeSubject(subject)); err != nil {
		c.log.WithError(err).Debug("cache delete failed")
	}
}

// InvalidateAll clears every entry. Validator passes and admin overrides
// use this so all subjects re-resolve on next read.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.WithError(err).Debug("cache clear failed")
	}
}

func (c *Cache) lookup(ctx context.Context, subject string) (CacheEntry, bool) {
	entry, ok, err := c.store.Get(ctx, subject)
	if err != nil {
		c.log.WithError(err).Debug("cache read failed")
		return CacheEntry{}, false
	}
	return entry, ok
}

func (c *Cache) put(ctx context.Context, subject string, v ResolvedStatus) {
	err := c.store.Put(ctx, subject, CacheEntry{Value: v, ComputedAt: time.Now()})
	if err != nil {
		c.log.WithError(err).Debug("cache write failed")
	}
}
