package core

import "time"

// TierLimits caps what a subject may create. -1 means unlimited.
type TierLimits struct {
	MaxCompanies    int
	MaxCashbooks    int
	MaxTransactions int
}

// Unlimited returns limits with every cap removed.
func Unlimited() TierLimits {
	return TierLimits{MaxCompanies: -1, MaxCashbooks: -1, MaxTransactions: -1}
}

// Config tunes the entitlement engine. Zero values fall back to defaults
// via Normalize; hosts typically construct one at composition time and
// share it across the engine's components.
type Config struct {
	// CacheTTL is how long a resolved status stays fresh.
	CacheTTL time.Duration
	// CacheGraceMultiplier extends CacheTTL for serving stale entries when
	// a live resolution fails (fail-open to the last known status).
	CacheGraceMultiplier int
	// ValidationInterval is the periodic validator's schedule.
	ValidationInterval time.Duration
	// MinRefreshGap suppresses foreground-triggered validations that arrive
	// too soon after the previous pass.
	MinRefreshGap time.Duration
	// TrialWindow is how long a pending record confers a free trial,
	// anchored to the record's creation time.
	TrialWindow time.Duration
	// RecentEditWindow is the recency threshold for classifying a record
	// update as a manual edit rather than a background sync.
	RecentEditWindow time.Duration
	// CallTimeout bounds each external call (record store, billing, feed).
	CallTimeout time.Duration
	// FreeLimits applies to subjects with no entitlement.
	FreeLimits TierLimits
}

// Normalize fills unset fields with defaults and returns the result.
func (c Config) Normalize() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheGraceMultiplier <= 0 {
		c.CacheGraceMultiplier = 3
	}
	if c.ValidationInterval <= 0 {
		c.ValidationInterval = 30 * time.Minute
	}
	if c.MinRefreshGap <= 0 {
		c.MinRefreshGap = 5 * time.Minute
	}
	if c.TrialWindow <= 0 {
		c.TrialWindow = 7 * 24 * time.Hour
	}
	if c.RecentEditWindow <= 0 {
		c.RecentEditWindow = 5 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.FreeLimits == (TierLimits{}) {
		c.FreeLimits = TierLimits{MaxCompanies: 1, MaxCashbooks: 3, MaxTransactions: 250}
	}
	return c
}
