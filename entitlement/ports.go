package entitlement

import "context"

// RecordStore is the durable entitlement-record backend. Implementations
// (storage/postgres, storage/memory) classify their failures as Faults so
// the resolver can branch on kind.
type RecordStore interface {
	// Find returns records whose subject equals the normalized subject,
	// newest first, at most limit. More than one match is a data anomaly
	// the caller logs and tolerates.
	Find(ctx context.Context, subject string, limit int) ([]Record, error)
	// Upsert finds-by-subject (limit 1) and updates in place, or creates
	// when absent. Last write wins; CreatedAt is only set on create.
	Upsert(ctx context.Context, subject string, fields RecordFields) (Record, error)
}

// BillingClient is the external billing provider's read side.
type BillingClient interface {
	// Configured reports whether the client has credentials; when false,
	// Snapshot fails with KindNotConfigured.
	Configured() bool
	// Snapshot returns the provider's current entitlement view.
	Snapshot(ctx context.Context, subject string) (BillingSnapshot, error)
	// Platform names the provider, stored as PaymentPlatform on synced
	// records (e.g. "revenuecat").
	Platform() string
}

// CacheStore holds cached resolutions keyed by normalized subject. The
// TTL/grace policy lives in Cache; stores only get/put/delete entries.
type CacheStore interface {
	Get(ctx context.Context, subject string) (CacheEntry, bool, error)
	Put(ctx context.Context, subject string, entry CacheEntry) error
	Delete(ctx context.Context, subject string) error
	Clear(ctx context.Context) error
}

// RealtimeFeed delivers record-store mutations as they happen. Subscribe
// returns an unsubscribe func; events arrive on the feed's own goroutine.
type RealtimeFeed interface {
	Subscribe(ctx context.Context, scope string, onEvent func(FeedEvent)) (func(), error)
}

// AppLifecycle emits foreground/background transitions. OnForeground
// returns an unsubscribe func.
type AppLifecycle interface {
	OnForeground(fn func()) (unsubscribe func())
}
