// Package entitlement decides whether a subject has paid access by
// reconciling two sources of truth: a durable, operator-editable record
// store (authoritative for feature gating) and an external billing provider
// (authoritative for real purchases, synced into the store). It caches the
// resolution, revalidates it on a schedule and on app-lifecycle transitions,
// and reacts to realtime mutations of the record store.
package entitlement

import (
	"time"

	"github.com/open-rails/paykit/core"
)

// Status is the durable subscription state of a record. The set is closed;
// anything else coming off the wire normalizes to StatusNone at the decode
// boundary.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending" // free-trial window
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusNone      Status = "none" // derived only, never stored
)

// Valid reports whether s is a storable status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ParseStatus maps a raw store value onto the closed status set.
func ParseStatus(raw string) Status {
	s := Status(raw)
	if !s.Valid() {
		return StatusNone
	}
	return s
}

// Record is a subject's durable entitlement record. One per subject;
// duplicates are a store-side anomaly the resolver tolerates by taking the
// first match.
type Record struct {
	ID              string
	Subject         string // normalized email, natural key
	Status          Status
	PlanID          string
	PaymentPlatform string // distinguishes manual grants from billing-synced ones
	Notes           string
	CreatedAt       time.Time // trial anchor, immutable once set
	UpdatedAt       time.Time
}

// RecordFields carries the mutable fields of an upsert. Nil pointers leave
// the stored value untouched on update paths.
type RecordFields struct {
	Status          Status
	PlanID          *string
	PaymentPlatform *string
	Notes           *string
}

// ResolvedStatus is the only shape exposed to feature-gating callers. It is
// derived, never persisted.
type ResolvedStatus struct {
	IsPremium          bool
	IsFreeTrial        bool
	SubscriptionStatus Status
	// TimeRemainingDays is set only during an active free trial.
	TimeRemainingDays int
	Limits             core.TierLimits
	// BillingActive is an informational secondary signal: the billing
	// provider reports an active subscription that the record store does
	// not reflect. Callers may offer a sync; it never grants access here.
	BillingActive bool
}

// CacheEntry pairs a resolution with the moment it was computed.
type CacheEntry struct {
	Value      ResolvedStatus
	ComputedAt time.Time
}

// BillingSnapshot is the billing provider's current view for a subject.
type BillingSnapshot struct {
	HasActiveSubscription bool
	OriginalUserID        string
	ActiveEntitlements    []string
}

// ValidationResult is broadcast after every periodic-validator pass,
// successful or not.
type ValidationResult struct {
	IsValid               bool
	HasActiveSubscription bool
	SyncedWithStore       bool
	Err                   error
}

// ChangeKind classifies an incoming record mutation for operational
// visibility. The manual/admin distinction is a recency heuristic, not a
// guarantee.
type ChangeKind string

const (
	ChangeManualUpgrade   ChangeKind = "manual_upgrade"
	ChangeManualDowngrade ChangeKind = "manual_downgrade"
	ChangeAdminAction     ChangeKind = "admin_action"
	ChangeStatusChange    ChangeKind = "status_change"
)

// ChangeEvent is delivered to registered change listeners.
type ChangeEvent struct {
	Kind    ChangeKind
	Subject string
	Record  Record
}

// FeedEvent is a raw mutation pushed by the realtime feed.
type FeedEvent struct {
	// Events names the mutations, e.g. ".create" / ".update" suffixed
	// channel paths, as delivered by the store's realtime transport.
	Events  []string
	Payload Record
}
