// Package testkit provides deterministic fakes for the entitlement
// engine's collaborators, so host applications can test feature gating and
// paywall flows without a record store, billing account, or redis.
package testkit

import (
	"context"
	"sync"

	"github.com/open-rails/paykit/entitlement"
)

// FakeBilling is a scriptable entitlement.BillingClient.
type FakeBilling struct {
	mu sync.Mutex

	IsConfigured bool
	Snap         entitlement.BillingSnapshot
	Err          error

	// SnapshotCalls counts Snapshot invocations.
	SnapshotCalls int
}

func (f *FakeBilling) Configured() bool { return f.IsConfigured }

func (f *FakeBilling) Platform() string { return "fake_billing" }

func (f *FakeBilling) Snapshot(ctx context.Context, subject string) (entitlement.BillingSnapshot, error) {
	_ = ctx
	_ = subject
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SnapshotCalls++
	if f.Err != nil {
		return entitlement.BillingSnapshot{}, f.Err
	}
	return f.Snap, nil
}

// SetActive flips the provider's view of the subscription.
func (f *FakeBilling) SetActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Snap.HasActiveSubscription = active
}

// FakeFeed is an entitlement.RealtimeFeed whose events are emitted by the
// test via Emit.
type FakeFeed struct {
	mu       sync.Mutex
	handlers map[int]func(entitlement.FeedEvent)
	nextID   int

	// SubscribeCalls counts Subscribe invocations (idempotence checks).
	SubscribeCalls int
}

func NewFakeFeed() *FakeFeed {
	return &FakeFeed{handlers: make(map[int]func(entitlement.FeedEvent))}
}

func (f *FakeFeed) Subscribe(ctx context.Context, scope string, onEvent func(entitlement.FeedEvent)) (func(), error) {
	_ = ctx
	_ = scope
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubscribeCalls++
	id := f.nextID
	f.nextID++
	f.handlers[id] = onEvent
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}, nil
}

// Emit delivers an event to every live subscription, synchronously.
func (f *FakeFeed) Emit(event entitlement.FeedEvent) {
	f.mu.Lock()
	fns := make([]func(entitlement.FeedEvent), 0, len(f.handlers))
	for _, fn := range f.handlers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}

// ActiveSubscriptions reports how many subscriptions are currently live.
func (f *FakeFeed) ActiveSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// FakeLifecycle is an entitlement.AppLifecycle driven by the test.
type FakeLifecycle struct {
	mu       sync.Mutex
	handlers map[int]func()
	nextID   int
}

func NewFakeLifecycle() *FakeLifecycle {
	return &FakeLifecycle{handlers: make(map[int]func())}
}

func (f *FakeLifecycle) OnForeground(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// Foreground simulates the app returning to the foreground.
func (f *FakeLifecycle) Foreground() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.handlers))
	for _, fn := range f.handlers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
