package entitlement

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// FeedScope is the realtime-feed scope for entitlement record mutations.
const FeedScope = "entitlement_records"

// ChangeListener subscribes to the record store's realtime mutation feed,
// classifies events for the tracked subject, fans them out to registered
// callbacks, and keeps the cache coherent by invalidating + re-resolving on
// every relevant mutation.
type ChangeListener struct {
	feed  RealtimeFeed
	cache *Cache
	cfg   core.Config
	log   logrus.FieldLogger

	mu        sync.Mutex
	subject   string
	unsub     func()
	nextID    int
	callbacks map[int]func(ChangeEvent)
}

// NewChangeListener constructs a listener that is not yet subscribed.
func NewChangeListener(feed RealtimeFeed, cache *Cache, cfg core.Config, log logrus.FieldLogger) *ChangeListener {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChangeListener{
		feed:      feed,
		cache:     cache,
		cfg:       cfg.Normalize(),
		log:       log,
		callbacks: make(map[int]func(ChangeEvent)),
	}
}

// StartListening subscribes to the feed for subject. Idempotent: a second
// call while already listening logs and no-ops rather than stacking a
// duplicate subscription.
func (l *ChangeListener) StartListening(ctx context.Context, subject string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsub != nil {
		l.log.WithField("subject", l.subject).Debug("already listening, start ignored")
		return nil
	}
	l.subject = core.NormalizeSubject(subject)
	unsub, err := l.feed.Subscribe(ctx, FeedScope, l.handle)
	if err != nil {
		return NewFault(KindTransport, "listener.subscribe", err)
	}
	l.unsub = unsub
	l.log.WithField("subject", l.subject).Info("listening for entitlement changes")
	return nil
}

// StopListening tears down the feed subscription.
func (l *ChangeListener) StopListening() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsub == nil {
		return
	}
	l.unsub()
	l.unsub = nil
	l.log.Info("stopped listening for entitlement changes")
}

// Destroy stops listening and drops every registered callback. Intended to
// run once at application teardown.
func (l *ChangeListener) Destroy() {
	l.StopListening()
	l.mu.Lock()
	l.callbacks = make(map[int]func(ChangeEvent))
	l.mu.Unlock()
}

// OnChange registers a callback for classified events and returns its
// unsubscribe func. Callback panics are contained per callback.
func (l *ChangeListener) OnChange(fn func(ChangeEvent)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.callbacks[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.callbacks, id)
	}
}

// handle processes one raw feed event: filter by subject, classify, notify,
// then refresh the cache so UI-facing state moves without waiting for the
// next periodic tick.
func (l *ChangeListener) handle(event FeedEvent) {
	l.mu.Lock()
	tracked := l.subject
	l.mu.Unlock()

	if !core.SameSubject(event.Payload.Subject, tracked) {
		return
	}

	kind := l.classify(event)
	change := ChangeEvent{Kind: kind, Subject: tracked, Record: event.Payload}
	l.log.WithFields(logrus.Fields{"kind": kind, "subject": tracked}).
		Debug("entitlement record changed")
	l.notify(change)

	ctx := context.Background()
	l.cache.Invalidate(ctx, tracked)
	l.cache.GetOrResolve(ctx, tracked)
}

// classify maps a raw mutation onto a ChangeKind. Updates touched within
// the recent-edit window are inferred to be human-triggered; this is a
// best-effort annotation for operational visibility, not a gate.
func (l *ChangeListener) classify(event FeedEvent) ChangeKind {
	if isCreate(event.Events) {
		return ChangeStatusChange
	}
	if time.Since(event.Payload.UpdatedAt) > l.cfg.RecentEditWindow {
		return ChangeStatusChange
	}
	switch event.Payload.Status {
	case StatusActive:
		return ChangeManualUpgrade
	case StatusCancelled, StatusExpired:
		return ChangeManualDowngrade
	}
	return ChangeAdminAction
}

func isCreate(events []string) bool {
	for _, e := range events {
		if strings.HasSuffix(e, ".create") || strings.Contains(e, ".create.") {
			return true
		}
	}
	return false
}

func (l *ChangeListener) notify(change ChangeEvent) {
	l.mu.Lock()
	fns := make([]func(ChangeEvent), 0, len(l.callbacks))
	for _, fn := range l.callbacks {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.log.WithField("panic", r).Warn("change callback panicked")
				}
			}()
			fn(change)
		}()
	}
}
