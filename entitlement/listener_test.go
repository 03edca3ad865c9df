package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
	memorystore "github.com/open-rails/paykit/storage/memory"
	"github.com/open-rails/paykit/testkit"
)

func newListenerFixture(t *testing.T) (*testkit.FakeFeed, *countingStore, *entitlement.ChangeListener) {
	t.Helper()
	feed := testkit.NewFakeFeed()
	records := &countingStore{RecordStore: memorystore.NewRecordStore()}
	entries := memorystore.NewStatusCache(0)
	t.Cleanup(func() { _ = entries.Close() })
	resolver := entitlement.NewResolver(records, nil, core.Config{}, nil)
	cache := entitlement.NewCache(entries, resolver, core.Config{}, nil)
	l := entitlement.NewChangeListener(feed, cache, core.Config{}, nil)
	t.Cleanup(l.Destroy)
	return feed, records, l
}

func updateEvent(subject string, status entitlement.Status, updatedAt time.Time) entitlement.FeedEvent {
	return entitlement.FeedEvent{
		Events: []string{"records.entitlement_records.update"},
		Payload: entitlement.Record{
			ID:        core.NewRecordID(),
			Subject:   subject,
			Status:    status,
			CreatedAt: updatedAt.Add(-time.Hour),
			UpdatedAt: updatedAt,
		},
	}
}

func TestClassifyRecentUpdates(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}

	cases := []struct {
		name   string
		status entitlement.Status
		want   entitlement.ChangeKind
	}{
		{"active reads as manual upgrade", entitlement.StatusActive, entitlement.ChangeManualUpgrade},
		{"cancelled reads as manual downgrade", entitlement.StatusCancelled, entitlement.ChangeManualDowngrade},
		{"expired reads as manual downgrade", entitlement.StatusExpired, entitlement.ChangeManualDowngrade},
		{"pending reads as admin action", entitlement.StatusPending, entitlement.ChangeAdminAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got entitlement.ChangeEvent
			unsubscribe := l.OnChange(func(e entitlement.ChangeEvent) { got = e })
			defer unsubscribe()

			feed.Emit(updateEvent("user@example.com", tc.status, time.Now()))
			if got.Kind != tc.want {
				t.Errorf("kind = %s, want %s", got.Kind, tc.want)
			}
		})
	}
}

func TestClassifyStaleUpdateIsStatusChange(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	var got entitlement.ChangeEvent
	l.OnChange(func(e entitlement.ChangeEvent) { got = e })

	// An update last touched 10 minutes ago is outside the recent-edit
	// window, so no human intent is inferred.
	feed.Emit(updateEvent("user@example.com", entitlement.StatusActive, time.Now().Add(-10*time.Minute)))
	if got.Kind != entitlement.ChangeStatusChange {
		t.Errorf("kind = %s, want %s", got.Kind, entitlement.ChangeStatusChange)
	}
}

func TestClassifyCreateIsStatusChange(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	var got entitlement.ChangeEvent
	l.OnChange(func(e entitlement.ChangeEvent) { got = e })

	event := updateEvent("user@example.com", entitlement.StatusActive, time.Now())
	event.Events = []string{"records.entitlement_records.create"}
	feed.Emit(event)
	if got.Kind != entitlement.ChangeStatusChange {
		t.Errorf("kind = %s, want %s", got.Kind, entitlement.ChangeStatusChange)
	}
}

func TestListenerFiltersOtherSubjects(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	calls := 0
	l.OnChange(func(entitlement.ChangeEvent) { calls++ })

	feed.Emit(updateEvent("other@example.com", entitlement.StatusActive, time.Now()))
	feed.Emit(updateEvent("USER@example.com", entitlement.StatusActive, time.Now()))

	if calls != 1 {
		t.Errorf("callback calls = %d, want 1 (case-insensitive match only)", calls)
	}
}

func TestListenerRefreshesCacheOnChange(t *testing.T) {
	feed, records, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}

	feed.Emit(updateEvent("user@example.com", entitlement.StatusActive, time.Now()))
	if records.finds.Load() != 1 {
		t.Errorf("expected one re-resolution after change, got %d", records.finds.Load())
	}
}

func TestStartListeningIdempotent(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	ctx := context.Background()

	if err := l.StartListening(ctx, "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := l.StartListening(ctx, "user@example.com"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if feed.SubscribeCalls != 1 {
		t.Errorf("subscribe calls = %d, want 1", feed.SubscribeCalls)
	}

	l.StopListening()
	if feed.ActiveSubscriptions() != 0 {
		t.Errorf("active subscriptions = %d, want 0", feed.ActiveSubscriptions())
	}
}

func TestOnChangePanicContained(t *testing.T) {
	feed, _, l := newListenerFixture(t)
	if err := l.StartListening(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.OnChange(func(entitlement.ChangeEvent) { panic("callback bug") })
	calls := 0
	l.OnChange(func(entitlement.ChangeEvent) { calls++ })

	feed.Emit(updateEvent("user@example.com", entitlement.StatusActive, time.Now()))
	if calls != 1 {
		t.Errorf("surviving callback calls = %d, want 1", calls)
	}
}
