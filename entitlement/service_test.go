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

func newService(t *testing.T, deps entitlement.Deps) *entitlement.Service {
	t.Helper()
	if deps.Records == nil {
		deps.Records = memorystore.NewRecordStore()
	}
	if deps.CacheStore == nil {
		entries := memorystore.NewStatusCache(0)
		t.Cleanup(func() { _ = entries.Close() })
		deps.CacheStore = entries
	}
	svc, err := entitlement.NewService(deps, core.Config{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(svc.Destroy)
	return svc
}

func TestNewServiceRequiresStores(t *testing.T) {
	if _, err := entitlement.NewService(entitlement.Deps{}, core.Config{}); err == nil {
		t.Error("missing record store should error")
	}
	if _, err := entitlement.NewService(entitlement.Deps{Records: memorystore.NewRecordStore()}, core.Config{}); err == nil {
		t.Error("missing cache store should error")
	}
}

func TestServiceStartStop(t *testing.T) {
	feed := testkit.NewFakeFeed()
	lifecycle := testkit.NewFakeLifecycle()
	svc := newService(t, entitlement.Deps{
		Billing:   &testkit.FakeBilling{IsConfigured: true},
		Feed:      feed,
		Lifecycle: lifecycle,
	})

	if err := svc.Start(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if feed.ActiveSubscriptions() != 1 {
		t.Errorf("subscriptions = %d, want 1", feed.ActiveSubscriptions())
	}

	svc.Stop()
	if feed.ActiveSubscriptions() != 0 {
		t.Errorf("subscriptions after stop = %d, want 0", feed.ActiveSubscriptions())
	}
	if _, ok := svc.Validate(context.Background()); ok {
		t.Error("validation should be dropped after stop")
	}
}

func TestServiceGateDelegation(t *testing.T) {
	records := memorystore.NewRecordStore()
	records.Seed(entitlement.Record{
		Subject:   "vip@example.com",
		Status:    entitlement.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	svc := newService(t, entitlement.Deps{Records: records})
	ctx := context.Background()

	if d := svc.CanCreateCompany(ctx, "vip@example.com", 500); !d.Allowed {
		t.Errorf("premium denied: %q", d.Message)
	}
	if d := svc.CanCreateCompany(ctx, "free@example.com", 1); d.Allowed {
		t.Error("free tier over limit should be denied")
	}
	if d := svc.CanCreateTransaction(ctx, "free@example.com", 0); !d.Allowed {
		t.Errorf("free tier below limit denied: %q", d.Message)
	}
}

func TestServiceOnChangeWithoutFeed(t *testing.T) {
	svc := newService(t, entitlement.Deps{})

	unsubscribe := svc.OnChange(func(entitlement.ChangeEvent) {})
	if unsubscribe == nil {
		t.Fatal("expected a no-op unsubscribe")
	}
	unsubscribe()
}

func TestServiceValidationRoundTrip(t *testing.T) {
	billing := &testkit.FakeBilling{IsConfigured: true}
	billing.SetActive(true)
	records := memorystore.NewRecordStore()
	svc := newService(t, entitlement.Deps{Records: records, Billing: billing})
	ctx := context.Background()

	if svc.GetUserSubscriptionStatus(ctx, "user@example.com").IsPremium {
		t.Fatal("no record yet, should not be premium")
	}

	if err := svc.Start(ctx, "user@example.com"); err != nil {
		t.Fatalf("start: %v", err)
	}
	result, ok := svc.Validate(ctx)
	if !ok || !result.IsValid || !result.SyncedWithStore {
		t.Fatalf("validation = %+v ok=%v", result, ok)
	}

	// The pass wrote an active record and flushed the cache.
	if !svc.GetUserSubscriptionStatus(ctx, "user@example.com").IsPremium {
		t.Error("expected premium after billing sync")
	}
}
