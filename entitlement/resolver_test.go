package entitlement_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
	memorystore "github.com/open-rails/paykit/storage/memory"
	"github.com/open-rails/paykit/testkit"
)

// countingStore wraps a RecordStore and counts Find calls.
type countingStore struct {
	entitlement.RecordStore
	finds atomic.Int64
}

func (s *countingStore) Find(ctx context.Context, subject string, limit int) ([]entitlement.Record, error) {
	s.finds.Add(1)
	return s.RecordStore.Find(ctx, subject, limit)
}

// failingStore always fails with the given fault.
type failingStore struct {
	err error
}

func (s *failingStore) Find(context.Context, string, int) ([]entitlement.Record, error) {
	return nil, s.err
}

func (s *failingStore) Upsert(context.Context, string, entitlement.RecordFields) (entitlement.Record, error) {
	return entitlement.Record{}, s.err
}

func TestResolveNoRecord(t *testing.T) {
	store := memorystore.NewRecordStore()
	r := entitlement.NewResolver(store, nil, core.Config{}, nil)

	got, err := r.Resolve(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsPremium || got.IsFreeTrial {
		t.Errorf("expected no entitlement, got %+v", got)
	}
	if got.SubscriptionStatus != entitlement.StatusNone {
		t.Errorf("expected status none, got %q", got.SubscriptionStatus)
	}
	if got.Limits.MaxCompanies != 1 || got.Limits.MaxCashbooks != 3 || got.Limits.MaxTransactions != 250 {
		t.Errorf("expected free limits, got %+v", got.Limits)
	}
}

func TestResolveActiveRecordIgnoresBilling(t *testing.T) {
	for _, billingActive := range []bool{true, false} {
		store := memorystore.NewRecordStore()
		store.Seed(entitlement.Record{
			Subject:   "paid@example.com",
			Status:    entitlement.StatusActive,
			CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
			UpdatedAt: time.Now(),
		})
		billing := &testkit.FakeBilling{IsConfigured: true}
		billing.SetActive(billingActive)
		r := entitlement.NewResolver(store, billing, core.Config{}, nil)

		got, err := r.Resolve(context.Background(), "paid@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsPremium {
			t.Errorf("billingActive=%v: expected premium", billingActive)
		}
		if got.SubscriptionStatus != entitlement.StatusActive {
			t.Errorf("billingActive=%v: expected active, got %q", billingActive, got.SubscriptionStatus)
		}
		if got.Limits.MaxCompanies != -1 {
			t.Errorf("billingActive=%v: expected unlimited, got %+v", billingActive, got.Limits)
		}
		if billing.SnapshotCalls != 0 {
			t.Errorf("billingActive=%v: billing consulted for an active record", billingActive)
		}
	}
}

func TestResolveTrialWindow(t *testing.T) {
	store := memorystore.NewRecordStore()
	store.Seed(entitlement.Record{
		Subject:   "trial@example.com",
		Status:    entitlement.StatusPending,
		PlanID:    entitlement.PlanFreeTrial,
		CreatedAt: time.Now().Add(-3 * 24 * time.Hour),
		UpdatedAt: time.Now(),
	})
	r := entitlement.NewResolver(store, nil, core.Config{}, nil)

	got, err := r.Resolve(context.Background(), "trial@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsFreeTrial {
		t.Fatal("expected free trial")
	}
	if got.TimeRemainingDays != 4 {
		t.Errorf("expected 4 days remaining, got %d", got.TimeRemainingDays)
	}
}

func TestResolveTrialLapsed(t *testing.T) {
	store := memorystore.NewRecordStore()
	store.Seed(entitlement.Record{
		Subject:   "lapsed@example.com",
		Status:    entitlement.StatusPending,
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		UpdatedAt: time.Now(),
	})
	r := entitlement.NewResolver(store, nil, core.Config{}, nil)

	got, err := r.Resolve(context.Background(), "lapsed@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsFreeTrial || got.IsPremium {
		t.Errorf("lapsed trial still entitled: %+v", got)
	}
	if got.SubscriptionStatus != entitlement.StatusExpired {
		t.Errorf("expected expired, got %q", got.SubscriptionStatus)
	}
}

func TestResolveCancelledReportsBillingSignal(t *testing.T) {
	store := memorystore.NewRecordStore()
	store.Seed(entitlement.Record{
		Subject:   "churned@example.com",
		Status:    entitlement.StatusCancelled,
		CreatedAt: time.Now().Add(-60 * 24 * time.Hour),
		UpdatedAt: time.Now(),
	})
	billing := &testkit.FakeBilling{IsConfigured: true}
	billing.SetActive(true)
	r := entitlement.NewResolver(store, billing, core.Config{}, nil)

	got, err := r.Resolve(context.Background(), "churned@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsPremium {
		t.Error("billing signal must not grant access directly")
	}
	if !got.BillingActive {
		t.Error("expected informational billing signal")
	}
	if billing.SnapshotCalls != 1 {
		t.Errorf("expected one billing call, got %d", billing.SnapshotCalls)
	}
}

func TestResolveStoreFaultPropagates(t *testing.T) {
	fault := entitlement.NewFault(entitlement.KindTransport, "records.find", errors.New("connection refused"))
	r := entitlement.NewResolver(&failingStore{err: fault}, nil, core.Config{}, nil)

	_, err := r.Resolve(context.Background(), "any@example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if entitlement.KindOf(err) != entitlement.KindTransport {
		t.Errorf("expected transport kind, got %v", entitlement.KindOf(err))
	}
}

func TestResolveNormalizesSubject(t *testing.T) {
	store := memorystore.NewRecordStore()
	store.Seed(entitlement.Record{
		Subject:   "mixed@example.com",
		Status:    entitlement.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	r := entitlement.NewResolver(store, nil, core.Config{}, nil)

	got, err := r.Resolve(context.Background(), "  Mixed@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsPremium {
		t.Error("expected lookup to hit the normalized record")
	}
}
