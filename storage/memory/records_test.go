package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/open-rails/paykit/entitlement"
)

func TestUpsertCreatesThenUpdates(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	created, err := s.Upsert(ctx, "User@Example.com", entitlement.RecordFields{Status: entitlement.StatusPending})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.ID == "" {
		t.Error("create should mint an id")
	}
	if created.Subject != "user@example.com" {
		t.Errorf("subject = %q, want normalized", created.Subject)
	}

	updated, err := s.Upsert(ctx, "user@example.com", entitlement.RecordFields{Status: entitlement.StatusActive})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("update minted a new id: %q vs %q", updated.ID, created.ID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("update must preserve CreatedAt")
	}
	if updated.Status != entitlement.StatusActive {
		t.Errorf("status = %s, want active", updated.Status)
	}
}

func TestUpsertNilFieldsLeaveValues(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()
	plan := "premium_manual"
	platform := "manual"

	_, err := s.Upsert(ctx, "user@example.com", entitlement.RecordFields{
		Status:          entitlement.StatusActive,
		PlanID:          &plan,
		PaymentPlatform: &platform,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, err := s.Upsert(ctx, "user@example.com", entitlement.RecordFields{Status: entitlement.StatusExpired})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.PlanID != plan || rec.PaymentPlatform != platform {
		t.Errorf("nil fields overwrote values: %+v", rec)
	}
}

func TestFindHonorsLimitZero(t *testing.T) {
	s := NewRecordStore()
	s.Seed(entitlement.Record{Subject: "user@example.com", Status: entitlement.StatusActive})

	matches, err := s.Find(context.Background(), "user@example.com", 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("limit 0 returned %d records", len(matches))
	}
}

func TestOnWriteObservesUpserts(t *testing.T) {
	s := NewRecordStore()
	var gotCreated []bool
	s.OnWrite = func(_ entitlement.Record, created bool) { gotCreated = append(gotCreated, created) }

	_, _ = s.Upsert(context.Background(), "user@example.com", entitlement.RecordFields{Status: entitlement.StatusActive})
	_, _ = s.Upsert(context.Background(), "user@example.com", entitlement.RecordFields{Status: entitlement.StatusExpired})

	if len(gotCreated) != 2 || !gotCreated[0] || gotCreated[1] {
		t.Errorf("OnWrite created flags = %v, want [true false]", gotCreated)
	}
}

func TestStatusCacheRoundTrip(t *testing.T) {
	c := NewStatusCache(0)
	defer c.Close()
	ctx := context.Background()

	entry := entitlement.CacheEntry{
		Value:      entitlement.ResolvedStatus{IsPremium: true},
		ComputedAt: time.Now(),
	}
	if err := c.Put(ctx, "user@example.com", entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.Get(ctx, "user@example.com")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.Value.IsPremium {
		t.Errorf("value = %+v", got.Value)
	}

	if err := c.Delete(ctx, "user@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "user@example.com"); ok {
		t.Error("entry survived delete")
	}
}

func TestStatusCacheClear(t *testing.T) {
	c := NewStatusCache(0)
	defer c.Close()
	ctx := context.Background()

	_ = c.Put(ctx, "a@example.com", entitlement.CacheEntry{ComputedAt: time.Now()})
	_ = c.Put(ctx, "b@example.com", entitlement.CacheEntry{ComputedAt: time.Now()})
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "a@example.com"); ok {
		t.Error("entry survived clear")
	}
}
