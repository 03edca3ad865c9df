package entitlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
	memorystore "github.com/open-rails/paykit/storage/memory"
)

// recordingAudit captures LogOverride calls.
type recordingAudit struct {
	mu  sync.Mutex
	ops []string
}

func (a *recordingAudit) LogOverride(ctx context.Context, op, subject, actor, note string) error {
	_ = ctx
	_ = subject
	_ = actor
	_ = note
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ops = append(a.ops, op)
	return nil
}

func newAdminFixture(t *testing.T) (*memorystore.RecordStore, *recordingAudit, *entitlement.Admin) {
	t.Helper()
	records := memorystore.NewRecordStore()
	entries := memorystore.NewStatusCache(0)
	t.Cleanup(func() { _ = entries.Close() })
	resolver := entitlement.NewResolver(records, nil, core.Config{}, nil)
	cache := entitlement.NewCache(entries, resolver, core.Config{}, nil)
	audit := &recordingAudit{}
	return records, audit, entitlement.NewAdmin(records, cache, audit, core.Config{}, nil)
}

func TestGrantPremiumWritesManualRecord(t *testing.T) {
	records, audit, admin := newAdminFixture(t)
	ctx := context.Background()

	res := admin.GrantPremium(ctx, "VIP@Example.com", entitlement.GrantOpts{Notes: "support escalation"})
	if !res.OK {
		t.Fatalf("grant failed: %s", res.Message)
	}
	if res.Subject != "vip@example.com" {
		t.Errorf("subject = %q, want normalized", res.Subject)
	}

	matches, _ := records.Find(ctx, "vip@example.com", 1)
	if len(matches) != 1 {
		t.Fatalf("expected one record, got %d", len(matches))
	}
	rec := matches[0]
	if rec.Status != entitlement.StatusActive {
		t.Errorf("status = %s, want active", rec.Status)
	}
	if rec.PlanID != entitlement.PlanManualPremium {
		t.Errorf("plan = %q, want %q", rec.PlanID, entitlement.PlanManualPremium)
	}
	if rec.PaymentPlatform != entitlement.PlatformManual {
		t.Errorf("platform = %q, want %q", rec.PaymentPlatform, entitlement.PlatformManual)
	}
	if len(audit.ops) != 1 || audit.ops[0] != "grant_premium" {
		t.Errorf("audit ops = %v", audit.ops)
	}
}

func TestGrantPremiumRejectsInvalidSubject(t *testing.T) {
	records, _, admin := newAdminFixture(t)

	res := admin.GrantPremium(context.Background(), "not-an-address", entitlement.GrantOpts{})
	if res.OK {
		t.Fatal("expected rejection")
	}
	if matches, _ := records.Find(context.Background(), "not-an-address", 1); len(matches) != 0 {
		t.Error("no record should have been written")
	}
}

func TestStartFreeTrialDoesNotRestartClock(t *testing.T) {
	records, _, admin := newAdminFixture(t)
	ctx := context.Background()
	anchor := time.Now().Add(-3 * 24 * time.Hour)
	records.Seed(entitlement.Record{
		ID:        core.NewRecordID(),
		Subject:   "user@example.com",
		Status:    entitlement.StatusExpired,
		CreatedAt: anchor,
		UpdatedAt: anchor,
	})

	res := admin.StartFreeTrial(ctx, "user@example.com", entitlement.TrialOpts{})
	if !res.OK {
		t.Fatalf("trial failed: %s", res.Message)
	}

	matches, _ := records.Find(ctx, "user@example.com", 1)
	if matches[0].Status != entitlement.StatusPending {
		t.Errorf("status = %s, want pending", matches[0].Status)
	}
	if !matches[0].CreatedAt.Equal(anchor) {
		t.Errorf("CreatedAt moved from %v to %v", anchor, matches[0].CreatedAt)
	}
}

func TestRevokeAndCancelStatuses(t *testing.T) {
	records, _, admin := newAdminFixture(t)
	ctx := context.Background()

	admin.GrantPremium(ctx, "a@example.com", entitlement.GrantOpts{})
	admin.GrantPremium(ctx, "b@example.com", entitlement.GrantOpts{})

	if res := admin.RevokePremium(ctx, "a@example.com", entitlement.RevokeOpts{}); !res.OK {
		t.Fatalf("revoke failed: %s", res.Message)
	}
	if res := admin.CancelSubscription(ctx, "b@example.com", entitlement.RevokeOpts{}); !res.OK {
		t.Fatalf("cancel failed: %s", res.Message)
	}

	a, _ := records.Find(ctx, "a@example.com", 1)
	b, _ := records.Find(ctx, "b@example.com", 1)
	if a[0].Status != entitlement.StatusExpired {
		t.Errorf("revoked status = %s, want expired", a[0].Status)
	}
	if b[0].Status != entitlement.StatusCancelled {
		t.Errorf("cancelled status = %s, want cancelled", b[0].Status)
	}
}

func TestSetExternalSubscription(t *testing.T) {
	records, _, admin := newAdminFixture(t)
	ctx := context.Background()

	if res := admin.SetExternalSubscription(ctx, "user@example.com", entitlement.ExternalOpts{}); res.OK {
		t.Fatal("missing provider must be rejected")
	}

	res := admin.SetExternalSubscription(ctx, "user@example.com", entitlement.ExternalOpts{
		PaymentProvider: "bank_transfer",
		IsActive:        true,
	})
	if !res.OK {
		t.Fatalf("external set failed: %s", res.Message)
	}
	matches, _ := records.Find(ctx, "user@example.com", 1)
	if matches[0].Status != entitlement.StatusActive {
		t.Errorf("status = %s, want active", matches[0].Status)
	}
	if matches[0].PaymentPlatform != "bank_transfer" {
		t.Errorf("platform = %q, want bank_transfer", matches[0].PaymentPlatform)
	}
}

func TestBulkGrantContinuesPastFailures(t *testing.T) {
	_, _, admin := newAdminFixture(t)

	out := admin.BulkGrantPremium(context.Background(),
		[]string{"a@example.com", "broken subject", "b@example.com"},
		entitlement.GrantOpts{})

	if out.TotalProcessed != 3 || out.Successful != 2 || out.Failed != 1 {
		t.Fatalf("unexpected tally: %+v", out)
	}
	if len(out.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(out.Results))
	}
	if out.Results[1].OK {
		t.Error("middle subject should have failed")
	}
	if !out.Results[2].OK {
		t.Error("batch must continue past a failure")
	}
}
