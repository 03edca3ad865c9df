package entitlement

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// Default plan/platform markers for operator-driven writes.
const (
	PlanFreeTrial     = "free_trial"
	PlanManualPremium = "premium_manual"
	PlatformManual    = "manual"
)

// OverrideResult reports one admin operation's outcome. Failures come back
// as OK=false with a message instead of an error so batch callers can keep
// going.
type OverrideResult struct {
	Subject string
	OK      bool
	Message string
}

// BulkResult aggregates a bulk grant.
type BulkResult struct {
	TotalProcessed int
	Successful     int
	Failed         int
	Results        []OverrideResult
}

// GrantOpts tunes GrantPremium / BulkGrantPremium.
type GrantOpts struct {
	PlanID string // defaults to PlanManualPremium
	Notes  string
	Source string // stored as PaymentPlatform; defaults to PlatformManual
}

// TrialOpts tunes StartFreeTrial.
type TrialOpts struct {
	Notes  string
	Source string
}

// RevokeOpts tunes RevokePremium / CancelSubscription.
type RevokeOpts struct {
	Notes string
}

// ExternalOpts tunes SetExternalSubscription.
type ExternalOpts struct {
	PaymentProvider string
	PlanID          string
	IsActive        bool
	Notes           string
}

// Admin exposes the privileged override operations. Each is a thin named
// upsert against the record store followed by unconditional cache
// invalidation for the subject. Writes are last-write-wins; concurrent
// overrides on one subject are not serialized beyond the store's own
// atomicity.
type Admin struct {
	records RecordStore
	cache   *Cache
	audit   core.OverrideAuditLogger
	cfg     core.Config
	log     logrus.FieldLogger
}

// NewAdmin constructs the override surface. audit may be nil.
func NewAdmin(records RecordStore, cache *Cache, audit core.OverrideAuditLogger, cfg core.Config, log logrus.FieldLogger) *Admin {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Admin{records: records, cache: cache, audit: audit, cfg: cfg.Normalize(), log: log}
}

// GrantPremium marks the subject active regardless of billing state.
func (a *Admin) GrantPremium(ctx context.Context, subject string, opts GrantOpts) OverrideResult {
	plan := opts.PlanID
	if plan == "" {
		plan = PlanManualPremium
	}
	source := opts.Source
	if source == "" {
		source = PlatformManual
	}
	return a.apply(ctx, "grant_premium", subject, RecordFields{
		Status:          StatusActive,
		PlanID:          &plan,
		PaymentPlatform: &source,
		Notes:           notePtr(opts.Notes),
	})
}

// StartFreeTrial marks the subject pending. The trial window anchors to the
// record's CreatedAt, so re-invoking on an existing record does not restart
// the clock.
func (a *Admin) StartFreeTrial(ctx context.Context, subject string, opts TrialOpts) OverrideResult {
	plan := PlanFreeTrial
	source := opts.Source
	if source == "" {
		source = PlatformManual
	}
	return a.apply(ctx, "start_free_trial", subject, RecordFields{
		Status:          StatusPending,
		PlanID:          &plan,
		PaymentPlatform: &source,
		Notes:           notePtr(opts.Notes),
	})
}

// RevokePremium marks the subject expired.
func (a *Admin) RevokePremium(ctx context.Context, subject string, opts RevokeOpts) OverrideResult {
	return a.apply(ctx, "revoke_premium", subject, RecordFields{
		Status: StatusExpired,
		Notes:  notePtr(opts.Notes),
	})
}

// CancelSubscription marks the subject cancelled.
func (a *Admin) CancelSubscription(ctx context.Context, subject string, opts RevokeOpts) OverrideResult {
	return a.apply(ctx, "cancel_subscription", subject, RecordFields{
		Status: StatusCancelled,
		Notes:  notePtr(opts.Notes),
	})
}

// SetExternalSubscription records an entitlement paid for on an alternate
// provider (bank transfer, app-store family plan, etc.).
func (a *Admin) SetExternalSubscription(ctx context.Context, subject string, opts ExternalOpts) OverrideResult {
	if opts.PaymentProvider == "" {
		return OverrideResult{Subject: core.NormalizeSubject(subject), OK: false, Message: "payment provider required"}
	}
	status := StatusPending
	if opts.IsActive {
		status = StatusActive
	}
	fields := RecordFields{
		Status:          status,
		PaymentPlatform: &opts.PaymentProvider,
		Notes:           notePtr(opts.Notes),
	}
	if opts.PlanID != "" {
		fields.PlanID = &opts.PlanID
	}
	return a.apply(ctx, "set_external_subscription", subject, fields)
}

// BulkGrantPremium grants sequentially, collecting per-subject outcomes.
// An individual failure never aborts the batch.
func (a *Admin) BulkGrantPremium(ctx context.Context, subjects []string, opts GrantOpts) BulkResult {
	out := BulkResult{TotalProcessed: len(subjects), Results: make([]OverrideResult, 0, len(subjects))}
	for _, subject := range subjects {
		res := a.GrantPremium(ctx, subject, opts)
		if res.OK {
			out.Successful++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}
	return out
}

// apply upserts, invalidates the subject's cache slot, and audits.
func (a *Admin) apply(ctx context.Context, op, subject string, fields RecordFields) OverrideResult {
	normalized := core.NormalizeSubject(subject)
	if !core.ValidSubject(normalized) {
		return OverrideResult{Subject: normalized, OK: false, Message: "invalid subject"}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	_, err := a.records.Upsert(callCtx, normalized, fields)
	cancel()

	if a.cache != nil {
		a.cache.Invalidate(ctx, normalized)
	}
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": op, "subject": normalized}).
			Warn("override upsert failed")
		return OverrideResult{Subject: normalized, OK: false, Message: err.Error()}
	}

	note := ""
	if fields.Notes != nil {
		note = *fields.Notes
	}
	if a.audit != nil {
		if err := a.audit.LogOverride(ctx, op, normalized, actorFrom(fields), note); err != nil {
			a.log.WithError(err).Debug("override audit write failed")
		}
	}
	a.log.WithFields(logrus.Fields{"op": op, "subject": normalized, "status": fields.Status}).
		Info("entitlement override applied")
	return OverrideResult{Subject: normalized, OK: true}
}

func actorFrom(fields RecordFields) string {
	if fields.PaymentPlatform != nil {
		return *fields.PaymentPlatform
	}
	return PlatformManual
}

func notePtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
