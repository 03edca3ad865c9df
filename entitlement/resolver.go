package entitlement

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// Resolver decides a subject's authoritative entitlement by applying
// source-priority rules: the record store first (it is the source an
// operator can correct by hand), the billing provider only as a secondary,
// informational signal. Absence of entitlement is a normal result, never an
// error.
type Resolver struct {
	records RecordStore
	billing BillingClient
	cfg     core.Config
	log     logrus.FieldLogger
}

// NewResolver constructs a Resolver. billing may be nil when no provider is
// wired; the secondary check is then skipped.
func NewResolver(records RecordStore, billing BillingClient, cfg core.Config, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{records: records, billing: billing, cfg: cfg.Normalize(), log: log}
}

// Resolve computes the subject's current ResolvedStatus.
//
// Priority order, first match wins:
//  1. no record → free limits, status none (billing checked informationally)
//  2. record active → premium, billing not consulted
//  3. record pending inside the trial window → free trial, unlimited
//  4. anything else → free limits, billing checked informationally
//
// Only store faults propagate; billing faults degrade to "no secondary
// signal" because they must never block feature gating.
func (r *Resolver) Resolve(ctx context.Context, subject string) (ResolvedStatus, error) {
	subject = core.NormalizeSubject(subject)
	if subject == "" {
		return r.freeStatus(StatusNone), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	matches, err := r.records.Find(callCtx, subject, 2)
	if err != nil {
		return ResolvedStatus{}, err
	}
	if len(matches) > 1 {
		r.log.WithFields(logrus.Fields{"subject": subject, "count": len(matches)}).
			Warn("multiple entitlement records for one subject, using first")
	}
	if len(matches) == 0 {
		out := r.freeStatus(StatusNone)
		out.BillingActive = r.billingActive(ctx, subject)
		return out, nil
	}

	rec := matches[0]
	now := time.Now()
	switch {
	case rec.Status == StatusActive:
		return ResolvedStatus{
			IsPremium:          true,
			SubscriptionStatus: StatusActive,
			Limits:             core.Unlimited(),
		}, nil
	case rec.Status == StatusPending:
		deadline := rec.CreatedAt.Add(r.cfg.TrialWindow)
		if now.Before(deadline) {
			return ResolvedStatus{
				IsFreeTrial:        true,
				SubscriptionStatus: StatusPending,
				TimeRemainingDays:  daysRemaining(now, deadline),
				Limits:             core.Unlimited(),
			}, nil
		}
		// Trial lapsed without the record ever being expired by a writer.
		out := r.freeStatus(StatusExpired)
		out.BillingActive = r.billingActive(ctx, subject)
		return out, nil
	default:
		out := r.freeStatus(rec.Status)
		out.BillingActive = r.billingActive(ctx, subject)
		return out, nil
	}
}

// freeStatus is the not-entitled posture: free-tier limits, never a lockout.
func (r *Resolver) freeStatus(status Status) ResolvedStatus {
	return ResolvedStatus{SubscriptionStatus: status, Limits: r.cfg.FreeLimits}
}

// billingActive asks the provider whether it considers the subject
// subscribed. Failures and absence of a provider both read as false; this
// signal offers a sync, it never grants access.
func (r *Resolver) billingActive(ctx context.Context, subject string) bool {
	if r.billing == nil || !r.billing.Configured() {
		return false
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	snap, err := r.billing.Snapshot(callCtx, subject)
	if err != nil {
		r.log.WithError(err).WithField("subject", subject).Debug("secondary billing check failed")
		return false
	}
	return snap.HasActiveSubscription
}

func daysRemaining(now, deadline time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
