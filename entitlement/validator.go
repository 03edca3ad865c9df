package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// ValidatorState is the validator's lifecycle state.
type ValidatorState int

const (
	ValidatorStopped ValidatorState = iota
	ValidatorIdle
	ValidatorValidating
)

func (s ValidatorState) String() string {
	switch s {
	case ValidatorIdle:
		return "idle"
	case ValidatorValidating:
		return "validating"
	}
	return "stopped"
}

// Validator periodically reconciles the billing provider's view into the
// record store for the tracked subject, clears the cache after a successful
// pass, and broadcasts every completed pass to registered listeners.
// Validation is single-flight: triggers that arrive while a pass runs are
// dropped, not queued.
type Validator struct {
	records   RecordStore
	billing   BillingClient
	cache     *Cache
	lifecycle AppLifecycle
	cfg       core.Config
	log       logrus.FieldLogger

	mu        sync.Mutex
	active    bool
	state     ValidatorState
	subject   string
	lastPass  time.Time
	sched     *cron.Cron
	unsubFG   func()
	nextID    int
	listeners map[int]func(ValidationResult)
}

// NewValidator constructs a stopped Validator. lifecycle may be nil when
// the host has no foreground/background notion (plain servers).
func NewValidator(records RecordStore, billing BillingClient, cache *Cache, lifecycle AppLifecycle, cfg core.Config, log logrus.FieldLogger) *Validator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{
		records:   records,
		billing:   billing,
		cache:     cache,
		lifecycle: lifecycle,
		cfg:       cfg.Normalize(),
		log:       log,
		listeners: make(map[int]func(ValidationResult)),
	}
}

// Start arms the repeating schedule for subject and subscribes to
// foreground transitions. Calling Start while already armed is a no-op.
func (v *Validator) Start(subject string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active {
		v.log.Debug("validator already active, start ignored")
		return
	}
	v.active = true
	v.state = ValidatorIdle
	v.subject = core.NormalizeSubject(subject)

	v.sched = cron.New()
	_, err := v.sched.AddFunc(fmt.Sprintf("@every %s", v.cfg.ValidationInterval), func() {
		v.Validate(context.Background())
	})
	if err != nil {
		// Interval comes from normalized config; a parse failure here is a
		// programming error worth surfacing loudly.
		v.log.WithError(err).Error("validator schedule failed to arm")
	}
	v.sched.Start()

	if v.lifecycle != nil {
		v.unsubFG = v.lifecycle.OnForeground(v.onForeground)
	}
	v.log.WithField("interval", v.cfg.ValidationInterval).Info("periodic validation started")
}

// Stop disarms the schedule and transitions to Stopped.
func (v *Validator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.active {
		return
	}
	v.active = false
	v.state = ValidatorStopped
	if v.sched != nil {
		v.sched.Stop()
		v.sched = nil
	}
	if v.unsubFG != nil {
		v.unsubFG()
		v.unsubFG = nil
	}
	v.log.Info("periodic validation stopped")
}

// Destroy stops the validator and drops all registered listeners.
func (v *Validator) Destroy() {
	v.Stop()
	v.mu.Lock()
	v.listeners = make(map[int]func(ValidationResult))
	v.mu.Unlock()
}

// State returns the current lifecycle state.
func (v *Validator) State() ValidatorState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnResult registers a listener for completed passes and returns its
// unsubscribe func. Listener panics are caught and logged, never propagated
// back into the validator.
func (v *Validator) OnResult(fn func(ValidationResult)) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

// Validate runs one validation pass. It returns false when the trigger was
// dropped because a pass is already in flight or the validator is stopped.
func (v *Validator) Validate(ctx context.Context) (ValidationResult, bool) {
	v.mu.Lock()
	if v.state != ValidatorIdle {
		v.mu.Unlock()
		v.log.Debug("validation trigger dropped")
		return ValidationResult{}, false
	}
	v.state = ValidatorValidating
	subject := v.subject
	v.mu.Unlock()

	result := v.pass(ctx, subject)

	v.mu.Lock()
	if v.state == ValidatorValidating {
		v.state = ValidatorIdle
	}
	v.lastPass = time.Now()
	v.mu.Unlock()

	v.broadcast(result)
	return result, true
}

// Sync runs one billing→store reconciliation for an arbitrary subject,
// outside the tracked subject's single-flight periodic path. Background
// workers use this for purchase-webhook and offer-to-sync flows.
func (v *Validator) Sync(ctx context.Context, subject string) ValidationResult {
	return v.pass(ctx, core.NormalizeSubject(subject))
}

// pass does the actual reconciliation against the billing provider.
func (v *Validator) pass(ctx context.Context, subject string) ValidationResult {
	if v.billing == nil || !v.billing.Configured() {
		return ValidationResult{
			IsValid: false,
			Err:     NewFault(KindNotConfigured, "validator.pass", nil),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, v.cfg.CallTimeout)
	snap, err := v.billing.Snapshot(callCtx, subject)
	cancel()
	if err != nil {
		v.log.WithError(err).Warn("billing snapshot failed during validation")
		return ValidationResult{IsValid: false, Err: err}
	}

	synced, err := v.syncDrift(ctx, subject, snap)
	if err != nil {
		v.log.WithError(err).Warn("record-store sync failed during validation")
		return ValidationResult{IsValid: false, HasActiveSubscription: snap.HasActiveSubscription, Err: err}
	}
	if v.cache != nil {
		v.cache.InvalidateAll(ctx)
	}
	v.log.WithFields(logrus.Fields{
		"subject": subject,
		"active":  snap.HasActiveSubscription,
		"synced":  synced,
	}).Info("validation pass completed")
	return ValidationResult{IsValid: true, HasActiveSubscription: snap.HasActiveSubscription, SyncedWithStore: synced}
}

// syncDrift writes billing-detected state into the record store. Manual
// grants (PaymentPlatform other than the provider's) are never downgraded
// here; only records the provider owns follow its view down.
func (v *Validator) syncDrift(ctx context.Context, subject string, snap BillingSnapshot) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.cfg.CallTimeout)
	defer cancel()
	matches, err := v.records.Find(callCtx, subject, 1)
	if err != nil {
		return false, err
	}
	var rec *Record
	if len(matches) > 0 {
		rec = &matches[0]
	}

	platform := v.billing.Platform()
	switch {
	case snap.HasActiveSubscription && (rec == nil || rec.Status != StatusActive):
		note := "synced from billing provider"
		_, err := v.upsert(ctx, subject, RecordFields{
			Status:          StatusActive,
			PaymentPlatform: &platform,
			Notes:           &note,
		})
		return err == nil, err
	case !snap.HasActiveSubscription && rec != nil && rec.Status == StatusActive && rec.PaymentPlatform == platform:
		note := "expired by billing provider"
		_, err := v.upsert(ctx, subject, RecordFields{Status: StatusExpired, Notes: &note})
		return err == nil, err
	}
	return false, nil
}

func (v *Validator) upsert(ctx context.Context, subject string, fields RecordFields) (Record, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.cfg.CallTimeout)
	defer cancel()
	return v.records.Upsert(callCtx, subject, fields)
}

// onForeground revalidates when the app returns to the foreground, unless a
// pass ran recently. Rapid foreground/background toggling must not herd.
func (v *Validator) onForeground() {
	v.mu.Lock()
	recent := !v.lastPass.IsZero() && time.Since(v.lastPass) < v.cfg.MinRefreshGap
	stopped := !v.active
	v.mu.Unlock()
	if stopped || recent {
		return
	}
	go v.Validate(context.Background())
}

func (v *Validator) broadcast(result ValidationResult) {
	v.mu.Lock()
	fns := make([]func(ValidationResult), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					v.log.WithField("panic", r).Warn("validation listener panicked")
				}
			}()
			fn(result)
		}()
	}
}
