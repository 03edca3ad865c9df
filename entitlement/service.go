package entitlement

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
)

// Deps are the collaborators a Service is composed from. Records and
// CacheStore are required; the rest degrade gracefully when absent
// (no billing → not-configured validation results, no feed → no realtime
// reaction, no lifecycle → timer-only revalidation).
type Deps struct {
	Records    RecordStore
	Billing    BillingClient
	CacheStore CacheStore
	Feed       RealtimeFeed
	Lifecycle  AppLifecycle
	Audit      core.OverrideAuditLogger
	Logger     logrus.FieldLogger
}

// Service is the engine's composition root: one explicit object owning the
// resolver, cache, validator, listener, and admin surface, with a
// start/stop/destroy lifecycle driven by the host application. All read
// paths converge on the same cache + resolver pair.
type Service struct {
	cfg       core.Config
	log       logrus.FieldLogger
	resolver  *Resolver
	cache     *Cache
	validator *Validator
	listener  *ChangeListener
	admin     *Admin
}

// NewService wires the engine from deps. It does not start anything;
// call Start once the host knows the current subject.
func NewService(deps Deps, cfg core.Config) (*Service, error) {
	if deps.Records == nil {
		return nil, errors.New("entitlement: record store is required")
	}
	if deps.CacheStore == nil {
		return nil, errors.New("entitlement: cache store is required")
	}
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg = cfg.Normalize()

	resolver := NewResolver(deps.Records, deps.Billing, cfg, log)
	cache := NewCache(deps.CacheStore, resolver, cfg, log)
	svc := &Service{
		cfg:       cfg,
		log:       log,
		resolver:  resolver,
		cache:     cache,
		validator: NewValidator(deps.Records, deps.Billing, cache, deps.Lifecycle, cfg, log),
		admin:     NewAdmin(deps.Records, cache, deps.Audit, cfg, log),
	}
	if deps.Feed != nil {
		svc.listener = NewChangeListener(deps.Feed, cache, cfg, log)
	}
	return svc, nil
}

// Start arms periodic validation and realtime listening for subject.
func (s *Service) Start(ctx context.Context, subject string) error {
	s.validator.Start(subject)
	if s.listener != nil {
		if err := s.listener.StartListening(ctx, subject); err != nil {
			return err
		}
	}
	return nil
}

// Stop disarms the validator and the feed subscription. The service can be
// started again for a different subject.
func (s *Service) Stop() {
	s.validator.Stop()
	if s.listener != nil {
		s.listener.StopListening()
	}
}

// Destroy stops everything and drops all registered callbacks. Run once at
// application teardown.
func (s *Service) Destroy() {
	s.validator.Destroy()
	if s.listener != nil {
		s.listener.Destroy()
	}
}

// GetUserSubscriptionStatus returns the subject's status through the cache.
func (s *Service) GetUserSubscriptionStatus(ctx context.Context, subject string) ResolvedStatus {
	return s.cache.GetOrResolve(ctx, subject)
}

// ForceRefreshSubscriptionStatus bypasses the cache TTL.
func (s *Service) ForceRefreshSubscriptionStatus(ctx context.Context, subject string) ResolvedStatus {
	return s.cache.ForceRefresh(ctx, subject)
}

// Validate runs one validation pass now (single-flight still applies).
func (s *Service) Validate(ctx context.Context) (ValidationResult, bool) {
	return s.validator.Validate(ctx)
}

// OnValidation registers a listener for completed validation passes.
func (s *Service) OnValidation(fn func(ValidationResult)) (unsubscribe func()) {
	return s.validator.OnResult(fn)
}

// OnChange registers a callback for classified record mutations. Returns a
// no-op unsubscribe when no realtime feed is wired.
func (s *Service) OnChange(fn func(ChangeEvent)) (unsubscribe func()) {
	if s.listener == nil {
		return func() {}
	}
	return s.listener.OnChange(fn)
}

// CanCreateCompany gates company creation for the subject.
func (s *Service) CanCreateCompany(ctx context.Context, subject string, currentCount int) GateDecision {
	return CanCreateCompany(ctx, s.GetUserSubscriptionStatus(ctx, subject), currentCount)
}

// CanCreateCashbook gates cashbook creation for the subject.
func (s *Service) CanCreateCashbook(ctx context.Context, subject string, currentCount int) GateDecision {
	return CanCreateCashbook(ctx, s.GetUserSubscriptionStatus(ctx, subject), currentCount)
}

// CanCreateTransaction gates transaction creation for the subject.
func (s *Service) CanCreateTransaction(ctx context.Context, subject string, currentCount int) GateDecision {
	return CanCreateTransaction(ctx, s.GetUserSubscriptionStatus(ctx, subject), currentCount)
}

// Admin exposes the privileged override operations.
func (s *Service) Admin() *Admin { return s.admin }

// Cache exposes the cache for hosts that need direct invalidation hooks.
func (s *Service) Cache() *Cache { return s.cache }
