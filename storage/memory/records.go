package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

// RecordStore is an in-memory entitlement.RecordStore for tests and
// single-node development. Writes optionally fan out to OnWrite so a local
// feed can mirror the durable store's realtime behavior.
type RecordStore struct {
	mu      sync.Mutex
	records map[string]entitlement.Record

	// OnWrite, when set before first use, observes every upsert with the
	// stored record and whether the write created it.
	OnWrite func(rec entitlement.Record, created bool)
}

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]entitlement.Record)}
}

func (s *RecordStore) Find(ctx context.Context, subject string, limit int) ([]entitlement.Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[core.NormalizeSubject(subject)]
	if !ok || limit == 0 {
		return nil, nil
	}
	return []entitlement.Record{rec}, nil
}

func (s *RecordStore) Upsert(ctx context.Context, subject string, fields entitlement.RecordFields) (entitlement.Record, error) {
	_ = ctx
	key := core.NormalizeSubject(subject)
	now := time.Now()

	s.mu.Lock()
	rec, ok := s.records[key]
	if !ok {
		rec = entitlement.Record{ID: core.NewRecordID(), Subject: key, CreatedAt: now}
	}
	rec.Status = fields.Status
	if fields.PlanID != nil {
		rec.PlanID = *fields.PlanID
	}
	if fields.PaymentPlatform != nil {
		rec.PaymentPlatform = *fields.PaymentPlatform
	}
	if fields.Notes != nil {
		rec.Notes = *fields.Notes
	}
	rec.UpdatedAt = now
	s.records[key] = rec
	onWrite := s.OnWrite
	s.mu.Unlock()

	if onWrite != nil {
		onWrite(rec, !ok)
	}
	return rec, nil
}

// Seed inserts a record verbatim, keyed by its normalized subject. Test
// helper for shaping trial windows and timestamps directly.
func (s *RecordStore) Seed(rec entitlement.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = core.NewRecordID()
	}
	s.records[core.NormalizeSubject(rec.Subject)] = rec
}
