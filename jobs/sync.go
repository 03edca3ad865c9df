// Package jobs runs entitlement work out of band on river. The one job
// here reconciles a single subject's billing state into the record store —
// enqueued by purchase webhooks, or when a resolution reports an active
// billing subscription the store does not reflect.
package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/entitlement"
)

// SyncArgs identifies the subject to reconcile.
type SyncArgs struct {
	Subject string `json:"subject"`
}

// Kind implements river.JobArgs.
func (SyncArgs) Kind() string { return "entitlement_sync" }

// InsertOpts dedupes pending syncs per subject; a burst of webhooks for one
// subject collapses into a single queued job.
func (SyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// SyncWorker performs the billing→store pass for the job's subject.
type SyncWorker struct {
	river.WorkerDefaults[SyncArgs]
	validator *entitlement.Validator
	log       logrus.FieldLogger
}

// NewSyncWorker wraps the validator's sync pass as a river worker.
func NewSyncWorker(validator *entitlement.Validator, log logrus.FieldLogger) *SyncWorker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SyncWorker{validator: validator, log: log}
}

// Work implements river.Worker. A failing pass returns its error so river
// retries up to MaxAttempts.
func (w *SyncWorker) Work(ctx context.Context, job *river.Job[SyncArgs]) error {
	result := w.validator.Sync(ctx, job.Args.Subject)
	if result.Err != nil {
		return fmt.Errorf("entitlement sync for %s: %w", job.Args.Subject, result.Err)
	}
	w.log.WithFields(logrus.Fields{
		"subject": job.Args.Subject,
		"active":  result.HasActiveSubscription,
		"synced":  result.SyncedWithStore,
	}).Info("entitlement sync job completed")
	return nil
}

// AddWorkers registers this package's workers on a river worker set.
func AddWorkers(workers *river.Workers, validator *entitlement.Validator, log logrus.FieldLogger) {
	river.AddWorker(workers, NewSyncWorker(validator, log))
}

// NewInsertClient builds an insert-only river client over pool, for hosts
// that enqueue syncs from web handlers without running workers in-process.
func NewInsertClient(pool *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), &river.Config{})
}

// EnqueueSync queues one reconciliation for subject.
func EnqueueSync(ctx context.Context, client *river.Client[pgx.Tx], subject string) error {
	_, err := client.Insert(ctx, SyncArgs{Subject: subject}, nil)
	return err
}
