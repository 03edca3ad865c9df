package postgresstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/paykit/core"
	"github.com/open-rails/paykit/entitlement"
)

// Publisher mirrors the realtime feed's write side so record mutations can
// be announced as they land. Best-effort; a publish failure never fails the
// write.
type Publisher interface {
	Publish(ctx context.Context, scope string, events []string, rec entitlement.Record) error
}

// RecordStore is the pgx-backed entitlement.RecordStore. It holds two
// pools: the session-scoped pool used first, and an optional service-role
// pool used as fallback when the session credentials are rejected — the
// credential-conflict fallback is ordinary branching on the error kind, not
// exception flow.
type RecordStore struct {
	session *pgxpool.Pool
	service *pgxpool.Pool
	schema  string
	feed    Publisher
	log     logrus.FieldLogger
}

// NewRecordStore creates a store over the session pool. service and feed
// may be nil. Empty schema defaults to "billing".
func NewRecordStore(session, service *pgxpool.Pool, schema string, feed Publisher, log logrus.FieldLogger) *RecordStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "billing"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecordStore{session: session, service: service, schema: s, feed: feed, log: log}
}

func (s *RecordStore) table() string { return s.schema + ".entitlement_records" }

// Find returns at most limit records for the normalized subject, newest
// update first.
func (s *RecordStore) Find(ctx context.Context, subject string, limit int) ([]entitlement.Record, error) {
	subject = core.NormalizeSubject(subject)
	if subject == "" || limit == 0 {
		return nil, nil
	}
	if limit < 0 {
		limit = 1
	}

	query := `SELECT id, subject, status, plan_id, payment_platform, notes, created_at, updated_at
		FROM ` + s.table() + ` WHERE subject=$1 ORDER BY updated_at DESC LIMIT $2`

	rows, err := s.query(ctx, "records.find", query, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entitlement.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, entitlement.NewFault(entitlement.KindTransport, "records.find", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, entitlement.NewFault(entitlement.KindTransport, "records.find", err)
	}
	return out, nil
}

// Upsert finds the subject's record and updates it in place, or creates one
// when absent. Last write wins; created_at is only set on create.
func (s *RecordStore) Upsert(ctx context.Context, subject string, fields entitlement.RecordFields) (entitlement.Record, error) {
	subject = core.NormalizeSubject(subject)
	if subject == "" {
		return entitlement.Record{}, entitlement.NewFault(entitlement.KindDataAnomaly, "records.upsert", errors.New("empty subject"))
	}

	existing, err := s.Find(ctx, subject, 1)
	if err != nil {
		return entitlement.Record{}, err
	}

	if len(existing) == 0 {
		insert := `INSERT INTO ` + s.table() + `
			(id, subject, status, plan_id, payment_platform, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, subject, status, plan_id, payment_platform, notes, created_at, updated_at`
		row, err := s.queryRow(ctx, "records.upsert", insert,
			core.NewRecordID(), subject, string(fields.Status),
			deref(fields.PlanID), deref(fields.PaymentPlatform), deref(fields.Notes))
		if err != nil {
			return entitlement.Record{}, err
		}
		s.publish(ctx, row, "create")
		return row, nil
	}

	update := `UPDATE ` + s.table() + ` SET
			status=$2,
			plan_id=COALESCE($3, plan_id),
			payment_platform=COALESCE($4, payment_platform),
			notes=COALESCE($5, notes),
			updated_at=NOW()
		WHERE id=$1
		RETURNING id, subject, status, plan_id, payment_platform, notes, created_at, updated_at`
	row, err := s.queryRow(ctx, "records.upsert", update,
		existing[0].ID, string(fields.Status), fields.PlanID, fields.PaymentPlatform, fields.Notes)
	if err != nil {
		return entitlement.Record{}, err
	}
	s.publish(ctx, row, "update")
	return row, nil
}

// query runs on the session pool, falling back to the service pool when the
// failure looks like a credential/permission rejection.
func (s *RecordStore) query(ctx context.Context, op, sql string, args ...any) (pgx.Rows, error) {
	rows, err := s.session.Query(ctx, sql, args...)
	if err == nil {
		return rows, nil
	}
	if !credentialRejected(err) {
		return nil, entitlement.NewFault(entitlement.KindTransport, op, err)
	}
	if s.service == nil {
		return nil, entitlement.NewFault(entitlement.KindCredentialConflict, op, err)
	}
	s.log.WithError(err).Debug("session credentials rejected, retrying with service role")
	rows, err = s.service.Query(ctx, sql, args...)
	if err != nil {
		return nil, entitlement.NewFault(entitlement.KindCredentialConflict, op, err)
	}
	return rows, nil
}

func (s *RecordStore) queryRow(ctx context.Context, op, sql string, args ...any) (entitlement.Record, error) {
	rows, err := s.query(ctx, op, sql, args...)
	if err != nil {
		return entitlement.Record{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entitlement.Record{}, entitlement.NewFault(entitlement.KindTransport, op, err)
		}
		return entitlement.Record{}, entitlement.NewFault(entitlement.KindTransport, op, pgx.ErrNoRows)
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return entitlement.Record{}, entitlement.NewFault(entitlement.KindTransport, op, err)
	}
	return rec, nil
}

func (s *RecordStore) publish(ctx context.Context, rec entitlement.Record, mutation string) {
	if s.feed == nil {
		return
	}
	event := "records." + entitlement.FeedScope + "." + mutation
	if err := s.feed.Publish(ctx, entitlement.FeedScope, []string{event}, rec); err != nil {
		s.log.WithError(err).Warn("record mutation publish failed")
	}
}

func scanRecord(rows pgx.Rows) (entitlement.Record, error) {
	var rec entitlement.Record
	var status string
	var planID, platform, notes *string
	err := rows.Scan(&rec.ID, &rec.Subject, &status, &planID, &platform, &notes, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return entitlement.Record{}, err
	}
	rec.Status = entitlement.ParseStatus(status)
	if planID != nil {
		rec.PlanID = *planID
	}
	if platform != nil {
		rec.PaymentPlatform = *platform
	}
	if notes != nil {
		rec.Notes = *notes
	}
	return rec, nil
}

// credentialRejected reports whether err is an authentication/authorization
// rejection (as opposed to transport trouble or a bad query).
func credentialRejected(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "28000", "28P01", "42501": // invalid auth, bad password, insufficient privilege
		return true
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
