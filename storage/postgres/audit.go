package postgresstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// AuditLog is the pgx-backed core.OverrideAuditLogger. Every admin override
// lands as one immutable row; there is no update or delete path.
type AuditLog struct {
	pool   *pgxpool.Pool
	schema string
	log    logrus.FieldLogger
}

// NewAuditLog creates an audit sink on pool. Empty schema defaults to
// "billing".
func NewAuditLog(pool *pgxpool.Pool, schema string, log logrus.FieldLogger) *AuditLog {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "billing"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuditLog{pool: pool, schema: s, log: log}
}

// LogOverride appends one override entry.
func (a *AuditLog) LogOverride(ctx context.Context, op, subject, actor, note string) error {
	query := `INSERT INTO ` + a.schema + `.entitlement_audit
		(id, op, subject, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`
	_, err := a.pool.Exec(ctx, query, uuid.NewString(), op, subject, actor, note)
	if err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"op": op, "subject": subject}).
			Warn("audit insert failed")
	}
	return err
}
