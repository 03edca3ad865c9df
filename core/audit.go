package core

import (
	"context"
)

// OverrideAuditLogger records admin override operations to an external sink
// (e.g., ClickHouse or an append-only table). Implementations should be
// non-blocking and best-effort; the engine never fails an operation because
// its audit write failed.
type OverrideAuditLogger interface {
	LogOverride(ctx context.Context, op string, subject string, actor string, note string) error
}
