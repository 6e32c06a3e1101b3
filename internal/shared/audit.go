package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit verbs recorded against purchase orders and receipts.
const (
	AuditVerbCreated   = "created"
	AuditVerbUpdated   = "updated"
	AuditVerbSubmitted = "submitted"
	AuditVerbApproved  = "approved"
	AuditVerbCancelled = "cancelled"
	AuditVerbDeleted   = "deleted"
	AuditVerbReceived  = "received"
	AuditVerbEmailed   = "emailed"
)

// AuditEntry represents a record stored in audit_entries.
type AuditEntry struct {
	ID      int64
	ActorID int64
	Verb    string
	LPOID   int64
	GRNID   int64
	Payload map[string]any
	At      time.Time
}

// AuditLogger writes and reads records in audit_entries.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Verb == "" {
		return errors.New("audit entry requires a verb")
	}
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_entries (actor_id, verb, lpo_id, grn_id, payload, created_at)
		 VALUES (NULLIF($1, 0), $2, NULLIF($3, 0), NULLIF($4, 0), $5, COALESCE(NULLIF($6, '0001-01-01T00:00:00Z'::timestamptz), NOW()))`,
		entry.ActorID, entry.Verb, entry.LPOID, entry.GRNID, payloadJSON, entry.At)
	return err
}

// HasVerb reports whether the purchase order already carries an entry with
// the given verb. Used to keep post-approval side effects idempotent.
func (l *AuditLogger) HasVerb(ctx context.Context, lpoID int64, verb string) (bool, error) {
	if l == nil {
		return false, errors.New("audit logger not initialised")
	}
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audit_entries WHERE lpo_id = $1 AND verb = $2)`,
		lpoID, verb).Scan(&exists)
	return exists, err
}
