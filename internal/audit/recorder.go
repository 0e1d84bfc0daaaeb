package audit

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"
)

// LogRecorder prints events when no database is configured.
type LogRecorder struct {
	logger *log.Logger
}

func NewLogRecorder(logger *log.Logger) *LogRecorder {
	if logger == nil {
		return nil
	}
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) Record(ctx context.Context, event Event) error {
	if l == nil {
		return nil
	}
	l.logger.Printf("dataset event %s tenant=%s dataset=%s by=%s(%s) from=%s detail=%s",
		event.Kind, event.TenantID, event.DatasetID, event.Caller.Subject, event.Caller.Role, event.Caller.Addr, event.Detail)
	return nil
}

// PostgresRecorder appends events to the dataset_events table.
type PostgresRecorder struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	if db == nil {
		return nil
	}
	return &PostgresRecorder{db: db, now: time.Now}
}

const insertEventSQL = `
INSERT INTO dataset_events (
	id, tenant_id, dataset_id, kind, subject, role,
	client_addr, user_agent, detail, detail_digest, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

func (p *PostgresRecorder) Record(ctx context.Context, event Event) error {
	if p == nil || p.db == nil {
		return errors.New("audit: postgres recorder has no database")
	}
	event = event.stamp(p.now())
	var detail any
	if len(event.Detail) > 0 {
		detail = []byte(event.Detail)
	}
	_, err := p.db.ExecContext(ctx, insertEventSQL,
		event.ID, event.TenantID, event.DatasetID, string(event.Kind),
		event.Caller.Subject, event.Caller.Role, event.Caller.Addr, event.Caller.UserAgent,
		detail, event.Digest, event.RecordedAt)
	return err
}
