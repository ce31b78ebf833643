// Package events records document lifecycle events (uploads,
// conversions, compositions) in a local sqlite database. The event
// log is an operational trail, not the document store: losing it
// never affects serving.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Event types recorded by the service.
const (
	TypeUpload    = "document.upload"
	TypeProcess   = "document.process"
	TypeConvert   = "document.convert"
	TypePageImage = "document.page_image"
	TypeOrganize  = "document.organize"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_events (
    event_id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    document_id TEXT,
    file_type TEXT,
    detail TEXT,
    success INTEGER NOT NULL DEFAULT 1,
    duration_ms INTEGER,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_document_events_type
    ON document_events(event_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_document_events_doc
    ON document_events(document_id, created_at DESC);
`

// Event is one recorded lifecycle event.
type Event struct {
	Type       string
	DocumentID string
	FileType   string
	Detail     string
	Success    bool
	Duration   time.Duration
}

// Log writes events and handles retention cleanup. A nil *Log is
// valid and drops everything, so callers never need to branch on
// whether event logging is configured.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the event database at path.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open event db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init event db %s: %w", path, err)
	}
	return &Log{db: db, logger: logger}, nil
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// Record stores one event. Errors are logged but never propagate, so
// a failing event store cannot break request handling.
func (l *Log) Record(ctx context.Context, ev Event) {
	if l == nil {
		return
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO document_events (
			event_id, event_type, document_id, file_type, detail, success, duration_ms
		) VALUES (?,?,?,?,?,?,?)`,
		uuid.NewString(), ev.Type, ev.DocumentID, ev.FileType, ev.Detail,
		ev.Success, ev.Duration.Milliseconds())
	if err != nil {
		l.logger.Error("event log write failed", "error", err, "event_type", ev.Type)
	}
}

// Recent returns the newest events for a document, newest first.
func (l *Log) Recent(ctx context.Context, documentID string, limit int) ([]Event, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_type, document_id, file_type, detail, success, duration_ms
		FROM document_events
		WHERE document_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var durationMS int64
		if err := rows.Scan(&ev.Type, &ev.DocumentID, &ev.FileType, &ev.Detail, &ev.Success, &durationMS); err != nil {
			return nil, err
		}
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, ev)
	}
	return out, rows.Err()
}

// StartRetention enforces the retention window: one cleanup right away,
// then one per interval until ctx is cancelled. Cleanup failures are
// logged and retried at the next tick.
func (l *Log) StartRetention(ctx context.Context, days int, interval time.Duration) {
	if l == nil || days <= 0 {
		return
	}
	if err := l.Cleanup(ctx, days); err != nil {
		l.logger.Warn("event cleanup failed", "error", err)
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.Cleanup(ctx, days); err != nil {
					l.logger.Warn("event cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Cleanup deletes events older than the retention window. Zero or
// negative days disables cleanup.
func (l *Log) Cleanup(ctx context.Context, days int) error {
	if l == nil || days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := l.db.ExecContext(ctx, "DELETE FROM document_events WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("event cleanup: %w", err)
	}
	return nil
}
