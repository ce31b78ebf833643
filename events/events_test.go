package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "events.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.Record(ctx, Event{Type: TypeUpload, DocumentID: "d1", FileType: "pdf", Success: true})
	l.Record(ctx, Event{Type: TypeProcess, DocumentID: "d1", FileType: "pdf", Success: true, Duration: 1500 * time.Millisecond})
	l.Record(ctx, Event{Type: TypeUpload, DocumentID: "d2", FileType: "image", Success: false})

	got, err := l.Recent(ctx, "d1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(d1) = %d events, want 2", len(got))
	}
	// Newest first.
	if got[0].Type != TypeProcess {
		t.Errorf("first event = %s, want %s", got[0].Type, TypeProcess)
	}
	if got[0].Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got[0].Duration)
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	ctx := context.Background()
	l.Record(ctx, Event{Type: TypeUpload})
	l.StartRetention(ctx, 30, time.Hour)
	if err := l.Cleanup(ctx, 30); err != nil {
		t.Fatal(err)
	}
	if got, err := l.Recent(ctx, "d1", 10); err != nil || got != nil {
		t.Fatalf("Recent on nil log = %v, %v", got, err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStartRetentionRunsImmediateCleanup(t *testing.T) {
	l := openTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Record(ctx, Event{Type: TypeUpload, DocumentID: "d1", Success: true})
	if _, err := l.db.Exec("UPDATE document_events SET created_at = created_at - 90*86400 WHERE event_type = ?", TypeUpload); err != nil {
		t.Fatal(err)
	}
	l.Record(ctx, Event{Type: TypeProcess, DocumentID: "d1", Success: true})

	// The first cleanup happens synchronously at start, before the
	// periodic ticker takes over.
	l.StartRetention(ctx, 30, time.Hour)

	got, err := l.Recent(ctx, "d1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != TypeProcess {
		t.Fatalf("after retention start = %+v, want only the recent event", got)
	}
}

func TestCleanup(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.Record(ctx, Event{Type: TypeUpload, DocumentID: "d1", Success: true})
	// Backdate the row beyond the retention window.
	if _, err := l.db.Exec("UPDATE document_events SET created_at = created_at - 90*86400"); err != nil {
		t.Fatal(err)
	}
	l.Record(ctx, Event{Type: TypeProcess, DocumentID: "d1", Success: true})

	if err := l.Cleanup(ctx, 30); err != nil {
		t.Fatal(err)
	}
	got, err := l.Recent(ctx, "d1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != TypeProcess {
		t.Fatalf("after cleanup = %+v, want only the recent event", got)
	}
}
