package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndQueryEvents(t *testing.T) {
	db := openTestDB(t)

	if err := db.OnOrchestrationStart("sess-1", 3); err != nil {
		t.Fatalf("orchestration start: %v", err)
	}
	if err := db.OnTaskStart("sess-1", "T1", "builder"); err != nil {
		t.Fatalf("task start: %v", err)
	}
	if err := db.OnTaskComplete("sess-1", "T1", models.TaskStateCompleted, "done"); err != nil {
		t.Fatalf("task complete: %v", err)
	}
	if err := db.OnOrchestrationComplete("sess-1", models.SessionCompleted); err != nil {
		t.Fatalf("orchestration complete: %v", err)
	}

	// Events for another session must not leak in.
	if err := db.OnTaskStart("sess-2", "X1", "reviewer"); err != nil {
		t.Fatalf("other session: %v", err)
	}

	events, err := db.SessionEvents("sess-1")
	if err != nil {
		t.Fatalf("session events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	for _, e := range events {
		if e.SessionID != "sess-1" {
			t.Errorf("event from wrong session: %+v", e)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := db.OnOrchestrationStart("s", 1); err != nil {
		t.Fatalf("record: %v", err)
	}
	db.Close()

	// Re-opening migrates again and must keep existing rows.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	events, err := db.SessionEvents("s")
	if err != nil {
		t.Fatalf("session events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event to survive reopen, got %d", len(events))
	}
}

func TestPurgeOldEvents(t *testing.T) {
	db := openTestDB(t)

	if err := db.OnTaskStart("s", "T1", "builder"); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Nothing is older than an hour.
	count, err := db.PurgeOldEvents(time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 purged, got %d", count)
	}

	// Everything is older than a negative cutoff in the future.
	count, err = db.PurgeOldEvents(-time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 purged, got %d", count)
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}

	if err := r.OnOrchestrationStart("s", 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := r.OnTaskComplete("s", "t", models.TaskStateFailed, "boom"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
