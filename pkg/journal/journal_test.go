package journal

import (
	"path/filepath"
	"testing"

	"github.com/visionkit/go-headtrack/pkg/headtrack"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecorder_JournalsEvents(t *testing.T) {
	db := openTestDB(t)

	rec, err := db.NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	if rec.SessionID() == "" {
		t.Fatal("empty session ID")
	}

	rec.Emit(headtrack.StatusDetecting)
	rec.Emit(headtrack.StatusFound)
	rec.Emit(headtrack.StatusStopped)
	rec.Close()

	events, err := db.Events(rec.SessionID())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []string{"detecting", "found", "stopped"}
	if len(events) != len(want) {
		t.Fatalf("events: got %d, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Status != want[i] {
			t.Errorf("event %d: got %q, want %q", i, e.Status, want[i])
		}
	}
}

func TestRecorder_JournalsPoses(t *testing.T) {
	db := openTestDB(t)

	rec, err := db.NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	if err := rec.RecordPose(headtrack.Position{X: 1, Y: -2, Z: 60}); err != nil {
		t.Fatalf("RecordPose: %v", err)
	}
	if err := rec.RecordPose(headtrack.Position{X: 2, Y: -1, Z: 58}); err != nil {
		t.Fatalf("RecordPose: %v", err)
	}

	n, err := db.PoseCount(rec.SessionID())
	if err != nil {
		t.Fatalf("PoseCount: %v", err)
	}
	if n != 2 {
		t.Errorf("pose count: got %d, want 2", n)
	}
}

func TestRecorder_CloseFlushesQueuedEvents(t *testing.T) {
	db := openTestDB(t)

	rec, err := db.NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	for i := 0; i < 10; i++ {
		rec.Emit(headtrack.StatusDetecting)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Emissions after Close are dropped, not a panic.
	rec.Emit(headtrack.StatusFound)
	rec.Close()

	events, err := db.Events(rec.SessionID())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 10 {
		t.Errorf("flushed events: got %d, want 10", len(events))
	}
}

func TestDB_SessionsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	first, _ := db.NewRecorder()
	second, _ := db.NewRecorder()

	ids, err := db.Sessions(10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("sessions: got %d, want 2", len(ids))
	}
	// Same-second timestamps tie; both IDs must be present either way.
	seen := map[string]bool{ids[0]: true, ids[1]: true}
	if !seen[first.SessionID()] || !seen[second.SessionID()] {
		t.Errorf("missing session IDs in %v", ids)
	}
}
