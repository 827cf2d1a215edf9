// Package journal persists session lifecycle events and pose estimates
// to sqlite for offline analysis of tracking behavior.
package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/visionkit/go-headtrack/internal/log"
	"github.com/visionkit/go-headtrack/pkg/headtrack"
)

// DB is a session journal backed by sqlite.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) a journal at path. ":memory:" works
// for throwaway journals.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS events (
			session_id TEXT,
			status TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS poses (
			session_id TEXT,
			x DOUBLE,
			y DOUBLE,
			z DOUBLE,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	return &DB{db}, nil
}

// Recorder journals one tracking session. It satisfies
// headtrack.StatusSink so it can be fanned in next to the dashboard;
// writes happen on the recorder's own goroutine so Emit never stalls
// the session's poll loop on disk latency.
type Recorder struct {
	db        *DB
	sessionID string

	mu     sync.Mutex
	closed bool
	events chan headtrack.Status
	done   chan struct{}
}

const emitBuffer = 64

// NewRecorder registers a new session row and returns its recorder.
// Call Close to flush queued events when the session ends.
func (db *DB) NewRecorder() (*Recorder, error) {
	id := uuid.NewString()
	if _, err := db.Exec("INSERT INTO sessions (session_id) VALUES (?)", id); err != nil {
		return nil, fmt.Errorf("registering session: %w", err)
	}
	r := &Recorder{
		db:        db,
		sessionID: id,
		events:    make(chan headtrack.Status, emitBuffer),
		done:      make(chan struct{}),
	}
	go r.drain()
	return r, nil
}

// SessionID returns the journaled session's identity.
func (r *Recorder) SessionID() string { return r.sessionID }

// Emit queues one status transition for the write goroutine. It never
// blocks: a full queue drops the event, and write errors are swallowed,
// because a sink must not fail the session over a full disk.
func (r *Recorder) Emit(status headtrack.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- status:
	default:
		log.Debug("journal event queue full, dropping", "status", string(status))
	}
}

func (r *Recorder) drain() {
	defer close(r.done)
	for status := range r.events {
		if _, err := r.db.Exec("INSERT INTO events (session_id, status) VALUES (?, ?)",
			r.sessionID, string(status)); err != nil {
			log.Debug("journal event write failed", "error", err)
		}
	}
}

// Close flushes queued events and stops the write goroutine. Emissions
// after Close are dropped. Idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	<-r.done
	return nil
}

// RecordPose journals one pose estimate.
func (r *Recorder) RecordPose(p headtrack.Position) error {
	_, err := r.db.Exec("INSERT INTO poses (session_id, x, y, z) VALUES (?, ?, ?, ?)",
		r.sessionID, p.X, p.Y, p.Z)
	return err
}

// Event is one journaled status transition.
type Event struct {
	SessionID string
	Status    string
	Timestamp time.Time
}

// Events returns a session's status transitions in arrival order.
func (db *DB) Events(sessionID string) ([]Event, error) {
	rows, err := db.Query(
		"SELECT session_id, status, timestamp FROM events WHERE session_id = ? ORDER BY rowid",
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.SessionID, &e.Status, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PoseCount returns how many pose rows a session journaled.
func (db *DB) PoseCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM poses WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}

// Sessions returns the most recent session IDs, newest first.
func (db *DB) Sessions(limit int) ([]string, error) {
	rows, err := db.Query("SELECT session_id FROM sessions ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
