package monitor

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// DB is the SQLite-backed Recorder. It keeps an append-only event log
// per session for after-the-fact inspection.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the monitoring database path under the data dir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "monitor.db")
}

// Open opens (and migrates) the monitoring database at the given
// path, creating parent directories as needed. WAL mode is enabled
// for concurrent readers.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// migrate applies all pending schema migrations.
func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Events},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Events = `
CREATE TABLE IF NOT EXISTS orchestration_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	event TEXT NOT NULL,
	detail TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orchestration_events_session ON orchestration_events(session_id);

CREATE TABLE IF NOT EXISTS task_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	event TEXT NOT NULL,
	detail TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_events_session ON task_events(session_id);
CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(session_id, task_id);
`

// OnOrchestrationStart records a session start event.
func (db *DB) OnOrchestrationStart(sessionID string, taskCount int) error {
	return db.insertSessionEvent(sessionID, "orchestration_start", fmt.Sprintf("%d tasks", taskCount))
}

// OnOrchestrationComplete records the session's final status.
func (db *DB) OnOrchestrationComplete(sessionID string, status models.SessionStatus) error {
	return db.insertSessionEvent(sessionID, "orchestration_complete", string(status))
}

// OnTaskStart records a task dispatch.
func (db *DB) OnTaskStart(sessionID, taskID, agentType string) error {
	return db.insertTaskEvent(sessionID, taskID, "task_start", agentType)
}

// OnTaskComplete records a task outcome.
func (db *DB) OnTaskComplete(sessionID, taskID string, state models.TaskState, summary string) error {
	return db.insertTaskEvent(sessionID, taskID, "task_complete", fmt.Sprintf("%s: %s", state, summary))
}

func (db *DB) insertSessionEvent(sessionID, event, detail string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO orchestration_events (session_id, event, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, event, detail, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record %s: %w", event, err)
	}
	return nil
}

func (db *DB) insertTaskEvent(sessionID, taskID, event, detail string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO task_events (session_id, task_id, event, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, taskID, event, detail, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record %s: %w", event, err)
	}
	return nil
}

// Event is one recorded lifecycle event.
type Event struct {
	SessionID string
	TaskID    string
	Event     string
	Detail    string
	CreatedAt time.Time
}

// SessionEvents returns the full event history for a session in
// insertion order: orchestration events first, then task events.
func (db *DB) SessionEvents(sessionID string) ([]Event, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT session_id, '' AS task_id, event, detail, created_at FROM orchestration_events WHERE session_id = ?
		UNION ALL
		SELECT session_id, task_id, event, detail, created_at FROM task_events WHERE session_id = ?
		ORDER BY created_at, event
	`, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detail sql.NullString
		var createdAt string
		if err := rows.Scan(&e.SessionID, &e.TaskID, &e.Event, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		e.CreatedAt, _ = parseTime(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// PurgeOldEvents deletes events older than the given duration. Returns
// the number of rows deleted.
func (db *DB) PurgeOldEvents(olderThan time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))

	var total int64
	for _, table := range []string{"orchestration_events", "task_events"} {
		result, err := db.conn.Exec("DELETE FROM "+table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", table, err)
		}
		count, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("get rows affected: %w", err)
		}
		total += count
	}
	return total, nil
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
