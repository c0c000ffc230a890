// Package store keeps a SQLite journal of input sessions: which application
// opened a session, when, and how many keys and commits it saw. Typed text
// is never stored.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"weasel/internal/ime"
)

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID        int64         `json:"id"`
	SessionID ime.SessionID `json:"session_id"`
	App       string        `json:"app"`
	Started   time.Time     `json:"started"`
	Ended     *time.Time    `json:"ended,omitempty"`
	Keys      int           `json:"keys"`
	Handled   int           `json:"handled"`
	Commits   int           `json:"commits"`
}

// MaintenanceRecord is one maintenance transition.
type MaintenanceRecord struct {
	At       time.Time `json:"at"`
	Disabled bool      `json:"disabled"`
}

// Journal records session activity. It implements ime.Observer; write
// failures are logged, not returned.
type Journal struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

var _ ime.Observer = (*Journal)(nil)

// Open opens or creates the journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, log: logger, now: time.Now}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) exec(op string, query string, args ...any) {
	if _, err := j.db.Exec(query, args...); err != nil {
		j.log.Warn("journal write failed", "op", op, "error", err)
	}
}

// SessionAdded opens a row for the session.
func (j *Journal) SessionAdded(id ime.SessionID, app string) {
	j.exec("session_added",
		"INSERT INTO sessions (session_id, app, started_ns) VALUES (?, ?, ?)",
		id, app, j.now().UnixNano())
}

// SessionRemoved closes the session's open row.
func (j *Journal) SessionRemoved(id ime.SessionID) {
	j.exec("session_removed",
		"UPDATE sessions SET ended_ns = ? WHERE session_id = ? AND ended_ns IS NULL",
		j.now().UnixNano(), id)
}

// KeyProcessed counts a key event against the session's open row.
func (j *Journal) KeyProcessed(id ime.SessionID, handled, committed bool) {
	j.exec("key_processed", `
		UPDATE sessions
		SET keys = keys + 1, handled = handled + ?, commits = commits + ?
		WHERE session_id = ? AND ended_ns IS NULL`,
		btoi(handled), btoi(committed), id)
}

// MaintenanceChanged records the transition. Entering maintenance ends
// every open session because the engine drops them.
func (j *Journal) MaintenanceChanged(disabled bool) {
	now := j.now().UnixNano()
	j.exec("maintenance",
		"INSERT INTO maintenance (at_ns, disabled) VALUES (?, ?)",
		now, btoi(disabled))
	if disabled {
		j.exec("maintenance",
			"UPDATE sessions SET ended_ns = ? WHERE ended_ns IS NULL", now)
	}
}

// ResponseDropped is not journaled; the metrics registry counts drops.
func (j *Journal) ResponseDropped(ime.SessionID) {}

// Recent returns up to limit sessions, newest first.
func (j *Journal) Recent(limit int) ([]SessionRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, session_id, app, started_ns, ended_ns, keys, handled, commits
		FROM sessions
		ORDER BY started_ns DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.App, &started, &ended, &r.Keys, &r.Handled, &r.Commits); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.Started = time.Unix(0, started)
		if ended.Valid {
			t := time.Unix(0, ended.Int64)
			r.Ended = &t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Maintenance returns up to limit maintenance transitions, newest first.
func (j *Journal) Maintenance(limit int) ([]MaintenanceRecord, error) {
	rows, err := j.db.Query(
		"SELECT at_ns, disabled FROM maintenance ORDER BY at_ns DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query maintenance: %w", err)
	}
	defer rows.Close()

	var records []MaintenanceRecord
	for rows.Next() {
		var at int64
		var r MaintenanceRecord
		if err := rows.Scan(&at, &r.Disabled); err != nil {
			return nil, fmt.Errorf("scan maintenance: %w", err)
		}
		r.At = time.Unix(0, at)
		records = append(records, r)
	}
	return records, rows.Err()
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
