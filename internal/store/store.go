// Package store persists what the assistant learns between sessions: the
// filesystem paths of applications found by the search engine, the user's
// music library, and created reminders. Backed by SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the database at the given path, creating the directory
// and tables as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS objects (
		name TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS music (
		title TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		message TEXT,
		start_at DATETIME NOT NULL,
		duration_minutes INTEGER DEFAULT 0,
		location TEXT,
		alert_minutes_before INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SaveObjectPath records where an application or file was found, replacing
// any previous entry for the same name.
func (s *Store) SaveObjectPath(name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO objects (name, path, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET path = excluded.path, updated_at = CURRENT_TIMESTAMP`,
		name, path)
	if err != nil {
		return fmt.Errorf("failed to save object path: %w", err)
	}
	return nil
}

// ObjectPath returns the stored path for a name. ok is false when unknown.
func (s *Store) ObjectPath(name string) (path string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	err = s.db.QueryRow(`SELECT path FROM objects WHERE name = ?`, name).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query object path: %w", err)
	}
	return path, true, nil
}

// SaveTrack records a music file under its title.
func (s *Store) SaveTrack(title, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO music (title, path, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(title) DO UPDATE SET path = excluded.path, updated_at = CURRENT_TIMESTAMP`,
		title, path)
	if err != nil {
		return fmt.Errorf("failed to save track: %w", err)
	}
	return nil
}

// TrackPath returns the stored path for an exact title.
func (s *Store) TrackPath(title string) (path string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	err = s.db.QueryRow(`SELECT path FROM music WHERE title = ?`, title).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query track: %w", err)
	}
	return path, true, nil
}

// Titles returns every stored music title, for fuzzy lookup by the caller.
func (s *Store) Titles() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT title FROM music ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// Reminder is one stored reminder.
type Reminder struct {
	ID                 int64
	Name               string
	Message            string
	StartAt            time.Time
	DurationMinutes    int
	Location           string
	AlertMinutesBefore int
}

// SaveReminder persists a reminder and returns its ID.
func (s *Store) SaveReminder(r Reminder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`
		INSERT INTO reminders (name, message, start_at, duration_minutes, location, alert_minutes_before)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Name, r.Message, r.StartAt.UTC(), r.DurationMinutes, r.Location, r.AlertMinutesBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to save reminder: %w", err)
	}
	return res.LastInsertId()
}

// Reminders returns all stored reminders, soonest first.
func (s *Store) Reminders() ([]Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`
		SELECT id, name, message, start_at, duration_minutes, location, alert_minutes_before
		FROM reminders ORDER BY start_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.Name, &r.Message, &r.StartAt,
			&r.DurationMinutes, &r.Location, &r.AlertMinutesBefore); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
