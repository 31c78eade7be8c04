package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/studylog/internal/clock"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store is the SQLite-backed Repository.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

var _ Repository = (*Store)(nil)

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, clock: clock.SystemClock{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory SQLite store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

// WithClock replaces the clock used for server-assigned timestamps.
func (s *Store) WithClock(c clock.Clock) *Store {
	s.clock = c
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

// References between tables are deliberately not foreign keys: deleting a subject or
// todo leaves sessions pointing at it.
func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS subjects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		color       TEXT NOT NULL DEFAULT '#FF6B9D',
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todos (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		completed   INTEGER NOT NULL DEFAULT 0,
		subject_id  TEXT,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);

	CREATE TABLE IF NOT EXISTS sessions (
		id                   TEXT PRIMARY KEY,
		subject_id           TEXT NOT NULL,
		topic                TEXT NOT NULL,
		todo_id              TEXT,
		duration_minutes     INTEGER NOT NULL DEFAULT 0 CHECK (duration_minutes >= 0),
		work_sessions        INTEGER NOT NULL DEFAULT 1,
		productivity_rating  INTEGER NOT NULL CHECK (productivity_rating BETWEEN 1 AND 5),
		notes                TEXT NOT NULL DEFAULT '',
		completed_at         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_completed ON sessions(completed_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_subject   ON sessions(subject_id);

	CREATE TABLE IF NOT EXISTS settings (
		id                         INTEGER PRIMARY KEY CHECK (id = 1),
		work_duration              INTEGER NOT NULL,
		short_break_duration       INTEGER NOT NULL,
		long_break_duration        INTEGER NOT NULL,
		sessions_before_long_break INTEGER NOT NULL,
		sound_enabled              INTEGER NOT NULL,
		dark_mode                  INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// DefaultDBPath returns ~/.config/studylog/studylog.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "studylog", "studylog.db"), nil
}
