// Package history keeps a local SQLite log of handled commands.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const currentSchemaVersion = 2

// Entry is one handled command.
type Entry struct {
	ID      int64
	Session string // one id per assistant run
	Heard   string // normalized transcript
	Kind    string
	Target  string
	Reply   string
	Error   string
	At      time.Time
}

// Store records entries. A Store opened with an empty path is disabled:
// Record is a no-op and Recent returns nothing.
type Store struct {
	db      *sql.DB
	session string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	s := &Store{session: uuid.NewString()}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}

	slog.Debug("History opened", "path", path, "session", s.session)
	return s, nil
}

// Session returns the id stamped on entries recorded through this Store.
func (s *Store) Session() string {
	return s.session
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		version = 0
	}
	if version >= currentSchemaVersion {
		return nil
	}

	migrations := []func(*sql.DB) error{
		migrateV1,
		migrateV2,
	}
	for i := version; i < len(migrations); i++ {
		if err := migrations[i](s.db); err != nil {
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		slog.Debug("History schema migrated", "version", i+1)
	}
	return nil
}

func migrateV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
		CREATE TABLE IF NOT EXISTS commands (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			heard   TEXT NOT NULL,
			kind    TEXT NOT NULL,
			target  TEXT NOT NULL DEFAULT '',
			reply   TEXT NOT NULL DEFAULT '',
			at      INTEGER NOT NULL
		);
		INSERT INTO schema_version (version) VALUES (1);
	`)
	return err
}

// migrateV2 adds the error column and an index for Recent.
func migrateV2(db *sql.DB) error {
	_, err := db.Exec(`
		ALTER TABLE commands ADD COLUMN error TEXT NOT NULL DEFAULT '';
		CREATE INDEX IF NOT EXISTS idx_commands_at ON commands(at);
		INSERT INTO schema_version (version) VALUES (2);
	`)
	return err
}

// Record stores e. Session and At default to this Store's session and now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if !s.Enabled() {
		return nil
	}
	if e.Session == "" {
		e.Session = s.session
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (session, heard, kind, target, reply, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Session, e.Heard, e.Kind, e.Target, e.Reply, e.Error, e.At.UnixNano())
	if err != nil {
		return fmt.Errorf("history: recording entry: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if !s.Enabled() || n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, heard, kind, target, reply, error, at FROM commands ORDER BY at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: querying entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.ID, &e.Session, &e.Heard, &e.Kind, &e.Target, &e.Reply, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database. Safe on a disabled Store.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
