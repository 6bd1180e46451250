package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	ord INTEGER NOT NULL,
	id TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	category TEXT,
	pos_x REAL NOT NULL DEFAULT 0,
	pos_y REAL NOT NULL DEFAULT 0,
	data TEXT,
	PRIMARY KEY (workflow_id, ord)
);
CREATE TABLE IF NOT EXISTS edges (
	workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
	ord INTEGER NOT NULL,
	id TEXT NOT NULL DEFAULT '',
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	source_handle TEXT,
	target_handle TEXT,
	PRIMARY KEY (workflow_id, ord)
);
CREATE TABLE IF NOT EXISTS attempts (
	id TEXT PRIMARY KEY,
	workflow_id TEXT,
	exercise_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	score INTEGER NOT NULL,
	is_valid INTEGER NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	feedback TEXT,
	suggestions TEXT,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_exercise ON attempts(exercise_id, created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, created_at);
`

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
	now  func() time.Time
}

// OpenDB opens (creating if needed) a SQLite database with WAL mode and
// foreign keys enabled, and applies the schema
func OpenDB(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// pragmas in the DSN apply to every pooled connection
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every :memory: connection is a separate database
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn, Path: path, now: time.Now}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) nowMs() int64 {
	return d.now().UnixMilli()
}
