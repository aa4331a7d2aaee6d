// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — a single file, no separate server to run.
// For a single-instance auth service that's all we need, and ":memory:"
// databases make the repository tests fast and hermetic.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and complicates
// cross-compilation. modernc.org/sqlite is a pure Go translation of SQLite —
// works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. New creates it, Close releases it; the
// server owns the lifecycle. The repository interfaces are implemented by
// the UserDB and RefreshTokenDB views returned from Users and RefreshTokens
// — both share this pool.
type DB struct {
	conn *sql.DB
}

// Users returns the UserRepository view over this database.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// RefreshTokens returns the RefreshTokenRepository view over this database.
func (db *DB) RefreshTokens() *RefreshTokenDB {
	return &RefreshTokenDB{conn: db.conn}
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/gitgate.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open doesn't actually connect; Ping surfaces a bad path or
	// permissions problem immediately instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — without it
	// SQLite locks the whole database per write, which stalls a web server.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. We rely on the
	// refresh_tokens → users cascade, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	// github_id is UNIQUE — each GitHub account maps to exactly one row,
	// which is what makes the upsert-by-external-id contract hold.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			github_id     TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			last_login_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// token_hash is a bcrypt digest — the raw refresh token is never stored.
	// Deleting a user cascades to their outstanding sessions.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating refresh_tokens table: %w", err)
	}

	return nil
}
