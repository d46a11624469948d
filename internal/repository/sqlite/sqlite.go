// Package sqlite implements the repository interfaces on SQLite via
// modernc.org/sqlite (pure Go, no CGo). Tests run against ":memory:". The
// connection is wrapped in sqlx: structs scan via `db` tags, and sqlx.In
// expands IN (...) clauses for the batched genre fetch.
//
// All uniqueness rules (username, email, slug, one review per author+title)
// live in the schema as UNIQUE constraints. The methods in this package
// translate constraint violations into domain conflict errors so callers
// never see raw driver errors.
package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "modernc.org/sqlite"
)

// DB wraps a sqlx connection pool and implements every repository interface.
type DB struct {
	conn *sqlx.DB
}

// New opens the database at dbPath (":memory:" for tests), applies pragmas,
// and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// WAL lets reads proceed during a write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; the cascade and SET NULL
	// rules below depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// SQLite allows one writer anyway; a single pooled connection avoids
	// SQLITE_BUSY under concurrent writes and makes ":memory:" safe (each
	// pool connection would otherwise get its own empty in-memory DB).
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                     TEXT PRIMARY KEY,
			username               TEXT NOT NULL UNIQUE,
			email                  TEXT NOT NULL UNIQUE,
			role                   TEXT NOT NULL DEFAULT 'user',
			first_name             TEXT NOT NULL DEFAULT '',
			last_name              TEXT NOT NULL DEFAULT '',
			bio                    TEXT NOT NULL DEFAULT '',
			is_staff               INTEGER NOT NULL DEFAULT 0,
			confirmation_code_hash TEXT NOT NULL DEFAULT '',
			created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS categories (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS genres (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS titles (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			year        INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category_id TEXT REFERENCES categories(id) ON DELETE SET NULL
		);
		CREATE INDEX IF NOT EXISTS idx_titles_year_name ON titles(year, name);

		CREATE TABLE IF NOT EXISTS title_genres (
			title_id TEXT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			genre_id TEXT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			PRIMARY KEY (title_id, genre_id)
		);

		CREATE TABLE IF NOT EXISTS reviews (
			id        TEXT PRIMARY KEY,
			title_id  TEXT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			score     INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
			pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (author_id, title_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_title_pub ON reviews(title_id, pub_date);

		CREATE TABLE IF NOT EXISTS comments (
			id        TEXT PRIMARY KEY,
			review_id TEXT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_review_pub ON comments(review_id, pub_date);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// List pagination bounds shared by every repository method.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampList(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// sqliteConstraintCode is the primary result code for any constraint
// violation (SQLITE_CONSTRAINT).
const sqliteConstraintCode = 19

// isUniqueViolation reports whether err is a constraint violation touching
// the given qualified column ("users.username", "reviews.author_id", ...).
// The driver spells the message "UNIQUE constraint failed: <table>.<column>",
// which is stable enough to dispatch the conflicting field on.
func isUniqueViolation(err error, column string) bool {
	var serr *sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	if serr.Code()&0xff != sqliteConstraintCode {
		return false
	}
	return strings.Contains(serr.Error(), column)
}

// isConstraintErr reports whether err is any SQLite constraint violation.
func isConstraintErr(err error) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqliteConstraintCode
}
