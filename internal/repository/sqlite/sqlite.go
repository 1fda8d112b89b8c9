// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go port, so the binary needs no C toolchain.
// List-valued fields (tech stack, questions, category scores) are stored as
// JSON text columns; nothing ever queries inside them.
//
// dbPath examples:
//   - "data/interviews.db" → file-based database
//   - ":memory:"           → in-memory database, used by the tests
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/sakif/interview-me/internal/repository"
)

// DB wraps a sql.DB connection pool and hands out the per-collection stores.
type DB struct {
	conn *sql.DB
}

var _ repository.Store = (*DB)(nil)

// New opens the database, applies pragmas and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// every pooled connection to ":memory:" would get its own empty database
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
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

func (db *DB) Users() repository.UserRepository {
	return &userStore{conn: db.conn}
}

func (db *DB) Interviews() repository.InterviewRepository {
	return &interviewStore{conn: db.conn}
}

func (db *DB) Feedback() repository.FeedbackRepository {
	return &feedbackStore{conn: db.conn}
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			photo_url     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS interviews (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			role       TEXT NOT NULL,
			level      TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL,
			techstack  TEXT NOT NULL DEFAULT '[]',
			questions  TEXT NOT NULL DEFAULT '[]',
			finalized  INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_interviews_user_id ON interviews(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_interviews_finalized ON interviews(finalized, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating interviews table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id                    TEXT PRIMARY KEY,
			interview_id          TEXT NOT NULL REFERENCES interviews(id),
			user_id               TEXT NOT NULL REFERENCES users(id),
			total_score           INTEGER NOT NULL,
			category_scores       TEXT NOT NULL DEFAULT '[]',
			strengths             TEXT NOT NULL DEFAULT '[]',
			areas_for_improvement TEXT NOT NULL DEFAULT '[]',
			final_assessment      TEXT NOT NULL DEFAULT '',
			created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_feedback_interview_user ON feedback(interview_id, user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating feedback table: %w", err)
	}

	return nil
}

// encodeJSON marshals a list field for a TEXT column. nil becomes "[]".
func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
