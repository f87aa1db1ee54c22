// SQLite history storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/prompter/model"
)

// SqliteStore implements HistoryStore using SQLite. One database holds any
// number of sessions; a store reads and writes a single one.
type SqliteStore struct {
	db      *sql.DB
	session string
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path, session string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db, session)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(session string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db, session)
}

func newSqliteStore(db *sql.DB, session string) (*SqliteStore, error) {
	if session == "" {
		session = DefaultSession
	}
	store := &SqliteStore{db: db, session: session}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Session returns the session this store reads and writes.
func (s *SqliteStore) Session() string {
	return s.session
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			turn_index INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
			UNIQUE(session_id, turn_index)
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session
		ON turns(session_id, turn_index);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the turns of the session in one transaction.
func (s *SqliteStore) Save(ctx context.Context, history model.History) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (session_id) VALUES (?)", s.session); err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", s.session); err != nil {
		return fmt.Errorf("failed to clear old turns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO turns (session_id, turn_index, question, answer) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, turn := range history {
		if _, err := stmt.ExecContext(ctx, s.session, i, turn.Question, turn.Answer); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = datetime('now') WHERE session_id = ?",
		s.session); err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load returns the turns of the session, oldest first.
// Returns an empty history if the session doesn't exist.
func (s *SqliteStore) Load(ctx context.Context) (model.History, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT question, answer FROM turns WHERE session_id = ? ORDER BY turn_index ASC",
		s.session)
	if err != nil {
		return model.History{}, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	history := model.History{}
	for rows.Next() {
		var turn model.Turn
		if err := rows.Scan(&turn.Question, &turn.Answer); err != nil {
			return model.History{}, fmt.Errorf("failed to scan turn: %w", err)
		}
		history = append(history, turn)
	}

	if err := rows.Err(); err != nil {
		return model.History{}, fmt.Errorf("error iterating turns: %w", err)
	}
	return history, nil
}

// ListSessions lists all session IDs, most recently updated first.
func (s *SqliteStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM sessions ORDER BY updated_at DESC, session_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// Verify SqliteStore implements HistoryStore
var _ HistoryStore = (*SqliteStore)(nil)
