// Package storage persists conversation history.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory, JSON file and SQLite without API changes
// - Each storage implementation encapsulates its own data structures and protocols

package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/richinex/prompter/model"
)

// DefaultSession is the session used by SQLite stores when none is given.
const DefaultSession = "default"

// HistoryStore loads and saves the whole conversation history.
type HistoryStore interface {
	// Load returns the stored history, empty (not an error) when nothing
	// has been stored yet.
	Load(ctx context.Context) (model.History, error)

	// Save replaces the stored history.
	Save(ctx context.Context, history model.History) error
}

// Disabled reports whether path is one of the sentinels that turn
// persistence off.
func Disabled(path string) bool {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "", "n", "none":
		return true
	}
	return false
}

// Open returns the store for path: SQLite for .db and .sqlite files, a
// JSON file otherwise. It returns nil, nil when persistence is disabled.
// session only applies to SQLite stores.
func Open(path, session string) (HistoryStore, error) {
	if Disabled(path) {
		return nil, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		store, err := OpenSqlite(path, session)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return NewJSONFileStore(path), nil
	}
}
