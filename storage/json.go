package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/richinex/prompter/model"
)

// JSONFileStore keeps the history in a JSON file holding an array of
// [question, answer] pairs.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore creates a store backed by the file at path. The file is
// created on first Save.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the backing file.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the history. A missing file yields an empty history. A corrupt
// file yields an empty history together with the decoding error.
func (s *JSONFileStore) Load(ctx context.Context) (model.History, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.History{}, nil
	}
	if err != nil {
		return model.History{}, fmt.Errorf("failed to read history %s: %w", s.path, err)
	}

	var history model.History
	if err := json.Unmarshal(data, &history); err != nil {
		return model.History{}, fmt.Errorf("failed to parse history %s: %w", s.path, err)
	}
	if history == nil {
		history = model.History{}
	}
	return history, nil
}

// Save writes the whole history to a temporary file in the same directory
// and renames it over the previous one.
func (s *JSONFileStore) Save(ctx context.Context, history model.History) error {
	if history == nil {
		history = model.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace history %s: %w", s.path, err)
	}
	return nil
}

var _ HistoryStore = (*JSONFileStore)(nil)
