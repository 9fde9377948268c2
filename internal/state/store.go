package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and writes the whole state document. Writes are full
// overwrites; the last writer wins.
type Store interface {
	Read(ctx context.Context) (*State, error)
	Write(ctx context.Context, st *State) error
}

// FileStore keeps the state in a single JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Read loads the state file. A missing or empty file is an empty state.
func (f *FileStore) Read(ctx context.Context) (*State, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file '%s': %w", f.Path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("failed to parse state file '%s': %w", f.Path, err)
	}
	return st, nil
}

// Write replaces the state file. The document goes to a temporary file in
// the same directory first and is renamed over the target, so a crash never
// leaves a half-written state behind.
func (f *FileStore) Write(ctx context.Context, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file in '%s': %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace state file '%s': %w", f.Path, err)
	}
	return nil
}

// MemoryStore keeps the state in memory only. It is used when no state path
// is configured, and by tests. Write stores a serialized copy so later
// mutations of the caller's state are not visible until the next Write.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	writes int
}

// NewMemoryStore returns a store seeded with st (which may be nil).
func NewMemoryStore(st *State) *MemoryStore {
	m := &MemoryStore{}
	if st != nil {
		m.data, _ = json.Marshal(st)
	}
	return m
}

func (m *MemoryStore) Read(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := New()
	if m.data == nil {
		return st, nil
	}
	if err := json.Unmarshal(m.data, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (m *MemoryStore) Write(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.writes++
	return nil
}

// WriteCount returns how many times Write succeeded.
func (m *MemoryStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
