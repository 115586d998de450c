// Package session reads and writes the persisted auth blob and exposes
// point-in-time snapshots to every fetcher. Malformed or missing storage is
// reported as errs.ErrNotAuthenticated, never as a crash.
package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mazadclick/clientsync/internal/errs"
)

// Store persists the raw auth blob under a single key.
type Store interface {
	// Load returns the stored blob, or errs.ErrNotAuthenticated if absent.
	Load() ([]byte, error)
	// Save replaces the stored blob (last write wins).
	Save(blob []byte) error
	// Clear removes the stored blob; clearing an empty store is a no-op.
	Clear() error
}

// FileStore keeps the blob as a JSON file on disk.
type FileStore struct {
	path string
}

// NewFileStore constructs a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the conventional session file location,
// honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "mazadclick", "auth.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mazadclick", "auth.json")
}

func (s *FileStore) Load() ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *FileStore) Save(blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, blob, 0o600)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store, used by tests and short-lived consumers.
type MemStore struct {
	blob []byte
}

func (s *MemStore) Load() ([]byte, error) {
	if s.blob == nil {
		return nil, errs.ErrNotAuthenticated
	}
	return s.blob, nil
}

func (s *MemStore) Save(blob []byte) error {
	s.blob = append([]byte(nil), blob...)
	return nil
}

func (s *MemStore) Clear() error {
	s.blob = nil
	return nil
}
