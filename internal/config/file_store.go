package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a file store rooted at dir. The directory is created
// on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the store directory.
func (s *FileStore) Path() string { return s.dir }

// FilePath returns the file a key is stored in.
func (s *FileStore) FilePath(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// LoadBlob reads the file for key. A missing file is not an error.
func (s *FileStore) LoadBlob(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.FilePath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", key, err)
	}
	return data, nil
}

// SaveBlob writes the file for key atomically.
func (s *FileStore) SaveBlob(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("config: creating %s: %w", s.dir, err)
	}

	// Write to temp file, then rename (atomic on Linux)
	path := s.FilePath(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("config: writing %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("config: renaming %s: %w", key, err)
	}
	return nil
}

// sanitizeKey keeps keys from escaping the store directory.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, strings.TrimLeft(key, "."))
}

var _ BlobStore = (*FileStore)(nil)
