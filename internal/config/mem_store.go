package config

import "sync"

// MemStore is an in-memory BlobStore for tests and --mock mode.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
	fail  error
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// LoadBlob returns a copy of the blob under key, or nil.
func (m *MemStore) LoadBlob(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

// SaveBlob stores a copy of data under key.
func (m *MemStore) SaveBlob(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.blobs[key] = append([]byte(nil), data...)
	m.saves++
	return nil
}

// SetSaveError makes every following SaveBlob fail with err; nil clears it.
func (m *MemStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Saves returns how many saves succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

var _ BlobStore = (*MemStore)(nil)
