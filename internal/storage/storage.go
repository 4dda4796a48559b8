package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get when nothing is stored under a key.
var ErrNotFound = errors.New("storage: key not found")

// BlobStore is a durable key/value store for opaque blobs.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the BlobStore for driver. path is a directory for "file" and
// a database file for "sqlite"; "memory" ignores it.
func Open(driver, path string) (BlobStore, error) {
	switch driver {
	case DriverFile, "":
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), value...)
	return nil
}
