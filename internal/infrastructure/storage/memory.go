package storage

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/erp/exchange/internal/domain/exchange"
)

var (
	_ exchange.MediaStore      = (*MemoryStorage)(nil)
	_ exchange.DocumentArchive = (*MemoryStorage)(nil)
)

// MemoryStorage keeps objects in process memory. It backs local runs
// without object storage and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	baseURL  string
	objects  map[string][]byte
	archived map[string][]byte
}

// NewMemoryStorage creates an empty MemoryStorage whose media links start
// with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL:  strings.TrimRight(baseURL, "/"),
		objects:  make(map[string][]byte),
		archived: make(map[string][]byte),
	}
}

// Put stores body under key.
func (m *MemoryStorage) Put(_ context.Context, key string, body io.Reader, _ string) (exchange.MediaRef, error) {
	if key == "" {
		return exchange.MediaRef{}, errors.New("storage key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return exchange.MediaRef{}, err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return exchange.MediaRef{Key: key, URL: m.baseURL + "/" + key}, nil
}

// Archive stores a copy of body under name, replacing an earlier copy.
func (m *MemoryStorage) Archive(_ context.Context, name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived[name] = slices.Clone(body)
	return nil
}

// Object returns a stored media object.
func (m *MemoryStorage) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Archived returns the names of archived documents, sorted.
func (m *MemoryStorage) Archived() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.archived))
}
