package mocks

import (
	"context"
	"sync"

	"github.com/example/payment-reconciler/internal/infrastructure/store"
)

// MockBlobStore is a mock implementation of store.BlobStore for testing
type MockBlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// For tracking calls in tests
	GetCalls []string
	PutCalls []PutCall

	// GetErr and PutErr, when set, are returned instead of touching data
	GetErr error
	PutErr error
}

// PutCall records parameters passed to Put
type PutCall struct {
	Key  string
	Data []byte
}

// NewMockBlobStore creates a new MockBlobStore
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		data:     make(map[string][]byte),
		GetCalls: make([]string, 0),
		PutCalls: make([]PutCall, 0),
	}
}

// Get retrieves a blob by key
func (m *MockBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, store.ErrBlobNotFound
	}
	return data, nil
}

// Put stores a blob
func (m *MockBlobStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, PutCall{Key: key, Data: data})

	if m.PutErr != nil {
		return m.PutErr
	}
	m.data[key] = data
	return nil
}

// SetData sets data directly for testing
func (m *MockBlobStore) SetData(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}

// GetData gets data directly for testing (without recording the call)
func (m *MockBlobStore) GetData(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	return data, ok
}

// PutCount returns the number of Put calls for key
func (m *MockBlobStore) PutCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.PutCalls {
		if c.Key == key {
			n++
		}
	}
	return n
}

// Reset clears all data and recorded calls
func (m *MockBlobStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.GetCalls = make([]string, 0)
	m.PutCalls = make([]PutCall, 0)
	m.GetErr = nil
	m.PutErr = nil
}
