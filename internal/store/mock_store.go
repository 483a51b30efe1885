package store

import (
	"errors"
	"sync"
)

// MockStore is an in-memory Store. It backs the "memory" driver and tests.
type MockStore struct {
	mu         sync.Mutex
	Data       map[string]string
	ShouldFail bool // flag to simulate failures
	Closed     bool
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{Data: make(map[string]string)}
}

func (m *MockStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}

func (m *MockStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", false, errors.New("mock: get failed")
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

func (m *MockStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: set failed")
	}
	m.Data[key] = value
	return nil
}

func (m *MockStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: delete failed")
	}
	delete(m.Data, key)
	return nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) Get(key string) (string, bool, error) {
	return "", false, errors.New("mock store get failed")
}

func (m *MockStoreFail) Set(key, value string) error {
	return errors.New("mock store set failed")
}

func (m *MockStoreFail) Delete(key string) error {
	return errors.New("mock store delete failed")
}
