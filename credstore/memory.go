package credstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It survives nothing, which makes it the
// right backend for tests and short-lived sessions.
type Memory struct {
	mu   sync.Mutex
	pair Pair
	set  bool
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context) (Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return Pair{}, nil
	}
	return m.pair, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	m.set = true
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = Pair{}
	m.set = false
	return nil
}
