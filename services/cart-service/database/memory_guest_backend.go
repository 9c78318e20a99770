package database

import (
	"context"
	"sync"
)

// MemoryGuestBackend is a process-local GuestBackend for tests and single
// instance development.
type MemoryGuestBackend struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemoryGuestBackend() *MemoryGuestBackend {
	return &MemoryGuestBackend{carts: make(map[string][]byte)}
}

func (m *MemoryGuestBackend) Get(_ context.Context, guestID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.carts[guestID]
	if !ok {
		return nil, ErrGuestCartNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryGuestBackend) Set(_ context.Context, guestID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[guestID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryGuestBackend) Delete(_ context.Context, guestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, guestID)
	return nil
}
