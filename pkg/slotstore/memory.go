package slotstore

import (
	"context"
	"sync"
)

// MemoryStore 进程内槽位存储，默认实现
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]string),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[key], nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}
