package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory for the life of the process
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.now().After(entry.expiresAt) {
		return entry.value, true, nil
	}

	// A fresh Set may have landed since the read lock was released.
	m.mu.Lock()
	if cur, ok := m.entries[key]; ok && m.now().After(cur.expiresAt) {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil, false, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: buf, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// NopStore never holds anything. Used for the "none" backend.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Close() error { return nil }
