package cart

import (
	"context"
	"sync"
)

// Memory keeps carts in process memory. Nothing survives a restart.
type Memory struct {
	mu    sync.Mutex
	carts map[int64][]string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{carts: make(map[int64][]string)}
}

func (m *Memory) Append(_ context.Context, userID int64, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = append(m.carts[userID], keys...)
	return nil
}

func (m *Memory) Items(_ context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.carts[userID]
	out := make([]string, len(items))
	copy(out, items)
	return out, nil
}

// Replace stores a copy of keys; an empty keys leaves an empty cart behind.
func (m *Memory) Replace(_ context.Context, userID int64, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = append(make([]string, 0, len(keys)), keys...)
	return nil
}
