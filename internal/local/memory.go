package local

import (
	"context"
	"fmt"
	"sync"
)

// MemorySlot keeps values in a map. Values are copied on the way in and out.
type MemorySlot struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemorySlot returns an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string][]byte)}
}

func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, fmt.Errorf("get %q: %w", key, ErrUnavailable)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemorySlot) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("set %q: %w", key, ErrUnavailable)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemorySlot) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
