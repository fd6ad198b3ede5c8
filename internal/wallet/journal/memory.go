package journal

import (
	"context"
	"sync"
)

// Memory keeps the newest entries of each pipeline in process memory
type Memory struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]Entry
}

// NewMemory creates a Memory journal holding up to capacity entries per pipeline
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultListLimit
	}

	return &Memory{
		capacity: capacity,
		entries:  make(map[string][]Entry),
	}
}

func (m *Memory) Append(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.entries[entry.Pipeline], entry)
	if len(list) > m.capacity {
		list = append(list[:0:0], list[len(list)-m.capacity:]...)
	}
	m.entries[entry.Pipeline] = list

	return nil
}

func (m *Memory) List(_ context.Context, pipeline string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[pipeline]
	out := make([]Entry, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}

	return out, nil
}
