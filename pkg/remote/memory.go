package remote

import (
	"context"
	"sync"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// MemoryMirror is an in-process mirror.
type MemoryMirror struct {
	mu   sync.RWMutex
	data map[string][]byte

	// GetErr and PutErr, when set, are returned instead of performing the call.
	GetErr error
	PutErr error
}

// NewMemoryMirror creates an empty in-process mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{data: make(map[string][]byte)}
}

// Name returns "memory".
func (m *MemoryMirror) Name() string { return string(BackendMemory) }

// Get returns a copy of the value stored under key.
func (m *MemoryMirror) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, notFound(m.Name(), key)
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of data under key.
func (m *MemoryMirror) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key.
func (m *MemoryMirror) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

var _ engine.Mirror = (*MemoryMirror)(nil)
