package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-memory backend. It is session-scoped: contents
// live for the process lifetime and are lost on exit. Suitable as the
// default for tests and for state that should not outlive the process.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	used   int64
	closed bool

	maxBytes int64
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithMaxBytes caps the total payload size. Writes that would exceed the
// cap fail with ErrCapacity. Zero means unlimited.
func WithMaxBytes(n int64) MemoryOption {
	return func(m *MemoryBackend) {
		m.maxBytes = n
	}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		data: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	data, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	next := m.used + int64(len(data)) - int64(len(m.data[key]))
	if m.maxBytes > 0 && next > m.maxBytes {
		return ErrCapacity
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[key] = stored
	m.used = next
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if data, ok := m.data[key]; ok {
		m.used -= int64(len(data))
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Name() string {
	return "memory"
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	m.used = 0
	return nil
}
