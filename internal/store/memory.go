package store

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const memoryTxnAttempts = 64

// Memory is an in-process Store used by tests and local development. It
// implements the same optimistic, version-stamped transaction contract as
// the persistent backends.
type Memory struct {
	mu       sync.Mutex
	values   map[string][]byte
	versions map[string]uint64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string][]byte),
		versions: make(map[string]uint64),
	}
}

// Get performs a point read.
func (m *Memory) Get(_ context.Context, p Path) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[p.String()]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set unconditionally overwrites the record.
func (m *Memory) Set(_ context.Context, p Path, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.write(p.String(), value)
	return nil
}

// Transact runs fn under an optimistic compare-and-swap loop.
func (m *Memory) Transact(_ context.Context, p Path, fn TxnFunc) (bool, []byte, error) {
	key := p.String()

	for attempt := 0; attempt < memoryTxnAttempts; attempt++ {
		m.mu.Lock()
		current, exists := m.values[key]
		version := m.versions[key]
		var snapshot []byte
		if exists {
			snapshot = make([]byte, len(current))
			copy(snapshot, current)
		}
		m.mu.Unlock()

		next, err := fn(snapshot)
		if errors.Is(err, ErrAbort) {
			return false, nil, nil
		}
		if err != nil {
			return false, nil, err
		}

		m.mu.Lock()
		if m.versions[key] != version {
			m.mu.Unlock()
			continue
		}
		m.write(key, next)
		m.mu.Unlock()
		return true, next, nil
	}

	return false, nil, ErrTxnFailed
}

// Children returns the immediate children of a node.
func (m *Memory) Children(_ context.Context, p Path) (map[string][]byte, error) {
	prefix := p.String() + "/"

	m.mu.Lock()
	defer m.mu.Unlock()

	children := make(map[string][]byte)
	for key, value := range m.values {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if strings.Contains(rest, "/") {
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		children[rest] = out
	}
	return children, nil
}

func (m *Memory) write(key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	m.versions[key]++
}
