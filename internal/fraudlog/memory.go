package fraudlog

import (
	"context"
	"sync"
)

// Memory keeps the most recent entries in memory.
type Memory struct {
	mutex      sync.Mutex
	entries    []Entry
	maxEntries int
	closed     bool
}

// NewMemory creates a Memory store. A non-positive maxEntries keeps everything.
func NewMemory(maxEntries int) *Memory {
	return &Memory{maxEntries: maxEntries}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.entries = append(m.entries, e)

	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		m.entries = append([]Entry(nil), m.entries[len(m.entries)-m.maxEntries:]...)
	}

	return nil
}

func (m *Memory) List(_ context.Context) ([]Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	return append([]Entry{}, m.entries...), nil
}

func (m *Memory) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.closed = true
	m.entries = nil

	return nil
}
