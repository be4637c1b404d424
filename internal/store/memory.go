package store

import (
	"context"
	"errors"
	"sync"

	"github.com/akave-ai/hooklog/internal/model"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("store: closed")

// Memory keeps entries in process memory. With a positive limit it is a ring
// buffer holding the newest limit entries; with limit 0 it grows without bound.
// Entries do not survive a restart.
type Memory struct {
	mu     sync.RWMutex
	limit  int
	buf    []model.WebhookLogEntry
	start  int // index of the oldest entry once the ring is full
	seq    int64
	closed bool
}

// NewMemory returns an empty in-memory store keeping at most limit entries;
// 0 or less keeps every entry.
func NewMemory(limit int) *Memory {
	if limit < 0 {
		limit = 0
	}
	return &Memory{limit: limit}
}

// Append assigns the next Seq and stores e, evicting the oldest entry when full.
func (m *Memory) Append(_ context.Context, e *model.WebhookLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.seq++
	e.Seq = m.seq
	if m.limit > 0 && len(m.buf) == m.limit {
		m.buf[m.start] = *e
		m.start = (m.start + 1) % m.limit
		return nil
	}
	m.buf = append(m.buf, *e)
	return nil
}

// List returns a copy of the requested page.
func (m *Memory) List(_ context.Context, q model.ListQuery) (model.LogPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return model.LogPage{}, ErrClosed
	}

	entries, next := paginate(m.orderedLocked(), q)
	return model.LogPage{Entries: entries, Total: len(m.buf), NextCursor: next}, nil
}

// Clear empties the store. Seq keeps counting from where it was.
func (m *Memory) Clear(_ context.Context) ([]model.WebhookLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	removed := m.orderedLocked()
	m.buf = nil
	m.start = 0
	return removed, nil
}

// Ping fails only once the store is closed.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close drops every entry; later calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.buf = nil
	return nil
}

// orderedLocked copies the ring out oldest first.
func (m *Memory) orderedLocked() []model.WebhookLogEntry {
	out := make([]model.WebhookLogEntry, len(m.buf))
	n := copy(out, m.buf[m.start:])
	copy(out[n:], m.buf[:m.start])
	return out
}
