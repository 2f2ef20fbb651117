// Package activity records the mutations staff make through the panel.
package activity

import (
	"context"
	"sync"
	"time"
)

// Entry is one recorded mutation.
type Entry struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Session   string    `json:"session"`
	RequestID string    `json:"requestId"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	RecordID  string    `json:"recordId"`
	Detail    string    `json:"detail"`
}

// Actions recorded by the panel.
const (
	Create     = "create"
	Update     = "update"
	Delete     = "delete"
	Grant      = "grant"
	Revoke     = "revoke"
	Reactivate = "reactivate"
	Deactivate = "deactivate"
	Import     = "import"
)

type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close()
}

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu     sync.Mutex
	buf    []Entry
	next   int
	full   bool
	nextID int64
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 500
	}
	return &MemoryStore{buf: make([]Entry, capacity)}
}

func (m *MemoryStore) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	m.buf[m.next] = e
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.next
	if m.full {
		n = len(m.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}

func (m *MemoryStore) Close() {}

// Open returns a PostgreSQL store when dsn is set and a memory store
// otherwise.
func Open(ctx context.Context, dsn string, capacity int) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(capacity), nil
	}
	return NewPostgresStore(ctx, dsn)
}
