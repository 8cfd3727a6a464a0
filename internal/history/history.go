package history

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Entry is one recorded submission.
type Entry struct {
	ID                    int64     `json:"id" db:"id"`
	SessionID             string    `json:"session_id" db:"session_id"`
	Text                  string    `json:"text" db:"text"`
	Gloss                 string    `json:"gloss" db:"gloss"`
	Units                 int       `json:"units" db:"units"`
	Preempted             bool      `json:"preempted" db:"preempted"`
	MissingJoints         int       `json:"missing_joints" db:"missing_joints"`
	MalformedInstructions int       `json:"malformed_instructions" db:"malformed_instructions"`
	UnmappedTokens        int       `json:"unmapped_tokens" db:"unmapped_tokens"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// Store persists submissions for the learner history view.
type Store interface {
	// Record appends an entry. ID and a zero CreatedAt are assigned by the store.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	Close()
}

// ClampLimit maps a requested page size into [1, MaxLimit], with DefaultLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Memory is a fixed-capacity in-process Store. The oldest entries are overwritten first.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	lastID  int64
	now     func() time.Time
}

var _ Store = &Memory{}

// NewMemory creates a Memory store holding up to capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &Memory{entries: make([]Entry, capacity), now: time.Now}
}

func (m *Memory) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	e.ID = m.lastID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now().UTC()
	}
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.entries)
	}
	if limit > size {
		limit = size
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

func (m *Memory) Close() {}
