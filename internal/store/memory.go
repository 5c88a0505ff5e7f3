package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ ConversationLog = (*MemoryLog)(nil)

// MemoryLog keeps exchanges in process memory.
type MemoryLog struct {
	mu       sync.RWMutex
	limit    int
	nextID   int64
	sessions map[string][]*Exchange
}

// NewMemoryLog creates an empty log keeping at most limit exchanges per
// session (0 = unlimited).
func NewMemoryLog(limit int) *MemoryLog {
	return &MemoryLog{limit: limit, sessions: make(map[string][]*Exchange)}
}

func (m *MemoryLog) Append(_ context.Context, ex *Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	ex.ID = m.nextID
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	cp := *ex
	list := append(m.sessions[ex.SessionID], &cp)
	if m.limit > 0 && len(list) > m.limit {
		list = append([]*Exchange(nil), list[len(list)-m.limit:]...)
	}
	m.sessions[ex.SessionID] = list
	return nil
}

func (m *MemoryLog) List(_ context.Context, sessionID string) ([]*Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.sessions[sessionID]
	out := make([]*Exchange, len(list))
	for i, ex := range list {
		cp := *ex
		out[i] = &cp
	}
	return out, nil
}

func (m *MemoryLog) Clear(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.sessions[sessionID]))
	delete(m.sessions, sessionID)
	return n, nil
}

func (m *MemoryLog) Sessions(_ context.Context) ([]SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SessionSummary, 0, len(m.sessions))
	for id, list := range m.sessions {
		out = append(out, SessionSummary{SessionID: id, Count: len(list), LastAt: list[len(list)-1].CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (m *MemoryLog) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, list := range m.sessions {
		kept := list[:0]
		for _, ex := range list {
			if ex.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, ex)
		}
		if len(kept) == 0 {
			delete(m.sessions, id)
		} else {
			m.sessions[id] = kept
		}
	}
	return removed, nil
}

// Close is a no-op.
func (m *MemoryLog) Close() error { return nil }
