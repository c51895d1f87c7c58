package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tasktalk/pkg/audit"
)

// MemoryLog is an in-memory audit.Log without hashing.
type MemoryLog struct {
	mu     sync.Mutex
	events []audit.Event

	AppendErr error
}

// Events returns everything appended so far, oldest first.
func (m *MemoryLog) Events() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Event(nil), m.events...)
}

// Append implements audit.Log.
func (m *MemoryLog) Append(_ context.Context, eventType, userID string, content map[string]any, causes []string) (*audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}
	if causes == nil {
		causes = []string{}
	}
	e := audit.Event{
		ID:        fmt.Sprintf("event-%d", len(m.events)+1),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Content:   content,
		Causes:    causes,
	}
	m.events = append(m.events, e)
	return &e, nil
}

// Get implements audit.Log.
func (m *MemoryLog) Get(_ context.Context, id string) (*audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, audit.ErrNotFound
}

// ByUser implements audit.Log.
func (m *MemoryLog) ByUser(_ context.Context, userID string, limit int) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []audit.Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].UserID == userID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// Count implements audit.Log.
func (m *MemoryLog) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events), nil
}

// VerifyChain implements audit.Log.
func (m *MemoryLog) VerifyChain(context.Context) error { return nil }

// EnsureTable implements audit.Log.
func (m *MemoryLog) EnsureTable(context.Context) error { return nil }
