// Package audit is an append-only, hash-chained log of what happened to a
// user's tasks and why.
package audit

import (
	"context"
	"errors"
	"time"
)

// Event types.
const (
	TypeMessage          = "assistant.message"
	TypeOperationApplied = "operation.applied"
	TypeOperationSkipped = "operation.skipped"
	TypeOperationFailed  = "operation.failed"
	TypeTaskCreated      = "task.created"
	TypeTaskUpdated      = "task.updated"
	TypeTaskDeleted      = "task.deleted"
)

// ErrNotFound is returned when no event matches.
var ErrNotFound = errors.New("event not found")

// Event is a single entry in the log.
type Event struct {
	ID        string         `json:"id"`        // UUID v7 (time-ordered)
	Type      string         `json:"type"`      // e.g. "assistant.message", "operation.applied"
	UserID    string         `json:"userId"`    // owner of the affected tasks
	Timestamp time.Time      `json:"timestamp"` // when the event occurred
	Content   map[string]any `json:"content"`   // event payload
	Causes    []string       `json:"causes"`    // IDs of causing events
	Hash      string         `json:"hash"`      // SHA-256 of canonical form
	PrevHash  string         `json:"prevHash"`  // hash chain link
}

// Log is the contract for event persistence.
type Log interface {
	Append(ctx context.Context, eventType, userID string, content map[string]any, causes []string) (*Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	// ByUser returns a user's events, newest first.
	ByUser(ctx context.Context, userID string, limit int) ([]Event, error)
	Count(ctx context.Context) (int, error)
	VerifyChain(ctx context.Context) error
	EnsureTable(ctx context.Context) error
}
