// Package task holds the todo record and the user-scoped persistence contract.
package task

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a task does not exist or belongs to another user.
// Callers cannot tell the two cases apart.
var ErrNotFound = errors.New("task not found")

// Priority is the urgency of a task.
type Priority string

const (
	Low    Priority = "LOW"
	Medium Priority = "MEDIUM"
	High   Priority = "HIGH"
)

// DefaultPriority is applied when a task is created without one.
const DefaultPriority = Medium

// ParsePriority maps s onto the enum, case-insensitively. ok is false when s
// names no priority.
func ParsePriority(s string) (p Priority, ok bool) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case Low:
		return Low, true
	case Medium:
		return Medium, true
	case High:
		return High, true
	}
	return DefaultPriority, false
}

// rank orders priorities for listing, highest first.
func (p Priority) rank() int {
	switch p {
	case High:
		return 2
	case Medium:
		return 1
	}
	return 0
}

// Task is a user-owned todo record.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Fields is a partial set of task fields. Nil pointers are left untouched.
type Fields struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	Category     *string    `json:"category,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"-"`
}

// Empty reports whether f would change nothing.
func (f Fields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Completed == nil &&
		f.Priority == nil && f.Category == nil && f.DueDate == nil && !f.ClearDueDate
}

// Filter narrows FindMany. Zero values match everything.
type Filter struct {
	Completed *bool
	Priority  Priority
	Category  string
	Search    string // case-insensitive substring of title or description
}

// Store is the contract for task persistence. Every method is scoped by
// userID; acting on another user's task yields ErrNotFound.
type Store interface {
	Create(ctx context.Context, userID string, f Fields) (*Task, error)
	FindMany(ctx context.Context, userID string, filter Filter) ([]Task, error)
	FindByID(ctx context.Context, userID, id string) (*Task, error)
	// FindByTitle returns every task whose title equals title under case folding.
	FindByTitle(ctx context.Context, userID, title string) ([]Task, error)
	// FindByIDOrTitle tries ref as an id first, then as a unique title.
	FindByIDOrTitle(ctx context.Context, userID, ref string) (*Task, error)
	Update(ctx context.Context, userID, id string, f Fields) (*Task, error)
	Delete(ctx context.Context, userID, id string) error
	ToggleCompleted(ctx context.Context, userID, id string) (*Task, error)
	Count(ctx context.Context, userID string) (int, error)
	EnsureTable(ctx context.Context) error
}
