// Package assistant turns a free-text message into task operations and
// applies them: interpret, validate, execute, reply.
package assistant

import (
	"errors"
	"fmt"

	"tasktalk/pkg/task"
)

// Kind is an operation verb.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindQuery  Kind = "query"
)

// Status is what happened to one operation.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	ErrorValidation ErrorKind = "validation"
	ErrorNotFound   ErrorKind = "not_found"
	ErrorStore      ErrorKind = "store"
)

// Resolution records how an update or delete target was found.
type Resolution string

const (
	ResolvedByID         Resolution = "id"
	ResolvedByTitle      Resolution = "title"
	ResolvedByFuzzyTitle Resolution = "title_fuzzy"
)

var (
	// ErrAuth rejects a request with no verified user.
	ErrAuth = errors.New("authentication required")
	// ErrTranslation means the model was unreachable or its output was unusable.
	ErrTranslation = errors.New("could not translate message into operations")
	// ErrEmptyMessage rejects a blank message before any model call.
	ErrEmptyMessage = errors.New("message is empty")
)

// ValidationError names the field that made an operation invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means the target matched no task the caller owns.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task matches %q", e.Ref)
}

// Is lets errors.Is(err, task.ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == task.ErrNotFound }

// CandidateData is the loosely typed payload the model produced.
type CandidateData struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Category    *string `json:"category,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Candidate is one operation as the model described it, before validation.
type Candidate struct {
	Operation   string        `json:"operation"`
	Data        CandidateData `json:"data"`
	TaskID      string        `json:"taskId,omitempty"`
	TargetTitle string        `json:"targetTitle,omitempty"`
	SearchQuery string        `json:"searchQuery,omitempty"`
	Explanation string        `json:"explanation,omitempty"`
}

// Plan is the model's answer for one message.
type Plan struct {
	Operations []Candidate `json:"operations"`
}

// Operation is a validated, normalized candidate.
type Operation struct {
	Kind        Kind
	Fields      task.Fields
	TargetID    string
	TargetTitle string // title of the resolved target, for replies
	Resolution  Resolution
	SearchQuery string
	Explanation string
}

// Step is one position in a batch: either a valid operation or the reason
// its candidate was rejected.
type Step struct {
	Index     int
	Candidate Candidate
	Op        Operation
	Err       error
}

// Outcome is the recorded result of one step.
type Outcome struct {
	Index       int        `json:"index"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	Error       ErrorKind  `json:"error,omitempty"`
	Field       string     `json:"field,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Task        *task.Task `json:"task,omitempty"`
	TargetID    string     `json:"targetId,omitempty"`
	Resolution  Resolution `json:"resolution,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Message     string     `json:"message"`
}

// Result is the answer to one message.
type Result struct {
	Reply      string    `json:"reply"`
	Operations []Outcome `json:"operations"`
}

// Applied reports whether any outcome changed the store.
func (r *Result) Applied() bool {
	for _, o := range r.Operations {
		if o.Status == StatusApplied {
			return true
		}
	}
	return false
}
