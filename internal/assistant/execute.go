package assistant

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

// storeFailureReason is shown instead of the underlying store error.
const storeFailureReason = "the task store could not save this change"

// Executor applies validated steps to the task store, in order, one commit
// per step.
type Executor struct {
	store task.Store
	audit audit.Log // nil disables auditing
}

// NewExecutor creates an Executor. events may be nil.
func NewExecutor(store task.Store, events audit.Log) *Executor {
	return &Executor{store: store, audit: events}
}

// Execute returns exactly one outcome per step. A failing step never stops
// the ones after it. causes are recorded on each step's audit event.
func (x *Executor) Execute(ctx context.Context, userID string, steps []Step, causes ...string) []Outcome {
	outcomes := make([]Outcome, 0, len(steps))
	for _, s := range steps {
		o := x.apply(ctx, userID, s)
		o.Message = describe(o, s)
		x.record(ctx, userID, o, causes)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (x *Executor) apply(ctx context.Context, userID string, s Step) Outcome {
	o := Outcome{
		Index:       s.Index,
		Kind:        s.Op.Kind,
		TargetID:    s.Op.TargetID,
		Resolution:  s.Op.Resolution,
		Explanation: s.Op.Explanation,
	}
	if o.Kind == "" {
		o.Kind = Kind(strings.ToLower(strings.TrimSpace(s.Candidate.Operation)))
	}
	if o.Explanation == "" {
		o.Explanation = strings.TrimSpace(s.Candidate.Explanation)
	}

	if s.Err != nil {
		return failed(o, s.Err)
	}

	var (
		t   *task.Task
		err error
	)
	switch s.Op.Kind {
	case KindCreate:
		t, err = x.store.Create(ctx, userID, s.Op.Fields)
	case KindUpdate:
		t, err = x.store.Update(ctx, userID, s.Op.TargetID, s.Op.Fields)
	case KindDelete:
		err = x.store.Delete(ctx, userID, s.Op.TargetID)
	case KindQuery:
		o.Status = StatusSkipped
		o.Reason = "queries are not executed"
		return o
	default:
		return failed(o, &ValidationError{Field: "operation", Reason: "unknown operation " + strconv.Quote(string(s.Op.Kind))})
	}
	if err != nil {
		if !errors.Is(err, task.ErrNotFound) {
			log.Printf("assistant: %s for user %s: %v", s.Op.Kind, userID, err)
		}
		return failed(o, err)
	}

	o.Status = StatusApplied
	o.Task = t
	if t != nil {
		o.TargetID = t.ID
	}
	return o
}

func failed(o Outcome, err error) Outcome {
	o.Status = StatusFailed
	var verr *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &verr):
		o.Error, o.Field, o.Reason = ErrorValidation, verr.Field, verr.Reason
	case errors.As(err, &nf):
		o.Error, o.Reason = ErrorNotFound, nf.Error()
	case errors.Is(err, task.ErrNotFound):
		o.Error, o.Reason = ErrorNotFound, "the task no longer exists"
	default:
		o.Error, o.Reason = ErrorStore, storeFailureReason
	}
	return o
}

// record appends the outcome to the audit log. Failures are logged only.
func (x *Executor) record(ctx context.Context, userID string, o Outcome, causes []string) {
	if x.audit == nil {
		return
	}
	eventType := audit.TypeOperationApplied
	switch o.Status {
	case StatusSkipped:
		eventType = audit.TypeOperationSkipped
	case StatusFailed:
		eventType = audit.TypeOperationFailed
	}
	content := map[string]any{
		"index":   o.Index,
		"kind":    string(o.Kind),
		"status":  string(o.Status),
		"message": o.Message,
	}
	if o.TargetID != "" {
		content["taskId"] = o.TargetID
	}
	if o.Resolution != "" {
		content["resolution"] = string(o.Resolution)
	}
	if o.Error != "" {
		content["error"] = string(o.Error)
		content["reason"] = o.Reason
	}
	if o.Field != "" {
		content["field"] = o.Field
	}
	if o.Explanation != "" {
		content["explanation"] = o.Explanation
	}
	if _, err := x.audit.Append(ctx, eventType, userID, content, causes); err != nil {
		log.Printf("assistant: audit %s: %v", eventType, err)
	}
}
