package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

// Invalidator drops a user's cached task list.
type Invalidator interface {
	Invalidate(userID string)
}

// Service handles one message end to end.
type Service struct {
	store     task.Store
	interp    Interpreter
	validator *Validator
	executor  *Executor
	audit     audit.Log
	cache     Invalidator
}

// NewService wires the pipeline. events and cache may be nil.
func NewService(store task.Store, interp Interpreter, validator *Validator, events audit.Log, cache Invalidator) *Service {
	return &Service{
		store:     store,
		interp:    interp,
		validator: validator,
		executor:  NewExecutor(store, events),
		audit:     events,
		cache:     cache,
	}
}

// Handle interprets message against the user's current tasks and applies
// the result. On ErrTranslation the returned Result still carries the
// generic reply and an empty operation list.
func (s *Service) Handle(ctx context.Context, userID, message string) (*Result, error) {
	if userID == "" {
		return nil, ErrAuth
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	snapshot, err := s.store.FindMany(ctx, userID, task.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	plan, err := s.interp.Interpret(ctx, message, snapshot)
	if err != nil {
		if !errors.Is(err, ErrTranslation) {
			err = fmt.Errorf("%w: %w", ErrTranslation, err)
		}
		s.recordMessage(ctx, userID, message, 0, err)
		return &Result{Reply: translationFailureReply, Operations: []Outcome{}}, err
	}

	steps := make([]Step, len(plan.Operations))
	for i, c := range plan.Operations {
		op, err := s.validator.Validate(c, snapshot)
		steps[i] = Step{Index: i, Candidate: c, Op: op, Err: err}
	}

	var causes []string
	if id := s.recordMessage(ctx, userID, message, len(steps), nil); id != "" {
		causes = []string{id}
	}
	outcomes := s.executor.Execute(ctx, userID, steps, causes...)

	res := &Result{Reply: Render(outcomes), Operations: outcomes}
	if s.cache != nil && res.Applied() {
		s.cache.Invalidate(userID)
	}
	return res, nil
}

// recordMessage appends the message event that operation events cite.
func (s *Service) recordMessage(ctx context.Context, userID, message string, ops int, failure error) string {
	if s.audit == nil {
		return ""
	}
	content := map[string]any{"message": message, "operations": ops}
	if failure != nil {
		content["error"] = failure.Error()
	}
	e, err := s.audit.Append(ctx, audit.TypeMessage, userID, content, nil)
	if err != nil {
		log.Printf("assistant: audit message: %v", err)
		return ""
	}
	return e.ID
}
