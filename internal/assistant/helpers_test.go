package assistant

import (
	"context"
	"time"

	"tasktalk/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// scriptedModel answers every request with the same output.
type scriptedModel struct {
	out         string
	err         error
	requests    []model.Request
	hadDeadline bool
}

func (s *scriptedModel) Complete(ctx context.Context, req model.Request) ([]byte, error) {
	s.requests = append(s.requests, req)
	_, s.hadDeadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.out), nil
}

func (s *scriptedModel) Name() string { return "scripted" }

func newTestInterpreter(m model.Client) *ModelInterpreter {
	in := NewInterpreter(m, MustSchema(), 0, 0)
	in.now = clock
	return in
}

func ptr[T any](v T) *T { return &v }
