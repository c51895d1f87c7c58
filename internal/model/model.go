// Package model talks to the hosted language model that turns a message
// into structured task operations.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one model call when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable wraps transport failures: unreachable endpoint, timeout, non-2xx.
var ErrUnavailable = errors.New("model unavailable")

// ErrNoOutput is returned when the model answered without any usable payload.
var ErrNoOutput = errors.New("model returned no output")

// Tool describes the single function the model is asked to call.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON Schema document for the call arguments.
	Parameters any
}

// Request is one structured-output call.
type Request struct {
	System string
	User   string
	Tool   Tool
}

// Client returns the raw JSON arguments the model produced for the tool.
// Callers validate the bytes; clients never repair them.
type Client interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
	Name() string
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
