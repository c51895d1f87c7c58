package api

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/internal/assistant"
	"tasktalk/internal/model"
	"tasktalk/pkg/task"
)

func TestAssistantApplied(t *testing.T) {
	env := newTestEnv(t)
	env.assistant.res = &assistant.Result{
		Reply: `1 change applied.` + "\n" + `- Created "Buy milk".`,
		Operations: []assistant.Outcome{{
			Kind:    assistant.KindCreate,
			Status:  assistant.StatusApplied,
			Task:    &task.Task{ID: "task-1", Title: "Buy milk"},
			Message: `Created "Buy milk".`,
		}},
	}

	rec := env.do(t, "u1", "POST", "/api/assistant", map[string]string{"message": "add buy milk"})
	require.Equal(t, 200, rec.Code)
	res := decode[assistant.Result](t, rec)
	assert.Equal(t, env.assistant.res.Reply, res.Reply)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, assistant.StatusApplied, res.Operations[0].Status)
	assert.Equal(t, 1, env.assistant.calls)
}

func TestAssistantErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		res  *assistant.Result
		want int
	}{
		{"empty message", assistant.ErrEmptyMessage, nil, 400},
		{"no user", assistant.ErrAuth, nil, 401},
		{"store failure", fmt.Errorf("load snapshot: %w", assert.AnError), nil, 500},
		{
			"translation failure",
			fmt.Errorf("%w: %w", assistant.ErrTranslation, assert.AnError),
			&assistant.Result{Reply: "Sorry, I couldn't understand that.", Operations: []assistant.Outcome{}},
			502,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.assistant.err = tt.err
			env.assistant.res = tt.res

			rec := env.do(t, "u1", "POST", "/api/assistant", map[string]string{"message": "do things"})
			assert.Equal(t, tt.want, rec.Code)
			if tt.res != nil {
				res := decode[assistant.Result](t, rec)
				assert.Equal(t, tt.res.Reply, res.Reply)
				assert.NotNil(t, res.Operations)
				assert.Empty(t, res.Operations)
			}
		})
	}
}

func TestAssistantRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "u1", "POST", "/api/assistant", "not an object")
	assert.Equal(t, 400, rec.Code)
	assert.Zero(t, env.assistant.calls)
}

func TestSuggest(t *testing.T) {
	env := newTestEnv(t)
	env.assistant.suggestions = []string{"Pack passport", "Book hotel"}

	rec := env.do(t, "u1", "POST", "/api/assistant/suggest", map[string]any{"prompt": "trip to Lisbon", "count": 2})
	require.Equal(t, 200, rec.Code)
	body := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"Pack passport", "Book hotel"}, body["suggestions"])
	assert.Equal(t, 2, env.assistant.suggestCount)
}

func TestSuggestErrors(t *testing.T) {
	tests := map[string]struct {
		body any
		err  error
		want int
	}{
		"empty prompt":   {body: map[string]string{"prompt": ""}, err: assistant.ErrEmptyMessage, want: 400},
		"negative count": {body: map[string]any{"prompt": "trip", "count": -1}, want: 400},
		"malformed":      {body: "not an object", want: 400},
		"translation":    {body: map[string]string{"prompt": "trip"}, err: fmt.Errorf("%w: bad output", assistant.ErrTranslation), want: 502},
		"store failure":  {body: map[string]string{"prompt": "trip"}, err: assert.AnError, want: 500},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.assistant.suggestErr = tc.err

			rec := env.do(t, "u1", "POST", "/api/assistant/suggest", tc.body)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
}

// fixedModel answers every request with out.
type fixedModel struct{ out string }

func (f fixedModel) Complete(context.Context, model.Request) ([]byte, error) {
	return []byte(f.out), nil
}

func (fixedModel) Name() string { return "fixed" }

func TestSuggestLeavesTasksAlone(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.Add("u1", "Buy milk")
	before := env.tasks.All()

	suggester := assistant.NewSuggester(fixedModel{out: `{"suggestions": ["Buy milk", "Bake bread"]}`}, assistant.MustSchema(), env.tasks, time.Second)
	env.server = New(Options{
		Tasks:     env.tasks,
		Tokens:    env.tokens,
		Suggester: suggester,
	})

	rec := env.do(t, "u1", "POST", "/api/assistant/suggest", map[string]string{"prompt": "baking day"})
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, []string{"Bake bread"}, decode[map[string][]string](t, rec)["suggestions"])
	assert.Equal(t, before, env.tasks.All())
	assert.Empty(t, env.events.Events())
}

func TestSuggestNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.server = New(Options{Tasks: env.tasks, Tokens: env.tokens})

	rec := env.do(t, "u1", "POST", "/api/assistant/suggest", map[string]string{"prompt": "trip"})
	assert.Equal(t, 503, rec.Code)
}
