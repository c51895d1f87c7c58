package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"tasktalk/internal/model"
	"tasktalk/pkg/task"
)

const (
	// DefaultSuggestions is how many titles Suggest asks for when count is zero.
	DefaultSuggestions = 5
	// MaxSuggestions caps count.
	MaxSuggestions = 10
)

const suggestToolName = "suggest_tasks"

const suggestPrompt = `You help someone plan their todo list. Propose %d short, concrete task titles for the goal they describe by calling ` + suggestToolName + `.

Rules:
- Each title is an imperative phrase of at most eight words, like "Book a dentist appointment".
- No numbering, no dates, no explanations.
- Do not repeat any title from the existing tasks below.`

var suggestParameters = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"suggestions": {
			Type:        jsonschema.Array,
			Description: "Task titles, most useful first.",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required:             []string{"suggestions"},
	AdditionalProperties: false,
}

// Suggester proposes task titles for a goal. It reads the user's tasks to
// avoid repeats and never writes to the store.
type Suggester struct {
	client  model.Client
	schema  *Schema
	store   task.Store
	timeout time.Duration
}

// NewSuggester creates a Suggester. store may be nil; a zero timeout uses
// model.DefaultTimeout.
func NewSuggester(client model.Client, schema *Schema, store task.Store, timeout time.Duration) *Suggester {
	if timeout <= 0 {
		timeout = model.DefaultTimeout
	}
	return &Suggester{client: client, schema: schema, store: store, timeout: timeout}
}

// Suggest returns up to count titles (DefaultSuggestions when count is
// zero, never more than MaxSuggestions). Model or schema failures are
// ErrTranslation, as is an answer with nothing usable in it.
func (s *Suggester) Suggest(ctx context.Context, userID, prompt string, count int) ([]string, error) {
	if userID == "" {
		return nil, ErrAuth
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyMessage
	}
	switch {
	case count <= 0:
		count = DefaultSuggestions
	case count > MaxSuggestions:
		count = MaxSuggestions
	}

	var existing []task.Task
	if s.store != nil {
		var err error
		existing, err = s.store.FindMany(ctx, userID, task.Filter{})
		if err != nil {
			return nil, fmt.Errorf("load tasks: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, suggestPrompt, count)
	b.WriteString("\n\nExisting tasks:\n")
	for _, t := range existing {
		fmt.Fprintf(&b, "- %s\n", t.Title)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Complete(cctx, model.Request{
		System: b.String(),
		User:   prompt,
		Tool: model.Tool{
			Name:        suggestToolName,
			Description: "Propose new todo titles.",
			Parameters:  suggestParameters,
		},
	})
	if err != nil {
		log.Printf("assistant: suggest: model %s: %v", s.client.Name(), err)
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	titles, err := s.schema.DecodeSuggestions(raw)
	if err != nil {
		log.Printf("assistant: suggest: rejected model output: %v (%s)", err, truncate(string(raw), 300))
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	out := pickSuggestions(titles, existing, count)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable suggestions", ErrTranslation)
	}
	return out, nil
}

// pickSuggestions collapses whitespace, drops blanks and anything that folds
// to an existing or earlier title, and keeps at most n.
func pickSuggestions(titles []string, existing []task.Task, n int) []string {
	seen := make(map[string]bool, len(existing)+len(titles))
	for _, t := range existing {
		seen[task.FoldTitle(t.Title)] = true
	}
	out := make([]string, 0, n)
	for _, title := range titles {
		title = strings.Join(strings.Fields(title), " ")
		key := task.FoldTitle(title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, title)
		if len(out) == n {
			break
		}
	}
	return out
}
