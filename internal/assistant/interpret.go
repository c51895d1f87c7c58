package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"tasktalk/internal/model"
	"tasktalk/pkg/task"
)

// DefaultMaxOperations caps how many operations one message may produce.
const DefaultMaxOperations = 10

// Interpreter turns a message plus the caller's current tasks into candidate
// operations. It never writes to the store. Any failure is ErrTranslation.
type Interpreter interface {
	Interpret(ctx context.Context, message string, snapshot []task.Task) (*Plan, error)
}

// systemPrompt tells the model what it may produce.
const systemPrompt = `You manage a personal todo list. Translate the user's message into task operations by calling ` + toolName + `.

Operations:
- "create": data.title is required. Optional data: description, priority, category, dueDate, completed.
- "update": identify an existing task, and put only the fields to change in data.
- "delete": identify an existing task.
- "query": the user is asking about their tasks rather than changing them. Put the search terms in searchQuery.

Identifying an existing task:
- Copy its "id" from the task list into taskId. Never invent an id.
- Only if you cannot tell which id is meant, set targetTitle to the title the user referred to.

Fields:
- priority is one of LOW, MEDIUM, HIGH. Leave it out unless the user implies urgency; the default is MEDIUM.
- dueDate is an RFC 3339 timestamp or a YYYY-MM-DD date. Resolve relative dates ("tomorrow", "next friday") against the current time below. Leave it out if no date is mentioned.
- To mark a task done, update it with data.completed true.

Rules:
- At most %d operations. Use as few as the message needs.
- Give every operation a one-sentence explanation.
- If the message asks for nothing, return an empty operations list.

Examples:
- "Add a task to email my boss tomorrow" → create, title "Email my boss", dueDate tomorrow
- "Delete the laundry task" → delete, taskId of the task with "laundry" in its title
- "Mark the meeting as high priority" → update, taskId of the meeting task, data.priority HIGH
- "Complete the grocery shopping task" → update, taskId of the grocery task, data.completed true`

// snapshotTask is the view of a task the model sees.
type snapshotTask struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// ModelInterpreter is the Interpreter backed by a hosted model.
type ModelInterpreter struct {
	client  model.Client
	schema  *Schema
	maxOps  int
	timeout time.Duration
	now     func() time.Time
}

// NewInterpreter creates a ModelInterpreter. Zero maxOps or timeout use the defaults.
func NewInterpreter(client model.Client, schema *Schema, maxOps int, timeout time.Duration) *ModelInterpreter {
	if maxOps <= 0 {
		maxOps = DefaultMaxOperations
	}
	if timeout <= 0 {
		timeout = model.DefaultTimeout
	}
	return &ModelInterpreter{client: client, schema: schema, maxOps: maxOps, timeout: timeout, now: time.Now}
}

// Interpret asks the model once. There are no retries.
func (m *ModelInterpreter) Interpret(ctx context.Context, message string, snapshot []task.Task) (*Plan, error) {
	req, err := m.request(message, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.client.Complete(ctx, req)
	if err != nil {
		log.Printf("assistant: model %s: %v", m.client.Name(), err)
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}

	plan, err := m.schema.Decode(raw)
	if err != nil {
		log.Printf("assistant: rejected model output: %v (%s)", err, truncate(string(raw), 300))
		return nil, fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	if len(plan.Operations) > m.maxOps {
		return nil, fmt.Errorf("%w: %d operations exceeds limit of %d", ErrTranslation, len(plan.Operations), m.maxOps)
	}
	return plan, nil
}

func (m *ModelInterpreter) request(message string, snapshot []task.Task) (model.Request, error) {
	view := make([]snapshotTask, 0, len(snapshot))
	for _, t := range snapshot {
		view = append(view, snapshotTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Completed:   t.Completed,
			Priority:    string(t.Priority),
			Category:    t.Category,
			DueDate:     t.DueDate,
		})
	}
	tasksJSON, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return model.Request{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, systemPrompt, m.maxOps)
	fmt.Fprintf(&b, "\n\nCurrent time (UTC): %s\n", m.now().UTC().Format(time.RFC3339))
	b.WriteString("\nCurrent tasks:\n")
	b.Write(tasksJSON)

	return model.Request{
		System: b.String(),
		User:   message,
		Tool: model.Tool{
			Name:        toolName,
			Description: "Apply create, update, delete or query operations to the user's todo list.",
			Parameters:  toolParameters,
		},
	}, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
