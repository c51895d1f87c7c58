package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

func TestTodoCreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "u1", "POST", "/api/todos", map[string]any{
		"title":    "  Buy milk ",
		"priority": "high",
		"category": "errands",
		"dueDate":  "2026-03-02",
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	created := decode[task.Task](t, rec)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, task.High, created.Priority)
	assert.Equal(t, "errands", created.Category)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "u1", created.UserID)

	rec = env.do(t, "u1", "GET", "/api/todos/"+created.ID, nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, created.ID, decode[task.Task](t, rec).ID)

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.TypeTaskCreated, events[0].Type)
	assert.Equal(t, "u1", events[0].UserID)
}

func TestTodoCreateInvalidPriorityDefaultsToMedium(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "u1", "POST", "/api/todos", map[string]any{"title": "Stretch", "priority": "urgent"})
	require.Equal(t, 201, rec.Code)
	assert.Equal(t, task.Medium, decode[task.Task](t, rec).Priority)
}

func TestTodoCreateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	for name, body := range map[string]any{
		"missing title": map[string]any{"priority": "LOW"},
		"blank title":   map[string]any{"title": "   "},
		"bad due date":  map[string]any{"title": "x", "dueDate": "someday"},
		"numeric due":   map[string]any{"title": "x", "dueDate": 12},
	} {
		rec := env.do(t, "u1", "POST", "/api/todos", body)
		assert.Equal(t, 400, rec.Code, name)
	}
	assert.Zero(t, env.tasks.Calls["Create"])
}

func TestTodoUpdate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "u1", "POST", "/api/todos", map[string]any{"title": "Call mom", "dueDate": "2026-03-05"})
	require.Equal(t, 201, rec.Code)
	id := decode[task.Task](t, rec).ID

	rec = env.do(t, "u1", "PATCH", "/api/todos/"+id, map[string]any{"completed": true, "dueDate": nil})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	updated := decode[task.Task](t, rec)
	assert.True(t, updated.Completed)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "Call mom", updated.Title)

	rec = env.do(t, "u1", "PATCH", "/api/todos/"+id, map[string]any{})
	assert.Equal(t, 400, rec.Code)

	rec = env.do(t, "u1", "PATCH", "/api/todos/missing", map[string]any{"title": "x"})
	assert.Equal(t, 404, rec.Code)
}

func TestTodoToggleAndDelete(t *testing.T) {
	env := newTestEnv(t)
	tk := env.tasks.Add("u1", "Water plants")

	rec := env.do(t, "u1", "PATCH", "/api/todos/"+tk.ID+"/toggle", nil)
	require.Equal(t, 200, rec.Code)
	assert.True(t, decode[task.Task](t, rec).Completed)

	rec = env.do(t, "u1", "PATCH", "/api/todos/"+tk.ID+"/toggle", nil)
	require.Equal(t, 200, rec.Code)
	assert.False(t, decode[task.Task](t, rec).Completed)

	rec = env.do(t, "u1", "DELETE", "/api/todos/"+tk.ID, nil)
	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, env.tasks.All())

	rec = env.do(t, "u1", "DELETE", "/api/todos/"+tk.ID, nil)
	assert.Equal(t, 404, rec.Code)
}

func TestTodosAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	mine := env.tasks.Add("u1", "Mine")
	env.tasks.Add("u2", "Theirs")

	rec := env.do(t, "u2", "GET", "/api/todos/"+mine.ID, nil)
	assert.Equal(t, 404, rec.Code)
	rec = env.do(t, "u2", "PATCH", "/api/todos/"+mine.ID, map[string]any{"title": "Stolen"})
	assert.Equal(t, 404, rec.Code)
	rec = env.do(t, "u2", "PATCH", "/api/todos/"+mine.ID+"/toggle", nil)
	assert.Equal(t, 404, rec.Code)
	rec = env.do(t, "u2", "DELETE", "/api/todos/"+mine.ID, nil)
	assert.Equal(t, 404, rec.Code)

	rec = env.do(t, "u1", "GET", "/api/todos", nil)
	require.Equal(t, 200, rec.Code)
	list := decode[[]task.Task](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Mine", list[0].Title)
}

func TestTodoListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "u1", "POST", "/api/todos", map[string]any{"title": "Buy milk", "category": "errands", "priority": "LOW"})
	env.do(t, "u1", "POST", "/api/todos", map[string]any{"title": "Write report", "priority": "HIGH", "completed": true})

	list := decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos?completed=true", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Write report", list[0].Title)

	list = decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos?priority=low", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Title)

	list = decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos?q=MILK", nil))
	require.Len(t, list, 1)

	list = decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos?category=errands", nil))
	require.Len(t, list, 1)

	assert.Equal(t, 400, env.do(t, "u1", "GET", "/api/todos?completed=maybe", nil).Code)
	assert.Equal(t, 400, env.do(t, "u1", "GET", "/api/todos?priority=urgent", nil).Code)
}

func TestTodoListCacheInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.Add("u1", "First")

	list := decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos", nil))
	require.Len(t, list, 1)

	// a write that bypasses the API is not visible until the cache expires
	env.tasks.Add("u1", "Behind the cache")
	list = decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos", nil))
	assert.Len(t, list, 1)

	rec := env.do(t, "u1", "POST", "/api/todos", map[string]any{"title": "Third"})
	require.Equal(t, 201, rec.Code)
	list = decode[[]task.Task](t, env.do(t, "u1", "GET", "/api/todos", nil))
	assert.Len(t, list, 3)
}

func TestTodoStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.tasks.FindManyErr = assert.AnError
	rec := env.do(t, "u1", "GET", "/api/todos", nil)
	assert.Equal(t, 500, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
