// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tasktalk/pkg/task"
)

// FakeTaskStore is an in-memory task.Store.
type FakeTaskStore struct {
	mu    sync.Mutex
	tasks []task.Task
	seq   int
	now   time.Time

	// Error injection
	CreateErr   error
	FindManyErr error
	UpdateErr   error
	DeleteErr   error

	// Calls counts mutating calls by method name.
	Calls map[string]int
}

// NewFakeTaskStore creates an empty store.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{
		now:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Calls: make(map[string]int),
	}
}

// Add inserts a task directly and returns it.
func (f *FakeTaskStore) Add(userID, title string) task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.newTask(userID, task.Fields{Title: &title})
	f.tasks = append(f.tasks, t)
	return t
}

// All returns every stored task regardless of owner.
func (f *FakeTaskStore) All() []task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]task.Task(nil), f.tasks...)
}

func (f *FakeTaskStore) newTask(userID string, in task.Fields) task.Task {
	f.seq++
	f.now = f.now.Add(time.Minute)
	t := task.Task{
		ID:        fmt.Sprintf("task-%d", f.seq),
		Priority:  task.DefaultPriority,
		UserID:    userID,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	apply(&t, in)
	return t
}

func apply(t *task.Task, in task.Fields) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.ClearDueDate {
		t.DueDate = nil
	}
}

func (f *FakeTaskStore) find(userID, id string) int {
	for i, t := range f.tasks {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}

// Create implements task.Store.
func (f *FakeTaskStore) Create(_ context.Context, userID string, in task.Fields) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["Create"]++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	t := f.newTask(userID, in)
	f.tasks = append(f.tasks, t)
	return &t, nil
}

// FindMany implements task.Store.
func (f *FakeTaskStore) FindMany(_ context.Context, userID string, filter task.Filter) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FindManyErr != nil {
		return nil, f.FindManyErr
	}
	out := []task.Task{}
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	task.Sort(out)
	return out, nil
}

// FindByID implements task.Store.
func (f *FakeTaskStore) FindByID(_ context.Context, userID, id string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(userID, id)
	if i < 0 {
		return nil, task.ErrNotFound
	}
	t := f.tasks[i]
	return &t, nil
}

// FindByTitle implements task.Store.
func (f *FakeTaskStore) FindByTitle(ctx context.Context, userID, title string) ([]task.Task, error) {
	all, err := f.FindMany(ctx, userID, task.Filter{})
	if err != nil {
		return nil, err
	}
	return task.MatchExact(all, title), nil
}

// FindByIDOrTitle implements task.Store.
func (f *FakeTaskStore) FindByIDOrTitle(ctx context.Context, userID, ref string) (*task.Task, error) {
	if t, err := f.FindByID(ctx, userID, ref); err == nil {
		return t, nil
	}
	matches, err := f.FindByTitle(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, task.ErrNotFound
	}
	return &matches[0], nil
}

// Update implements task.Store.
func (f *FakeTaskStore) Update(_ context.Context, userID, id string, in task.Fields) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["Update"]++
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	i := f.find(userID, id)
	if i < 0 {
		return nil, task.ErrNotFound
	}
	apply(&f.tasks[i], in)
	f.now = f.now.Add(time.Minute)
	f.tasks[i].UpdatedAt = f.now
	t := f.tasks[i]
	return &t, nil
}

// Delete implements task.Store.
func (f *FakeTaskStore) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["Delete"]++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	i := f.find(userID, id)
	if i < 0 {
		return task.ErrNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

// ToggleCompleted implements task.Store.
func (f *FakeTaskStore) ToggleCompleted(_ context.Context, userID, id string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["ToggleCompleted"]++
	i := f.find(userID, id)
	if i < 0 {
		return nil, task.ErrNotFound
	}
	f.tasks[i].Completed = !f.tasks[i].Completed
	t := f.tasks[i]
	return &t, nil
}

// Count implements task.Store.
func (f *FakeTaskStore) Count(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// EnsureTable implements task.Store.
func (f *FakeTaskStore) EnsureTable(context.Context) error { return nil }
