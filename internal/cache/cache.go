// Package cache keeps a short-lived copy of each user's task list.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tasktalk/pkg/task"
)

// DefaultTTL is how long a cached list is served before reloading.
const DefaultTTL = 30 * time.Second

// LoadFunc fetches a fresh list from the store.
type LoadFunc func(ctx context.Context) ([]task.Task, error)

type entry struct {
	tasks   []task.Task
	expires time.Time
	gen     uint64
}

// TaskCache is a read-through cache of task lists keyed by user ID.
// Concurrent misses for the same user share one load.
type TaskCache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
}

// New creates a TaskCache. A zero ttl means DefaultTTL.
func New(ttl time.Duration) *TaskCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TaskCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// Get returns the user's cached list, calling load on a miss.
// The returned slice is a copy the caller may modify.
func (c *TaskCache) Get(ctx context.Context, userID string, load LoadFunc) ([]task.Task, error) {
	c.mu.Lock()
	e, ok := c.entries[userID]
	gen := c.gens[userID]
	c.mu.Unlock()
	if ok && e.gen == gen && c.now().Before(e.expires) {
		return clone(e.tasks), nil
	}

	v, err, _ := c.group.Do(userID, func() (any, error) {
		tasks, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// an Invalidate during the load makes this result stale; don't keep it
		if c.gens[userID] == gen {
			c.entries[userID] = entry{tasks: tasks, expires: c.now().Add(c.ttl), gen: gen}
		}
		c.mu.Unlock()
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]task.Task)), nil
}

// Invalidate drops the user's cached list.
func (c *TaskCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.gens[userID]++
	c.mu.Unlock()
	c.group.Forget(userID)
}

func clone(tasks []task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	return out
}
