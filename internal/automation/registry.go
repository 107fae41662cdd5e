package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// taskRegistry holds every task of the process. Each mutation bumps the
// task's Version and wakes watchers.
type taskRegistry struct {
	mu         sync.RWMutex
	tasks      map[string]*Task
	lastMillis int64
	changed    chan struct{}
	now        func() time.Time
}

func newTaskRegistry(now func() time.Time) *taskRegistry {
	return &taskRegistry{
		tasks:   make(map[string]*Task),
		changed: make(chan struct{}),
		now:     now,
	}
}

// create assigns a strictly increasing task_<millis> id and stores t.
func (r *taskRegistry) create(t *Task) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	millis := r.now().UnixMilli()
	if millis <= r.lastMillis {
		millis = r.lastMillis + 1
	}
	r.lastMillis = millis

	t.ID = fmt.Sprintf("task_%d", millis)
	t.Version = 1
	r.tasks[t.ID] = t
	r.notifyLocked()
	return t.ID
}

// update applies fn to the task under the write lock.
func (r *taskRegistry) update(id string, fn func(t *Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return
	}
	fn(t)
	t.Version++
	r.notifyLocked()
}

func (r *taskRegistry) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *taskRegistry) get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

func (r *taskRegistry) list() []Task {
	r.mu.RLock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) < len(out[j].ID)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// wait blocks until the task's version exceeds after, the task is gone, or
// ctx ends.
func (r *taskRegistry) wait(ctx context.Context, id string, after int) (Task, error) {
	for {
		r.mu.RLock()
		t, ok := r.tasks[id]
		var snap Task
		if ok && t.Version > after {
			snap = t.clone()
		}
		changed := r.changed
		r.mu.RUnlock()

		if !ok {
			return Task{}, ErrTaskNotFound
		}
		if snap.ID != "" {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-changed:
		}
	}
}

// sweep drops finished tasks that completed before cutoff.
func (r *taskRegistry) sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, t := range r.tasks {
		if t.Done() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(r.tasks, id)
			n++
		}
	}
	return n
}
