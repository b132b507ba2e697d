package watch

import (
	"context"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// RunFunc runs one task to completion.
type RunFunc func(ctx context.Context, name string) error

type slot struct {
	running bool
	pending bool
}

// Queue serializes runs per task name. While a task runs, any number of
// further triggers collapse into exactly one follow-up run.
type Queue struct {
	run RunFunc

	mu    sync.Mutex
	slots map[string]*slot
	wg    sync.WaitGroup
}

// NewQueue creates a queue that executes tasks with run.
func NewQueue(run RunFunc) *Queue {
	return &Queue{run: run, slots: make(map[string]*slot)}
}

// Trigger schedules a run of name and returns immediately.
func (q *Queue) Trigger(ctx context.Context, name string) {
	q.mu.Lock()
	s, ok := q.slots[name]
	if !ok {
		s = &slot{}
		q.slots[name] = s
	}
	if s.running {
		s.pending = true
		q.mu.Unlock()
		return
	}
	s.running = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.loop(ctx, name, s)
}

func (q *Queue) loop(ctx context.Context, name string, s *slot) {
	defer q.wg.Done()
	logger := ctxlog.FromContext(ctx)
	for {
		if err := q.run(ctx, name); err != nil {
			// The watch loop stays live after a failed rebuild.
			logger.Error("Triggered task failed.", "task", name, "error", err)
		}

		q.mu.Lock()
		if s.pending && ctx.Err() == nil {
			s.pending = false
			q.mu.Unlock()
			continue
		}
		s.pending = false
		s.running = false
		q.mu.Unlock()
		return
	}
}

// Wait blocks until every scheduled run has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}
