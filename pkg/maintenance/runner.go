// Package maintenance runs periodic housekeeping tasks (persisting state,
// logging status reports) on a schedule until its context is cancelled.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/logger"
)

// TaskFunc is the body of a periodic task.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	schedule Schedule
	fn       TaskFunc
	next     time.Time
	runs     int
}

// Runner checks registered tasks every tick and runs the ones that are due,
// one at a time, on the goroutine that called Start.
type Runner struct {
	mu       sync.Mutex
	tasks    map[string]*task
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	running  atomic.Bool
}

type Option func(*Runner)

// WithCheckInterval sets how often due tasks are checked. Default is one second.
func WithCheckInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		tasks:    make(map[string]*task),
		interval: time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTask registers fn to run on schedule. The first run happens at
// schedule.Next(time the task was added).
func (r *Runner) AddTask(name string, schedule Schedule, fn TaskFunc) error {
	if name == "" || schedule == nil || fn == nil {
		return ErrInvalidTask
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, name)
	}
	r.tasks[name] = &task{name: name, schedule: schedule, fn: fn, next: schedule.Next(r.now())}
	return nil
}

// Tasks returns registered task names in lexical order.
func (r *Runner) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Runs returns how many times the named task has completed.
func (r *Runner) Runs(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[name]; ok {
		return t.runs
	}
	return 0
}

// Running reports whether Start is active.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RunNow executes the named task immediately, outside its schedule.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	t, ok := r.tasks[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return r.execute(ctx, t)
}

// Start blocks, running due tasks until ctx is cancelled. It returns
// ctx.Err() on shutdown.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	count := len(r.tasks)
	r.mu.Unlock()
	if count == 0 {
		return ErrNoTasks
	}
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "maintenance runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runDue(ctx)
		}
	}
}

func (r *Runner) runDue(ctx context.Context) {
	now := r.now()

	r.mu.Lock()
	due := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if !now.Before(t.next) {
			t.next = t.schedule.Next(now)
			due = append(due, t)
		}
	}
	r.mu.Unlock()

	slices.SortFunc(due, func(a, b *task) int { return strings.Compare(a.name, b.name) })
	for _, t := range due {
		if ctx.Err() != nil {
			return
		}
		_ = r.execute(ctx, t)
	}
}

func (r *Runner) execute(ctx context.Context, t *task) (err error) {
	start := r.now()
	ctx = logger.ContextWith(ctx, logger.Task(t.name))
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("maintenance task %s panicked: %v", t.name, p)
		}
		if err != nil {
			r.logger.ErrorContext(ctx, "maintenance task failed", logger.Error(err))
			return
		}
		r.mu.Lock()
		t.runs++
		r.mu.Unlock()
		r.logger.DebugContext(ctx, "maintenance task finished", logger.Duration(r.now().Sub(start)))
	}()
	return t.fn(ctx)
}
