package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/launchkit/pkg/logger"
)

// Func is a side effect executed by a Runner.
type Func func(ctx context.Context) error

// Runner executes side effects after a state transition has committed.
type Runner interface {
	// Go schedules fn. The name identifies the call in logs.
	Go(ctx context.Context, name string, fn Func)
}

// Inline runs side effects synchronously on the calling goroutine.
type Inline struct {
	Logger *slog.Logger
}

// NewInline creates an inline runner logging failures to log (slog.Default when nil).
func NewInline(log *slog.Logger) *Inline {
	if log == nil {
		log = slog.Default()
	}
	return &Inline{Logger: log}
}

func (r *Inline) Go(ctx context.Context, name string, fn Func) {
	if fn == nil {
		return
	}
	run(ctx, r.Logger, name, fn)
}

// Dispatcher runs side effects on a pool of worker goroutines.
type Dispatcher struct {
	jobs    chan job
	logger  *slog.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

type job struct {
	ctx  context.Context
	name string
	fn   Func
}

// NewDispatcher starts the worker pool.
func NewDispatcher(opts ...Option) *Dispatcher {
	o := &options{
		workers:   1,
		queueSize: 128,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	d := &Dispatcher{
		jobs:   make(chan job, o.queueSize),
		logger: o.logger,
	}
	for range o.workers {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Go enqueues fn without blocking. Calls are dropped (and logged) when the
// dispatcher is closed or the queue is full.
func (d *Dispatcher) Go(ctx context.Context, name string, fn Func) {
	if fn == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.WarnContext(ctx, "dropped async call", logger.Event(name), logger.Error(ErrDispatcherClosed))
		return
	}

	// Detach from caller cancellation: the caller has already returned
	// by the time the job runs.
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), name: name, fn: fn}:
	default:
		d.dropped.Add(1)
		d.logger.WarnContext(ctx, "dropped async call", logger.Event(name), logger.Error(ErrQueueFull))
	}
}

// Dropped returns the number of calls rejected because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting calls and waits for queued calls to finish or ctx to expire.
// It is safe to call Close multiple times.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		run(j.ctx, d.logger, j.name, j.fn)
	}
}

func run(ctx context.Context, log *slog.Logger, name string, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "async call panicked", logger.Event(name), slog.Any("panic", r))
		}
	}()
	if err := fn(ctx); err != nil {
		log.WarnContext(ctx, "async call failed", logger.Event(name), logger.Error(err))
	}
}
