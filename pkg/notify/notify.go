// Package notify delivers alerts to operators.
//
// The engine only knows the Sink interface. Adapters are provided for slog,
// Postmark e-mail and in-memory recording; Deferred honours the
// triggerAfter delay for sinks that can only deliver immediately.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/logger"
)

// Sink delivers a notification. after is the requested delivery delay; zero
// means deliver now.
type Sink interface {
	Notify(ctx context.Context, title, body string, after time.Duration) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, title, body string, after time.Duration) error

func (f SinkFunc) Notify(ctx context.Context, title, body string, after time.Duration) error {
	return f(ctx, title, body, after)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, time.Duration) error { return nil }

// Multi delivers through every sink, best effort; failures are joined.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, title, body string, after time.Duration) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, title, body, after); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes notifications to a logger at warn level.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{logger: log}
}

func (s *LogSink) Notify(ctx context.Context, title, body string, after time.Duration) error {
	s.logger.WarnContext(ctx, title,
		slog.String("body", body),
		logger.Duration(after),
	)
	return nil
}

// Message is a notification captured by Recorder.
type Message struct {
	Title string
	Body  string
	After time.Duration
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(_ context.Context, title, body string, after time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Title: title, Body: body, After: after})
	return nil
}

// Messages returns the recorded notifications in delivery order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

// Deferred postpones delivery by the requested delay using a timer. Delivery
// errors of postponed notifications are logged; Stop cancels pending ones.
type Deferred struct {
	next   Sink
	logger *slog.Logger
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func NewDeferred(next Sink, log *slog.Logger) *Deferred {
	if log == nil {
		log = slog.Default()
	}
	return &Deferred{next: next, logger: log, timers: make(map[*time.Timer]struct{})}
}

func (d *Deferred) Notify(ctx context.Context, title, body string, after time.Duration) error {
	if after <= 0 {
		return d.next.Notify(ctx, title, body, 0)
	}

	ctx = context.WithoutCancel(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(after, func() {
		d.mu.Lock()
		delete(d.timers, timer)
		d.mu.Unlock()

		if err := d.next.Notify(ctx, title, body, 0); err != nil {
			d.logger.WarnContext(ctx, "deferred notification failed",
				slog.String("title", title),
				logger.Error(err),
			)
		}
	})
	d.timers[timer] = struct{}{}
	return nil
}

// Pending returns the number of notifications waiting for their delay.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending notification.
func (d *Deferred) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for t := range d.timers {
		t.Stop()
	}
	clear(d.timers)
}
