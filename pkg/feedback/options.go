package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// AverageObserver receives the new average of a feature after each collected entry.
type AverageObserver func(ctx context.Context, feature string, average float64)

// Option configures a Collector.
type Option func(*Collector)

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTelemetry(sink telemetry.Sink) Option {
	return func(c *Collector) {
		if sink != nil {
			c.telemetry = sink
		}
	}
}

func WithChanges(p changefeed.Publisher) Option {
	return func(c *Collector) {
		if p != nil {
			c.changes = p
		}
	}
}

// WithRunner sets how telemetry and observers are dispatched. Defaults to async.Inline.
func WithRunner(r async.Runner) Option {
	return func(c *Collector) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithAverageObserver registers fn to be called with every new average.
func WithAverageObserver(fn AverageObserver) Option {
	return func(c *Collector) { c.observer = fn }
}

// WithIDGenerator replaces the UUID generator used for entry ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Collector) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}
