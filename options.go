package launchkit

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/environment"
	"github.com/dmitrymomot/launchkit/pkg/notify"
	"github.com/dmitrymomot/launchkit/pkg/persistence"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	store        persistence.Store
	telemetry    telemetry.Sink
	notifier     notify.Sink
	runner       async.Runner
	logger       *slog.Logger
	env          environment.Environment
	feedBuffer   int
	topN         int
	recentAlerts int
	historyLimit int
	now          func() time.Time
}

// WithStore sets where collections are saved. Defaults to an in-memory store.
func WithStore(s persistence.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithTelemetry sets the sink receiving every decision and state change event.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.telemetry = sink
		}
	}
}

// WithNotifier sets the sink delivering alert events.
func WithNotifier(s notify.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.notifier = s
		}
	}
}

// WithRunner dispatches telemetry, notifications and hooks through r.
// Pass an async.Dispatcher to take them off the caller goroutine; the
// Engine closes it on Close.
func WithRunner(r async.Runner) Option {
	return func(o *options) {
		if r != nil {
			o.runner = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEnvironment controls whether per-subject flag overrides are honored.
func WithEnvironment(env environment.Environment) Option {
	return func(o *options) { o.env = env }
}

// WithChangefeedBuffer sets the per-subscriber buffer of the change feed.
func WithChangefeedBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.feedBuffer = n
		}
	}
}

// WithTopPriorities sets how many priorities the status report lists.
func WithTopPriorities(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithRecentAlerts sets how many alerts the status report lists. Zero hides the section.
func WithRecentAlerts(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.recentAlerts = n
		}
	}
}

// WithAlertHistoryLimit caps the retained alert history.
func WithAlertHistoryLimit(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.historyLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
