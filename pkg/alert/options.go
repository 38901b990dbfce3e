package alert

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/notify"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier sets the sink that delivers events to operators.
func WithNotifier(s notify.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.notifier = s
		}
	}
}

func WithTelemetry(sink telemetry.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.telemetry = sink
		}
	}
}

func WithChanges(p changefeed.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.changes = p
		}
	}
}

// WithRunner sets how notifications and telemetry are dispatched. Defaults to async.Inline.
func WithRunner(r async.Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithHistoryLimit keeps at most n events, dropping the oldest. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.historyLimit = n
		}
	}
}

// WithIDGenerator replaces the UUID generator used for event ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// ConfigOption adjusts a single Configure call.
type ConfigOption func(*Config)

// WithCooldown suppresses repeated triggers of the signal for d after each event.
func WithCooldown(d time.Duration) ConfigOption {
	return func(c *Config) { c.Cooldown = d }
}
