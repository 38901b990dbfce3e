package experiment

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTelemetry sets the sink receiving assignments and conversions.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(m *Manager) {
		if sink != nil {
			m.telemetry = sink
		}
	}
}

func WithChanges(p changefeed.Publisher) Option {
	return func(m *Manager) {
		if p != nil {
			m.changes = p
		}
	}
}

// WithRunner sets how telemetry is dispatched. Defaults to async.Inline.
func WithRunner(r async.Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
