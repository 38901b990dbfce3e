package feature

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/environment"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// RollbackHook is called after a rollback has been committed.
type RollbackHook func(ctx context.Context, r Rollout)

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTelemetry sets the sink receiving flag evaluations and rollout changes.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.telemetry = sink
		}
	}
}

// WithChanges publishes a change notification for every committed mutation.
func WithChanges(p changefeed.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.changes = p
		}
	}
}

// WithRunner sets how telemetry and hooks are dispatched. Defaults to async.Inline.
func WithRunner(r async.Runner) Option {
	return func(s *Store) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithEnvironment controls whether overrides are honored. Overrides are
// rejected and ignored when env.IsRelease().
func WithEnvironment(env environment.Environment) Option {
	return func(s *Store) { s.env = env }
}

// WithRollbackHook registers a hook invoked for every rollback.
func WithRollbackHook(h RollbackHook) Option {
	return func(s *Store) { s.onRollback = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
