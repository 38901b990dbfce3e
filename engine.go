package launchkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/alert"
	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/environment"
	"github.com/dmitrymomot/launchkit/pkg/experiment"
	"github.com/dmitrymomot/launchkit/pkg/feature"
	"github.com/dmitrymomot/launchkit/pkg/feedback"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/notify"
	"github.com/dmitrymomot/launchkit/pkg/persistence"
	"github.com/dmitrymomot/launchkit/pkg/report"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

const (
	defaultFeedBuffer   = 64
	defaultRecentAlerts = 5
)

// Engine owns every component and the wiring between them.
type Engine struct {
	flags       *feature.Store
	experiments *experiment.Manager
	feedback    *feedback.Collector
	alerts      *alert.Engine
	reporter    *report.Reporter

	feed   *changefeed.Feed
	store  persistence.Store
	runner async.Runner
	logger *slog.Logger
}

// New builds an engine with empty state. Call Load to restore persisted state.
func New(opts ...Option) *Engine {
	o := &options{
		store:        persistence.NewMemoryStore(),
		telemetry:    telemetry.Nop{},
		notifier:     notify.Nop{},
		logger:       slog.Default(),
		env:          environment.Development,
		feedBuffer:   defaultFeedBuffer,
		topN:         report.DefaultTopPriorities,
		recentAlerts: defaultRecentAlerts,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = async.NewInline(o.logger)
	}

	e := &Engine{
		feed:   changefeed.New(o.feedBuffer),
		store:  o.store,
		runner: o.runner,
		logger: o.logger.With(logger.Component("engine")),
	}

	e.alerts = alert.NewEngine(
		alert.WithLogger(o.logger),
		alert.WithNotifier(o.notifier),
		alert.WithTelemetry(o.telemetry),
		alert.WithChanges(e.feed),
		alert.WithRunner(o.runner),
		alert.WithHistoryLimit(o.historyLimit),
		alert.WithClock(o.now),
	)
	e.flags = feature.NewStore(
		feature.WithLogger(o.logger),
		feature.WithTelemetry(o.telemetry),
		feature.WithChanges(e.feed),
		feature.WithRunner(o.runner),
		feature.WithEnvironment(o.env),
		feature.WithRollbackHook(e.onRollback),
		feature.WithClock(o.now),
	)
	e.experiments = experiment.NewManager(
		experiment.WithLogger(o.logger),
		experiment.WithTelemetry(o.telemetry),
		experiment.WithChanges(e.feed),
		experiment.WithRunner(o.runner),
		experiment.WithClock(o.now),
	)
	e.feedback = feedback.NewCollector(
		feedback.WithLogger(o.logger),
		feedback.WithTelemetry(o.telemetry),
		feedback.WithChanges(e.feed),
		feedback.WithRunner(o.runner),
		feedback.WithAverageObserver(e.onAverage),
		feedback.WithClock(o.now),
	)

	reportOpts := []report.Option{report.WithTopPriorities(o.topN)}
	if o.recentAlerts > 0 {
		reportOpts = append(reportOpts, report.WithAlerts(e.alerts, o.recentAlerts))
	}
	e.reporter = report.New(e.feedback, e.experiments, e.flags, reportOpts...)
	return e
}

func (e *Engine) Flags() *feature.Store { return e.flags }

func (e *Engine) Experiments() *experiment.Manager { return e.experiments }

func (e *Engine) Feedback() *feedback.Collector { return e.feedback }

func (e *Engine) Alerts() *alert.Engine { return e.alerts }

// Subscribe returns a subscription to every committed change. It ends when
// ctx is cancelled or the engine is closed.
func (e *Engine) Subscribe(ctx context.Context) *changefeed.Subscription {
	return e.feed.Subscribe(ctx)
}

// StatusReport renders a plain-text summary of the current state.
func (e *Engine) StatusReport(ctx context.Context) string {
	return e.reporter.StatusReport(ctx)
}

// Close ends all subscriptions and drains the runner when it supports closing.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.feed.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := e.runner.(interface{ Close(context.Context) error }); ok {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close runner: %w", err))
		}
	}
	return errors.Join(errs...)
}

// onAverage feeds new average ratings to the feedback_rating alert.
func (e *Engine) onAverage(ctx context.Context, feature string, avg float64) {
	if !e.alerts.ShouldTrigger(alert.SignalFeedbackRating, avg) {
		return
	}
	msg := fmt.Sprintf("average rating of %s dropped to %.2f", feature, avg)
	e.alerts.Trigger(ctx, alert.SignalFeedbackRating, avg, msg)
}

// onRollback raises a critical alert for every rollback.
func (e *Engine) onRollback(ctx context.Context, r feature.Rollout) {
	msg := fmt.Sprintf("rollout of %s rolled back at %.0f%%", r.Feature, r.CurrentPercentage*100)
	if _, err := e.alerts.Raise(ctx, alert.SignalRolloutRollback, alert.SeverityCritical, msg, r.CurrentPercentage); err != nil {
		e.logger.ErrorContext(ctx, "rollback alert not raised", logger.Feature(r.Feature), logger.Error(err))
	}
}
