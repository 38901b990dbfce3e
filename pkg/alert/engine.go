package alert

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/notify"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Engine evaluates observations against alert configurations.
type Engine struct {
	mu            sync.RWMutex
	configs       map[Signal]*Config
	history       []Event
	lastTriggered map[Signal]time.Time
	historyLimit  int

	notifier  notify.Sink
	telemetry telemetry.Sink
	changes   changefeed.Publisher
	runner    async.Runner
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		configs:       make(map[Signal]*Config),
		lastTriggered: make(map[Signal]time.Time),
		notifier:      notify.Nop{},
		telemetry:     telemetry.Nop{},
		changes:       changefeed.Nop{},
		newID:         uuid.NewString,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = async.NewInline(e.logger)
	}
	e.logger = e.logger.With(logger.Component("alert"))
	return e
}

// Configure creates or replaces the configuration of signal.
func (e *Engine) Configure(ctx context.Context, signal Signal, threshold float64, direction Direction, enabled bool, opts ...ConfigOption) (Config, error) {
	c := Config{
		Signal:    signal,
		Threshold: threshold,
		Direction: direction,
		Enabled:   enabled,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := validateConfig(c); err != nil {
		return Config{}, err
	}

	e.mu.Lock()
	c.UpdatedAt = e.now()
	e.configs[signal] = &c
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "alert configured",
		logger.Signal(string(signal)),
		slog.Float64("threshold", threshold),
		slog.String("direction", string(direction)),
		slog.Bool("enabled", enabled),
	)
	e.publish(ctx, changefeed.AlertConfigured, string(signal))
	return c, nil
}

// Config returns the configuration of signal.
func (e *Engine) Config(signal Signal) (Config, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.configs[signal]
	if !ok {
		return Config{}, false
	}
	return *c, true
}

// SetEnabled switches an existing configuration on or off.
func (e *Engine) SetEnabled(ctx context.Context, signal Signal, enabled bool) (Config, error) {
	e.mu.Lock()
	c, ok := e.configs[signal]
	if !ok {
		e.mu.Unlock()
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, signal)
	}
	c.Enabled = enabled
	c.UpdatedAt = e.now()
	out := *c
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "alert toggled", logger.Signal(string(signal)), slog.Bool("enabled", enabled))
	e.publish(ctx, changefeed.AlertConfigured, string(signal))
	return out, nil
}

// Configs returns every configuration sorted by signal.
func (e *Engine) Configs() []Config {
	e.mu.RLock()
	out := make([]Config, 0, len(e.configs))
	for _, c := range e.configs {
		out = append(out, *c)
	}
	e.mu.RUnlock()

	slices.SortFunc(out, func(a, b Config) int { return cmp.Compare(a.Signal, b.Signal) })
	return out
}

// ShouldTrigger reports whether value crosses the enabled threshold of
// signal. Values equal to the threshold never trigger.
func (e *Engine) ShouldTrigger(signal Signal, value float64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.configs[signal]
	return ok && c.Enabled && c.crossed(value)
}

// Trigger records an event when value crosses the threshold of signal and
// the signal is not cooling down. It reports false when nothing was raised.
// An empty message is replaced with a description of the crossed threshold.
func (e *Engine) Trigger(ctx context.Context, signal Signal, value float64, message string) (Event, bool) {
	e.mu.Lock()
	c, ok := e.configs[signal]
	if !ok || !c.Enabled || !c.crossed(value) {
		e.mu.Unlock()
		return Event{}, false
	}
	now := e.now()
	if last, seen := e.lastTriggered[signal]; seen && c.Cooldown > 0 && now.Sub(last) < c.Cooldown {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "alert suppressed by cooldown",
			logger.Signal(string(signal)),
			slog.Float64("value", value),
			logger.Duration(c.Cooldown),
		)
		return Event{}, false
	}
	if message == "" {
		message = fmt.Sprintf("%s %s %g", signal, strings.ReplaceAll(string(c.Direction), "_", " "), c.Threshold)
	}
	ev := Event{
		ID:        e.newID(),
		Signal:    signal,
		Severity:  c.severity(value),
		Timestamp: now,
		Message:   message,
		Value:     value,
		Threshold: c.Threshold,
	}
	e.appendLocked(ev)
	e.lastTriggered[signal] = now
	e.mu.Unlock()

	e.deliver(ctx, ev)
	return ev, true
}

// Raise records an event regardless of thresholds and cooldowns. It is used
// for operational signals such as rollout rollbacks.
func (e *Engine) Raise(ctx context.Context, signal Signal, severity Severity, message string, value float64) (Event, error) {
	if signal == "" {
		return Event{}, ErrEmptySignal
	}
	if !severity.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
	}

	e.mu.Lock()
	ev := Event{
		ID:        e.newID(),
		Signal:    signal,
		Severity:  severity,
		Timestamp: e.now(),
		Message:   message,
		Value:     value,
	}
	if c, ok := e.configs[signal]; ok {
		ev.Threshold = c.Threshold
	}
	e.appendLocked(ev)
	e.mu.Unlock()

	e.deliver(ctx, ev)
	return ev, nil
}

// History returns the alert log in chronological order, limited to the given
// signals when any are passed.
func (e *Engine) History(signals ...Signal) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, 0, len(e.history))
	for _, ev := range e.history {
		if len(signals) == 0 || slices.Contains(signals, ev.Signal) {
			out = append(out, ev)
		}
	}
	return out
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Configs []Config `json:"configs"`
	History []Event  `json:"history"`
}

// Snapshot copies configurations and history.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{Configs: e.Configs(), History: e.History()}
}

// RestoreConfigs replaces every configuration. On error the engine is left untouched.
func (e *Engine) RestoreConfigs(ctx context.Context, configs []Config) error {
	next := make(map[Signal]*Config, len(configs))
	var errs []error
	for i, c := range configs {
		if err := validateConfig(c); err != nil {
			errs = append(errs, fmt.Errorf("%w: alert_configs[%d]: %w", ErrInvalidSnapshot, i, err))
			continue
		}
		if _, dup := next[c.Signal]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate config %s", ErrInvalidSnapshot, c.Signal))
			continue
		}
		cp := c
		next[c.Signal] = &cp
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	e.mu.Lock()
	e.configs = next
	e.mu.Unlock()

	e.publish(ctx, changefeed.StateRestored, "alert_configs")
	return nil
}

// RestoreHistory replaces the alert log. Cooldowns resume from the latest
// restored event of each signal.
func (e *Engine) RestoreHistory(ctx context.Context, events []Event) error {
	var errs []error
	for i, ev := range events {
		switch {
		case ev.ID == "":
			errs = append(errs, fmt.Errorf("%w: alert_history[%d]: empty id", ErrInvalidSnapshot, i))
		case ev.Signal == "":
			errs = append(errs, fmt.Errorf("%w: alert_history[%d]: empty signal", ErrInvalidSnapshot, i))
		case !ev.Severity.Valid():
			errs = append(errs, fmt.Errorf("%w: alert_history[%d]: unknown severity %q", ErrInvalidSnapshot, i, ev.Severity))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	last := make(map[Signal]time.Time)
	for _, ev := range events {
		if ev.Timestamp.After(last[ev.Signal]) {
			last[ev.Signal] = ev.Timestamp
		}
	}

	e.mu.Lock()
	e.history = slices.Clone(events)
	e.trimLocked()
	e.lastTriggered = last
	e.mu.Unlock()

	e.publish(ctx, changefeed.StateRestored, "alert_history")
	return nil
}

func (e *Engine) appendLocked(ev Event) {
	e.history = append(e.history, ev)
	e.trimLocked()
}

func (e *Engine) trimLocked() {
	if e.historyLimit > 0 && len(e.history) > e.historyLimit {
		e.history = slices.Clone(e.history[len(e.history)-e.historyLimit:])
	}
}

// deliver fans a committed event out to logs, subscribers, telemetry and the notifier.
func (e *Engine) deliver(ctx context.Context, ev Event) {
	e.logger.WarnContext(ctx, "alert raised",
		logger.Signal(string(ev.Signal)),
		slog.String("severity", string(ev.Severity)),
		slog.Float64("value", ev.Value),
		slog.Float64("threshold", ev.Threshold),
	)
	e.publish(ctx, changefeed.AlertRaised, string(ev.Signal))

	e.runner.Go(ctx, "telemetry."+telemetry.EventAlertTriggered, func(ctx context.Context) error {
		return e.telemetry.Emit(ctx, telemetry.EventAlertTriggered, map[string]any{
			"signal":    string(ev.Signal),
			"severity":  string(ev.Severity),
			"value":     ev.Value,
			"threshold": ev.Threshold,
		})
	})

	title, body := Format(ev)
	e.runner.Go(ctx, "notify."+string(ev.Signal), func(ctx context.Context) error {
		return e.notifier.Notify(ctx, title, body, 0)
	})
}

func (e *Engine) publish(ctx context.Context, kind changefeed.Kind, key string) {
	e.changes.Publish(ctx, changefeed.Change{Kind: kind, Key: key, At: e.now()})
}

// Format renders the notification title and body of ev.
func Format(ev Event) (title, body string) {
	title = fmt.Sprintf("[%s] %s", strings.ToUpper(string(ev.Severity)), ev.Signal)
	body = fmt.Sprintf("%s\nvalue: %g, threshold: %g", ev.Message, ev.Value, ev.Threshold)
	return title, body
}

func validateConfig(c Config) error {
	switch {
	case !c.Signal.Configurable():
		return fmt.Errorf("%w: %q", ErrUnknownSignal, c.Signal)
	case !c.Direction.Valid():
		return fmt.Errorf("%w: got %q", ErrInvalidDirection, c.Direction)
	case math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0):
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold)
	case c.Cooldown < 0:
		return fmt.Errorf("%w: got %s", ErrInvalidCooldown, c.Cooldown)
	}
	return nil
}
