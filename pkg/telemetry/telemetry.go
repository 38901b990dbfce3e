// Package telemetry defines the decision-logging sink used by launchkit
// components and ships adapters for slog and Prometheus.
package telemetry

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

// Event names emitted by launchkit components.
const (
	EventFlagEvaluated     = "flag_evaluated"
	EventRolloutChanged    = "rollout_changed"
	EventRolledBack        = "rollout_rolled_back"
	EventVariantAssigned   = "variant_assigned"
	EventConversion        = "experiment_conversion"
	EventFeedbackCollected = "feedback_collected"
	EventPriorityChanged   = "priority_changed"
	EventAlertTriggered    = "alert_triggered"
)

// Sink receives telemetry events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, event string, props map[string]any) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event string, props map[string]any) error

func (f SinkFunc) Emit(ctx context.Context, event string, props map[string]any) error {
	return f(ctx, event, props)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, string, map[string]any) error { return nil }

// Multi fans an event out to every sink. All sinks are called even when some
// fail; the failures are joined.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, event string, props map[string]any) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, event, props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Record is an event captured by Recorder.
type Record struct {
	Event string
	Props map[string]any
}

// Recorder keeps emitted events in memory. Useful for tests and debugging.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Emit(_ context.Context, event string, props map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Event: event, Props: maps.Clone(props)})
	return nil
}

// Records returns a copy of everything emitted so far, in order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Named returns the records with the given event name.
func (r *Recorder) Named(event string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.records {
		if rec.Event == event {
			out = append(out, rec)
		}
	}
	return out
}
