// Package alert holds per-signal threshold configurations and raises alert
// events when observed values cross them.
//
// A Config compares observations strictly: a value equal to the threshold
// never triggers. The severity of a triggered event grows with the distance
// past the threshold:
//
//	exceeds:     value >= 2*threshold -> critical, otherwise warning
//	falls_below: value <= threshold/2 -> critical, otherwise warning
//
// Events are appended to an immutable chronological history and delivered to
// a notify.Sink after the state change has committed. A failed delivery is
// logged and never undoes the event.
package alert

import (
	"math"
	"time"
)

// Signal identifies a monitored metric.
type Signal string

const (
	SignalCrashRate         Signal = "crash_rate"
	SignalPerformanceMetric Signal = "performance_metric"
	SignalRevenueThreshold  Signal = "revenue_threshold"
	SignalFeedbackRating    Signal = "feedback_rating"

	// SignalRolloutRollback marks events raised for rollout rollbacks. It
	// cannot be configured with a threshold.
	SignalRolloutRollback Signal = "rollout_rollback"
)

// Configurable reports whether s accepts a threshold configuration.
func (s Signal) Configurable() bool {
	switch s {
	case SignalCrashRate, SignalPerformanceMetric, SignalRevenueThreshold, SignalFeedbackRating:
		return true
	}
	return false
}

// Direction is the side of the threshold that triggers an alert.
type Direction string

const (
	Exceeds    Direction = "exceeds"
	FallsBelow Direction = "falls_below"
)

func (d Direction) Valid() bool {
	return d == Exceeds || d == FallsBelow
}

// Severity classifies an event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Config is the threshold configuration of one signal.
type Config struct {
	Signal    Signal        `json:"signal"`
	Threshold float64       `json:"threshold"`
	Direction Direction     `json:"direction"`
	Enabled   bool          `json:"enabled"`
	Cooldown  time.Duration `json:"cooldown,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// crossed reports whether value is strictly past the threshold.
func (c Config) crossed(value float64) bool {
	if math.IsNaN(value) {
		return false
	}
	if c.Direction == FallsBelow {
		return value < c.Threshold
	}
	return value > c.Threshold
}

// severity grades a crossed value by its distance past the threshold,
// measured against |threshold|: critical once an exceeding value is a full
// |threshold| beyond it, or a falling value half of |threshold| below it.
// For positive thresholds that is value >= 2*threshold and value <=
// threshold/2. A zero threshold has no scale, so crossings grade warning.
func (c Config) severity(value float64) Severity {
	scale := math.Abs(c.Threshold)
	if scale == 0 {
		return SeverityWarning
	}
	if c.Direction == FallsBelow {
		if c.Threshold-value >= scale/2 {
			return SeverityCritical
		}
		return SeverityWarning
	}
	if value-c.Threshold >= scale {
		return SeverityCritical
	}
	return SeverityWarning
}

// Event is an immutable record of a raised alert.
type Event struct {
	ID        string    `json:"id"`
	Signal    Signal    `json:"signal"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
}
