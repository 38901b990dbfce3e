package logger

import (
	"log/slog"
	"time"
)

// Error records err under the key "error". A nil error yields an empty
// attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the launchkit component that produced the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// Test is the A/B test name.
func Test(name string) slog.Attr {
	return slog.String("test", name)
}

func Variant(name string) slog.Attr {
	return slog.String("variant", name)
}

// SubjectID is the bucketed user or device identifier.
func SubjectID(id string) slog.Attr {
	return slog.String("subject_id", id)
}

// Percentage is a rollout fraction in [0,1].
func Percentage(p float64) slog.Attr {
	return slog.Float64("percentage", p)
}

func Signal(name string) slog.Attr {
	return slog.String("signal", name)
}

// Collection is a persistence collection key such as "flags".
func Collection(key string) slog.Attr {
	return slog.String("collection", key)
}

// Event is a telemetry event or async call name.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Task is a maintenance task name.
func Task(name string) slog.Attr {
	return slog.String("task", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
