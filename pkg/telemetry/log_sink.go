package telemetry

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmitrymomot/launchkit/pkg/logger"
)

// LogSink writes events as structured log records.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink writing one record per event at the given level.
func NewLogSink(log *slog.Logger, level slog.Level) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{logger: log, level: level}
}

func (s *LogSink) Emit(ctx context.Context, event string, props map[string]any) error {
	attrs := make([]slog.Attr, 0, len(props)+1)
	attrs = append(attrs, logger.Event(event))
	// sorted keys keep log lines stable
	for _, k := range slices.Sorted(maps.Keys(props)) {
		attrs = append(attrs, slog.Any(k, props[k]))
	}
	s.logger.LogAttrs(ctx, s.level, "telemetry", attrs...)
	return nil
}
