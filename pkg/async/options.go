package async

import "log/slog"

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	workers   int
	queueSize int
	logger    *slog.Logger
}

// WithWorkers sets the number of worker goroutines. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the queue capacity. Values below 1 are ignored.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the logger used to report failed calls.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
