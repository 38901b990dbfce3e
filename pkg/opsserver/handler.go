package opsserver

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/launchkit/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HandlerOption configures the routes built by Handler.
type HandlerOption func(*routes)

type routes struct {
	gatherer prometheus.Gatherer
	checks   map[string]Check
	status   func(ctx context.Context) string
	logger   *slog.Logger
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) HandlerOption {
	return func(r *routes) { r.gatherer = g }
}

// WithCheck adds a named readiness check to /readyz.
func WithCheck(name string, c Check) HandlerOption {
	return func(r *routes) {
		if c != nil {
			r.checks[name] = c
		}
	}
}

// WithStatus serves the text returned by fn on /status.
func WithStatus(fn func(ctx context.Context) string) HandlerOption {
	return func(r *routes) { r.status = fn }
}

func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(r *routes) {
		if l != nil {
			r.logger = l
		}
	}
}

// Handler builds the ops routes:
//
//	GET /healthz  liveness, always "ALIVE"
//	GET /readyz   "READY" when every check passes, 503 "NOT_READY" otherwise
//	GET /metrics  Prometheus exposition, when configured
//	GET /status   plain-text status report, when configured
func Handler(opts ...HandlerOption) http.Handler {
	r := &routes{checks: make(map[string]Check), logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ALIVE")
	})
	mux.HandleFunc("GET /readyz", r.ready)
	if r.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
	if r.status != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, req *http.Request) {
			writeText(w, http.StatusOK, r.status(req.Context()))
		})
	}
	return mux
}

func (r *routes) ready(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	for _, name := range slices.Sorted(maps.Keys(r.checks)) {
		if err := r.checks[name](ctx); err != nil {
			r.logger.ErrorContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
			writeText(w, http.StatusServiceUnavailable, "NOT_READY")
			return
		}
	}
	writeText(w, http.StatusOK, "READY")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
