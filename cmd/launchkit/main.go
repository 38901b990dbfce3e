// Command launchkit runs the decision engine as a standalone process: it
// restores persisted state, applies the bootstrap file, saves state and logs
// a status report on a schedule, and exposes metrics and probes on the ops
// address.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/launchkit"
	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/config"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/maintenance"
	"github.com/dmitrymomot/launchkit/pkg/notify"
	"github.com/dmitrymomot/launchkit/pkg/opsserver"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "launchkit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.App
	if err := config.Load(&cfg); err != nil {
		return err
	}
	env := cfg.Env()
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(env, cfg.ServiceName),
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(format),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close store", logger.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := telemetry.NewPrometheusSink(registry, cfg.MetricsNamespace)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(log)
	if err != nil {
		return err
	}
	defer notifier.Stop()

	dispatcher := async.NewDispatcher(
		async.WithWorkers(cfg.DispatcherWorkers),
		async.WithQueueSize(cfg.DispatcherQueue),
		async.WithLogger(log),
	)

	engine := launchkit.New(
		launchkit.WithStore(store),
		launchkit.WithTelemetry(telemetry.Multi{telemetry.NewLogSink(log, slog.LevelDebug), metrics}),
		launchkit.WithNotifier(notifier),
		launchkit.WithRunner(dispatcher),
		launchkit.WithLogger(log),
		launchkit.WithEnvironment(env),
		launchkit.WithChangefeedBuffer(cfg.ChangefeedBuffer),
		launchkit.WithTopPriorities(cfg.TopPriorities),
	)

	if err := engine.Load(ctx); err != nil {
		log.WarnContext(ctx, "state partially restored", logger.Error(err))
	}
	if cfg.BootstrapFile != "" {
		b, err := config.LoadBootstrap(cfg.BootstrapFile)
		if err != nil {
			return err
		}
		if err := engine.Apply(ctx, b); err != nil {
			log.WarnContext(ctx, "bootstrap partially applied", logger.Error(err))
		}
	}

	tasks := maintenance.NewRunner(maintenance.WithLogger(log))
	if err := tasks.AddTask("save_state", maintenance.EveryInterval(cfg.SaveInterval), engine.Save); err != nil {
		return err
	}
	if err := tasks.AddTask("status_report", maintenance.EveryInterval(cfg.ReportInterval), func(ctx context.Context) error {
		log.InfoContext(ctx, "status report", slog.String("report", engine.StatusReport(ctx)))
		return nil
	}); err != nil {
		return err
	}

	var opsCfg opsserver.Config
	if err := config.Load(&opsCfg); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := tasks.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watchChanges(gctx, engine, log)
		return nil
	})
	if opsCfg.Enabled() {
		g.Go(func() error {
			return opsserver.New(opsCfg, log).Run(gctx, opsserver.Handler(
				opsserver.WithHandlerLogger(log),
				opsserver.WithMetrics(registry),
				opsserver.WithCheck("store", store.Healthcheck),
				opsserver.WithStatus(engine.StatusReport),
			))
		})
	}

	log.InfoContext(ctx, "launchkit started", slog.String("storage", cfg.Storage))
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := engine.Save(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("final save: %w", err))
	}
	if err := engine.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Info("launchkit stopped")
	return errors.Join(errs...)
}

// watchChanges logs every committed change at debug level.
func watchChanges(ctx context.Context, engine *launchkit.Engine, log *slog.Logger) {
	sub := engine.Subscribe(ctx)
	defer sub.Close()
	for c := range sub.C() {
		log.DebugContext(ctx, "state changed", slog.String("kind", string(c.Kind)), slog.String("key", c.Key))
	}
}

// buildNotifier logs every alert and also e-mails it when Postmark is configured.
func buildNotifier(log *slog.Logger) (*notify.Deferred, error) {
	sinks := notify.Multi{notify.NewLogSink(log)}

	var pm notify.PostmarkConfig
	if err := config.Load(&pm); err != nil {
		return nil, err
	}
	if pm.ServerToken != "" {
		email, err := notify.NewPostmarkSink(pm)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, email)
	}
	return notify.NewDeferred(sinks, log), nil
}
