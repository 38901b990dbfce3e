package launchkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/launchkit/pkg/alert"
	"github.com/dmitrymomot/launchkit/pkg/config"
)

// Apply seeds the engine from a static bootstrap document. Only missing
// entities are created, so restored state always wins and applying the same
// document twice is a no-op. Invalid entries are skipped and reported joined.
func (e *Engine) Apply(ctx context.Context, b config.Bootstrap) error {
	var errs []error
	created := 0

	for _, f := range b.Flags {
		if _, ok := e.flags.Flag(f.Name); ok {
			continue
		}
		if err := e.flags.SetEnabled(ctx, f.Name, f.Percentage); err != nil {
			errs = append(errs, fmt.Errorf("flag %s: %w", f.Name, err))
			continue
		}
		created++
	}

	for _, r := range b.Rollouts {
		if _, ok := e.flags.Rollout(r.Feature); ok {
			continue
		}
		if _, err := e.flags.StartRollout(ctx, r.Feature, r.Initial, r.Description); err != nil {
			errs = append(errs, fmt.Errorf("rollout %s: %w", r.Feature, err))
			continue
		}
		created++
	}

	for _, t := range b.Tests {
		if _, ok := e.experiments.Test(t.Name); ok {
			continue
		}
		if _, err := e.experiments.CreateTest(ctx, t.Name, t.Variants, t.Target, t.Description); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w", t.Name, err))
			continue
		}
		created++
	}

	for _, a := range b.Alerts {
		signal := alert.Signal(a.Signal)
		if _, ok := e.alerts.Config(signal); ok {
			continue
		}
		_, err := e.alerts.Configure(ctx, signal, a.Threshold, alert.Direction(a.Direction), a.IsEnabled(),
			alert.WithCooldown(a.Cooldown))
		if err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", a.Signal, err))
			continue
		}
		created++
	}

	e.logger.InfoContext(ctx, "bootstrap applied", slog.Int("created", created), slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}
