package launchkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/launchkit/pkg/alert"
	"github.com/dmitrymomot/launchkit/pkg/experiment"
	"github.com/dmitrymomot/launchkit/pkg/feature"
	"github.com/dmitrymomot/launchkit/pkg/feedback"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/persistence"
)

// Load restores every collection from the store. Collections are independent:
// one that cannot be read or decoded is logged, left empty and reported in
// the joined error while the others are restored. Priorities that were not
// restored are recomputed from the feedback log.
func (e *Engine) Load(ctx context.Context) error {
	var errs []error
	prioritiesRestored := false

	for _, key := range persistence.Keys() {
		found, err := e.loadCollection(ctx, key)
		if err != nil {
			e.logger.WarnContext(ctx, "collection not restored, starting empty",
				logger.Collection(key), logger.Error(err))
			if rerr := e.resetCollection(ctx, key); rerr != nil {
				e.logger.ErrorContext(ctx, "reset collection", logger.Collection(key), logger.Error(rerr))
			}
			errs = append(errs, err)
			continue
		}
		if key == persistence.KeyPriorities && found {
			prioritiesRestored = true
		}
		e.logger.DebugContext(ctx, "collection loaded", logger.Collection(key), slog.Bool("found", found))
	}

	if !prioritiesRestored {
		if n := e.feedback.RecomputeAll(ctx); n > 0 {
			e.logger.InfoContext(ctx, "priorities recomputed from feedback", slog.Int("updated", n))
		}
	}
	return errors.Join(errs...)
}

// Save writes every collection to the store. In-memory state is never
// modified; failures are logged and returned joined.
func (e *Engine) Save(ctx context.Context) error {
	flags := e.flags.Snapshot()
	alerts := e.alerts.Snapshot()
	docs := []struct {
		key   string
		value any
	}{
		{persistence.KeyFlags, flags.Flags},
		{persistence.KeyRollouts, flags.Rollouts},
		{persistence.KeyTests, e.experiments.Snapshot()},
		{persistence.KeyFeedback, e.feedback.Entries()},
		{persistence.KeyPriorities, e.feedback.PrioritizedFeatures()},
		{persistence.KeyAlertConfigs, alerts.Configs},
		{persistence.KeyAlertHistory, alerts.History},
	}

	var errs []error
	for _, d := range docs {
		if err := persistence.Save(ctx, e.store, d.key, d.value); err != nil {
			e.logger.WarnContext(ctx, "collection not saved", logger.Collection(d.key), logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) loadCollection(ctx context.Context, key string) (bool, error) {
	switch key {
	case persistence.KeyFlags:
		return restore(ctx, e.store, key, e.flags.RestoreFlags)
	case persistence.KeyRollouts:
		return restore(ctx, e.store, key, e.flags.RestoreRollouts)
	case persistence.KeyTests:
		return restore(ctx, e.store, key, e.experiments.Restore)
	case persistence.KeyFeedback:
		return restore(ctx, e.store, key, e.feedback.RestoreEntries)
	case persistence.KeyPriorities:
		return restore(ctx, e.store, key, e.feedback.RestorePriorities)
	case persistence.KeyAlertConfigs:
		return restore(ctx, e.store, key, e.alerts.RestoreConfigs)
	case persistence.KeyAlertHistory:
		return restore(ctx, e.store, key, e.alerts.RestoreHistory)
	}
	return false, fmt.Errorf("unknown collection %q", key)
}

func (e *Engine) resetCollection(ctx context.Context, key string) error {
	switch key {
	case persistence.KeyFlags:
		return e.flags.RestoreFlags(ctx, []feature.Flag{})
	case persistence.KeyRollouts:
		return e.flags.RestoreRollouts(ctx, []feature.Rollout{})
	case persistence.KeyTests:
		return e.experiments.Restore(ctx, []experiment.Test{})
	case persistence.KeyFeedback:
		return e.feedback.RestoreEntries(ctx, []feedback.Entry{})
	case persistence.KeyPriorities:
		return e.feedback.RestorePriorities(ctx, []feedback.FeaturePriority{})
	case persistence.KeyAlertConfigs:
		return e.alerts.RestoreConfigs(ctx, []alert.Config{})
	case persistence.KeyAlertHistory:
		return e.alerts.RestoreHistory(ctx, []alert.Event{})
	}
	return nil
}

// restore decodes the collection stored under key and hands it to apply.
// A missing collection is not an error.
func restore[T any](ctx context.Context, s persistence.Store, key string, apply func(context.Context, []T) error) (bool, error) {
	var items []T
	found, err := persistence.Load(ctx, s, key, &items)
	if err != nil || !found {
		return false, err
	}
	if err := apply(ctx, items); err != nil {
		return false, fmt.Errorf("restore %s: %w", key, err)
	}
	return true, nil
}
