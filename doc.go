// Package launchkit is the decision engine behind feature flags, gradual
// rollouts, A/B tests, feedback-driven prioritization and metric alerts.
//
// The Engine composes the component packages and wires them together:
//
//   - feature.Store evaluates flags and drives rollouts
//   - experiment.Manager assigns A/B test variants
//   - feedback.Collector records ratings and escalates weak features
//   - alert.Engine raises events when metrics cross thresholds
//
// Each new average rating is fed to the feedback_rating alert signal and
// every rollback raises a rollout_rollback alert.
//
// Basic usage:
//
//	engine := launchkit.New(
//		launchkit.WithStore(store),
//		launchkit.WithTelemetry(sink),
//		launchkit.WithNotifier(notifier),
//	)
//	defer engine.Close(ctx)
//
//	if err := engine.Load(ctx); err != nil {
//		// collections that failed to load start empty
//		slog.Warn("partial state restore", logger.Error(err))
//	}
//
//	on, _ := engine.Flags().IsEnabled(ctx, "dark_mode", userID)
//	variant, ok := engine.Experiments().VariantFor(ctx, "checkout", userID)
//
// State is persisted per collection through a persistence.Store. Load and
// Save never fail as a whole: every collection is handled independently and
// the failures are returned joined.
//
// Subscribe returns a changefeed subscription notified after every committed
// mutation of any component.
package launchkit
