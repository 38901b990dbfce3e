// Package feature stores feature flags and controls their gradual rollout.
//
// A Flag carries a rollout percentage in [0, 1]. IsEnabled places the subject
// in a stable bucket (see package bucket, scope "flag:<name>") and enables the
// flag when the bucket is below the percentage, so raising the percentage
// only ever adds subjects. Per-subject overrides short-circuit bucketing in
// development and staging and are ignored in production.
//
// # Rollouts
//
// A Rollout walks a flag from an initial percentage to 1.0:
//
//	store := feature.NewStore(feature.WithTelemetry(sink))
//
//	_, err := store.StartRollout(ctx, "premium", 0.1, "new billing page")
//	_, err = store.IncreaseRollout(ctx, "premium", 0.5)
//	_, err = store.IncreaseRollout(ctx, "premium", 1.0) // completed
//
// While in progress or completed the percentage never decreases; the only
// way back is Rollback, which disables the flag for every subject and
// notifies the rollback hook. A rolled back flag stays off until
// StartRollout begins a new attempt on top of the old history. Legal status changes are listed in a fixed transition table:
//
//	(none)      --start-->    in_progress
//	in_progress --increase--> in_progress
//	in_progress --complete--> completed
//	in_progress --pause-->    paused
//	paused      --resume-->   in_progress
//	in_progress, paused, completed --rollback--> rolled_back
//	rolled_back --start-->    in_progress
//
// # Errors
//
// Validation failures wrap failure.ErrConfiguration and unknown names wrap
// failure.ErrNotFound. Neither changes state.
package feature
