// Package async runs calls to external collaborators (telemetry, notification
// and persistence sinks) outside of the caller's critical section.
//
// Components commit their in-memory state first, release their lock, and then
// hand the side effect to a Runner. The side effect never decides whether the
// operation succeeded: failures are logged and dropped.
//
// Two runners are provided:
//
//   - Inline executes the call immediately on the calling goroutine. It is the
//     default for components and keeps tests deterministic.
//   - Dispatcher queues calls to a fixed pool of worker goroutines. When the
//     queue is full the call is dropped rather than blocking the caller.
//
// Usage:
//
//	d := async.NewDispatcher(async.WithWorkers(2), async.WithQueueSize(256))
//	defer d.Close(context.Background())
//
//	d.Go(ctx, "telemetry.emit", func(ctx context.Context) error {
//		return sink.Emit(ctx, "flag_evaluated", props)
//	})
package async
