// Package opsserver exposes the operational endpoints of a launchkit host:
// liveness and readiness probes, Prometheus metrics and the status report.
//
//	srv := opsserver.New(cfg, log)
//	err := srv.Run(ctx, opsserver.Handler(
//		opsserver.WithMetrics(registry),
//		opsserver.WithCheck("redis", redis.Healthcheck(client)),
//		opsserver.WithStatus(engine.StatusReport),
//	))
//
// Run returns nil once ctx is cancelled and the server has shut down.
package opsserver
