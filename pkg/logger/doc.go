// Package logger builds the slog loggers used across launchkit and keeps
// attribute keys consistent between components.
//
//	log := logger.New(
//	    logger.WithEnvironment(env, "launchkit"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "rollout increased", logger.Feature("premium"), logger.Percentage(0.5))
//
// Attributes attached to a context with ContextWith are added to every record
// logged with that context.
package logger
