// Package config loads launchkit configuration.
//
// Process settings come from environment variables, parsed into tagged
// structs with github.com/caarlos0/env/v11 after an optional .env file is
// loaded through github.com/joho/godotenv:
//
//	var app config.App
//	config.MustLoad(&app)
//
//	var pm notify.PostmarkConfig
//	if err := config.Load(&pm); err != nil {
//		// handle error
//	}
//
// The initial set of flags, rollouts, experiments and alert thresholds is
// described by a YAML bootstrap document (see Bootstrap) read with
// LoadBootstrap and applied by the engine.
package config
