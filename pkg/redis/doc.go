// Package redis connects to Redis and stores launchkit collections in it.
//
// Connect parses a redis:// URL and retries the initial ping. Store
// implements persistence.Store with one string value per collection key, so
// several engine instances can share state through a single Redis database.
//
// Configuration fields can be populated from environment variables via
// github.com/caarlos0/env:
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//	    // handle error
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    // handle error
//	}
//	defer client.Close()
//
//	store := redis.NewStoreWithConfig(client, cfg)
//	engine := launchkit.New(launchkit.WithStore(store))
//
// Healthcheck returns a probe suitable for readiness checks.
package redis
