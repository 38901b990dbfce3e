package main

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/config"
	"github.com/dmitrymomot/launchkit/pkg/persistence"
	redisstore "github.com/dmitrymomot/launchkit/pkg/redis"
	"github.com/dmitrymomot/launchkit/pkg/sqlite"
)

// stateStore is the configured persistence backend with its probe and closer.
type stateStore struct {
	persistence.Store
	check func(context.Context) error
	close func() error
}

func (s *stateStore) Healthcheck(ctx context.Context) error {
	if s.check == nil {
		return nil
	}
	return s.check(ctx)
}

func (s *stateStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStore(ctx context.Context, cfg config.App) (*stateStore, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return &stateStore{Store: persistence.NewMemoryStore()}, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stateStore{Store: db, check: db.Healthcheck(), close: db.Close}, nil

	case config.StorageRedis:
		var rc redisstore.Config
		if err := config.Load(&rc); err != nil {
			return nil, err
		}
		client, err := redisstore.Connect(ctx, rc)
		if err != nil {
			return nil, err
		}
		s := redisstore.NewStoreWithConfig(client, rc)
		return &stateStore{Store: s, check: redisstore.Healthcheck(client), close: s.Close}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
