package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store keeps serialized collections in Redis, one string value per
// collection. It satisfies persistence.Store.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

// NewStore wraps client. Keys are stored as prefix + collection key.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{db: client, prefix: prefix}
}

// NewStoreWithConfig uses cfg.KeyPrefix.
func NewStoreWithConfig(client redis.UniversalClient, cfg Config) *Store {
	return NewStore(client, cfg.KeyPrefix)
}

func (s *Store) SaveJSON(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Set(ctx, s.prefix+key, data, 0).Err()
}

// LoadJSON reports ok=false for keys that were never saved (redis.Nil).
func (s *Store) LoadJSON(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Delete removes a collection. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.db.Del(ctx, s.prefix+key).Err()
}

// Close terminates the Redis connection.
func (s *Store) Close() error {
	return s.db.Close()
}
