// Package persistence defines the storage boundary of launchkit.
//
// Components serialize their state to JSON documents stored under fixed
// collection keys. Field names and enum string values of those documents are
// the on-disk contract and must not change between versions.
//
// Store is implemented by MemoryStore (this package), redis.Store and
// sqlite.Store. Save and Load wrap every failure with failure.ErrPersistence.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

// Collection keys. Part of the storage contract.
const (
	KeyFlags        = "flags"
	KeyRollouts     = "rollouts"
	KeyTests        = "ab_tests"
	KeyFeedback     = "feedback"
	KeyPriorities   = "priorities"
	KeyAlertConfigs = "alert_configs"
	KeyAlertHistory = "alert_history"
)

// Keys lists every collection key in load order.
func Keys() []string {
	return []string{KeyFlags, KeyRollouts, KeyTests, KeyFeedback, KeyPriorities, KeyAlertConfigs, KeyAlertHistory}
}

// Store persists serialized collections.
type Store interface {
	// SaveJSON replaces the document stored under key.
	SaveJSON(ctx context.Context, key string, data []byte) error
	// LoadJSON returns the document stored under key; ok is false when nothing was saved yet.
	LoadJSON(ctx context.Context, key string) (data []byte, ok bool, err error)
}

// Save encodes v as JSON and stores it under key.
func Save[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", failure.ErrPersistence, key, err)
	}
	if err := s.SaveJSON(ctx, key, data); err != nil {
		return fmt.Errorf("%w: save %s: %w", failure.ErrPersistence, key, err)
	}
	return nil
}

// Load decodes the document stored under key into v. It reports false, with v
// untouched, when the collection was never saved.
func Load[T any](ctx context.Context, s Store, key string, v *T) (bool, error) {
	data, ok, err := s.LoadJSON(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: load %s: %w", failure.ErrPersistence, key, err)
	}
	if !ok {
		return false, nil
	}
	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", failure.ErrPersistence, key, err)
	}
	*v = decoded
	return true, nil
}

// MemoryStore keeps documents in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) SaveJSON(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) LoadJSON(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Keys returns the keys currently stored.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs))
	for k := range maps.Keys(m.docs) {
		out = append(out, k)
	}
	return out
}
