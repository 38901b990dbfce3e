package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/launchkit/pkg/failure"
	"github.com/dmitrymomot/launchkit/pkg/persistence"
)

type doc struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type brokenStore struct{}

func (brokenStore) SaveJSON(context.Context, string, []byte) error { return errors.New("disk full") }
func (brokenStore) LoadJSON(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("io error")
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		s := persistence.NewMemoryStore()
		require.NoError(t, persistence.Save(ctx, s, persistence.KeyFlags, []doc{{Name: "premium", Value: 0.5}}))

		var got []doc
		ok, err := persistence.Load(ctx, s, persistence.KeyFlags, &got)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []doc{{Name: "premium", Value: 0.5}}, got)
		assert.Equal(t, []string{persistence.KeyFlags}, s.Keys())
	})

	t.Run("missing collection", func(t *testing.T) {
		t.Parallel()
		s := persistence.NewMemoryStore()
		got := []doc{{Name: "keep"}}
		ok, err := persistence.Load(ctx, s, persistence.KeyRollouts, &got)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []doc{{Name: "keep"}}, got)
	})

	t.Run("corrupted document leaves target untouched", func(t *testing.T) {
		t.Parallel()
		s := persistence.NewMemoryStore()
		require.NoError(t, s.SaveJSON(ctx, persistence.KeyTests, []byte("{not json")))

		got := []doc{{Name: "keep"}}
		ok, err := persistence.Load(ctx, s, persistence.KeyTests, &got)
		require.Error(t, err)
		assert.False(t, ok)
		assert.True(t, failure.IsPersistence(err))
		assert.Contains(t, err.Error(), "decode ab_tests")
		assert.Equal(t, []doc{{Name: "keep"}}, got)
	})

	t.Run("store failures are persistence errors", func(t *testing.T) {
		t.Parallel()
		err := persistence.Save(ctx, brokenStore{}, persistence.KeyFeedback, doc{})
		require.Error(t, err)
		assert.True(t, failure.IsPersistence(err))
		assert.Contains(t, err.Error(), "disk full")

		var got doc
		_, err = persistence.Load(ctx, brokenStore{}, persistence.KeyFeedback, &got)
		require.Error(t, err)
		assert.True(t, failure.IsPersistence(err))
	})

	t.Run("unencodable value", func(t *testing.T) {
		t.Parallel()
		err := persistence.Save(ctx, persistence.NewMemoryStore(), persistence.KeyFlags, map[string]any{"bad": make(chan int)})
		require.Error(t, err)
		assert.True(t, failure.IsPersistence(err))
	})
}

func TestMemoryStore_CopiesData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := persistence.NewMemoryStore()
	data := []byte(`{"a":1}`)
	require.NoError(t, s.SaveJSON(ctx, "k", data))
	data[0] = 'x'

	got, ok, err := s.LoadJSON(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))

	got[0] = 'y'
	again, _, _ := s.LoadJSON(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"flags", "rollouts", "ab_tests", "feedback", "priorities", "alert_configs", "alert_history"}, persistence.Keys())
}
