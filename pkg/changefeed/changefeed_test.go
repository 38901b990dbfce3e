package changefeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/launchkit/pkg/changefeed"
)

func receive(t *testing.T, sub *changefeed.Subscription) (changefeed.Change, bool) {
	t.Helper()
	select {
	case c, ok := <-sub.C():
		return c, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return changefeed.Change{}, false
	}
}

func TestFeed(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every subscriber", func(t *testing.T) {
		t.Parallel()
		f := changefeed.New(4)
		defer f.Close()

		a := f.Subscribe(context.Background())
		b := f.Subscribe(context.Background())

		f.Publish(context.Background(), changefeed.Change{Kind: changefeed.FlagChanged, Key: "premium"})

		for _, sub := range []*changefeed.Subscription{a, b} {
			c, ok := receive(t, sub)
			require.True(t, ok)
			assert.Equal(t, changefeed.FlagChanged, c.Kind)
			assert.Equal(t, "premium", c.Key)
		}
	})

	t.Run("slow subscriber drops instead of blocking", func(t *testing.T) {
		t.Parallel()
		f := changefeed.New(1)
		defer f.Close()

		sub := f.Subscribe(context.Background())
		for range 3 {
			f.Publish(context.Background(), changefeed.Change{Kind: changefeed.AlertRaised})
		}
		assert.Equal(t, 2, sub.Dropped())
	})

	t.Run("context cancellation ends subscription", func(t *testing.T) {
		t.Parallel()
		f := changefeed.New(4)
		defer f.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := f.Subscribe(ctx)
		cancel()

		_, ok := receive(t, sub)
		assert.False(t, ok)
	})

	t.Run("close ends subscriptions and later subscribers", func(t *testing.T) {
		t.Parallel()
		f := changefeed.New(4)
		sub := f.Subscribe(context.Background())
		require.NoError(t, f.Close())
		require.NoError(t, f.Close())

		_, ok := receive(t, sub)
		assert.False(t, ok)

		late := f.Subscribe(context.Background())
		_, ok = receive(t, late)
		assert.False(t, ok)

		assert.NotPanics(t, func() {
			f.Publish(context.Background(), changefeed.Change{Kind: changefeed.StateRestored})
		})
	})

	t.Run("subscription close is idempotent", func(t *testing.T) {
		t.Parallel()
		f := changefeed.New(4)
		defer f.Close()

		sub := f.Subscribe(context.Background())
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())
		assert.NotPanics(t, func() {
			f.Publish(context.Background(), changefeed.Change{Kind: changefeed.TestChanged})
		})
	})
}
