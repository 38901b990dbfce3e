package feature_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/environment"
	"github.com/dmitrymomot/launchkit/pkg/failure"
	"github.com/dmitrymomot/launchkit/pkg/feature"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// tickClock advances one second on every call.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *tickClock {
	return &tickClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore(opts ...feature.Option) *feature.Store {
	base := []feature.Option{feature.WithLogger(logger.Nop()), feature.WithClock(newClock().Now)}
	return feature.NewStore(append(base, opts...)...)
}

func subjects(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user-%d", i)
	}
	return out
}

func enabledSet(t *testing.T, s *feature.Store, name string, ids []string) map[string]bool {
	t.Helper()
	set := make(map[string]bool)
	for _, id := range ids {
		on, err := s.IsEnabled(context.Background(), name, id)
		require.NoError(t, err)
		if on {
			set[id] = true
		}
	}
	return set
}

func TestStore_SetEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		for _, p := range []float64{-0.1, 1.0001, math.NaN(), math.Inf(1)} {
			err := s.SetEnabled(ctx, "premium", p)
			assert.ErrorIs(t, err, feature.ErrInvalidPercentage, p)
			assert.True(t, failure.IsConfiguration(err))
		}
		assert.ErrorIs(t, s.SetEnabled(ctx, "", 0.5), feature.ErrInvalidFeature)
		assert.Empty(t, s.Flags())
	})

	t.Run("creates and updates flags", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		require.NoError(t, s.SetEnabled(ctx, "premium", 0.3))

		f, ok := s.Flag("premium")
		require.True(t, ok)
		assert.True(t, f.Enabled)
		assert.InDelta(t, 0.3, f.RolloutPercentage, 1e-12)
		assert.False(t, f.CreatedAt.IsZero())

		require.NoError(t, s.SetEnabled(ctx, "premium", 0))
		f, _ = s.Flag("premium")
		assert.False(t, f.Enabled, "zero percentage means disabled")
		assert.True(t, f.UpdatedAt.After(f.CreatedAt))
	})

	t.Run("boundaries gate everyone or no one", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		ids := subjects(500)

		require.NoError(t, s.SetEnabled(ctx, "off", 0))
		require.NoError(t, s.SetEnabled(ctx, "on", 1))
		assert.Empty(t, enabledSet(t, s, "off", ids))
		assert.Len(t, enabledSet(t, s, "on", ids), len(ids))
	})

	t.Run("percentage approximates the enabled share", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		ids := subjects(10000)
		require.NoError(t, s.SetEnabled(ctx, "dark_mode", 0.25))

		share := float64(len(enabledSet(t, s, "dark_mode", ids))) / float64(len(ids))
		assert.InDelta(t, 0.25, share, 0.03)
	})
}

func TestStore_IsEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown flag", func(t *testing.T) {
		t.Parallel()
		on, err := newStore().IsEnabled(ctx, "missing", "user-1")
		assert.False(t, on)
		assert.ErrorIs(t, err, feature.ErrFlagNotFound)
		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		a, b := newStore(), newStore()
		require.NoError(t, a.SetEnabled(ctx, "premium", 0.5))
		require.NoError(t, b.SetEnabled(ctx, "premium", 0.5))
		ids := subjects(1000)
		assert.Equal(t, enabledSet(t, a, "premium", ids), enabledSet(t, b, "premium", ids))
	})

	t.Run("emits decisions", func(t *testing.T) {
		t.Parallel()
		rec := &telemetry.Recorder{}
		s := newStore(feature.WithTelemetry(rec))
		require.NoError(t, s.SetEnabled(ctx, "premium", 1))

		on, err := s.IsEnabled(ctx, "premium", "user-7")
		require.NoError(t, err)
		require.True(t, on)

		recs := rec.Named(telemetry.EventFlagEvaluated)
		require.Len(t, recs, 1)
		assert.Equal(t, map[string]any{
			"feature":    "premium",
			"subject_id": "user-7",
			"enabled":    true,
			"override":   false,
		}, recs[0].Props)
	})
}

func TestStore_Overrides(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("win over bucketing outside release", func(t *testing.T) {
		t.Parallel()
		s := newStore(feature.WithEnvironment(environment.Staging))
		require.NoError(t, s.SetEnabled(ctx, "beta", 0))
		require.NoError(t, s.SetEnabled(ctx, "ga", 1))

		require.NoError(t, s.SetOverride(ctx, "beta", "alice", true))
		require.NoError(t, s.SetOverride(ctx, "ga", "bob", false))

		on, err := s.IsEnabled(ctx, "beta", "alice")
		require.NoError(t, err)
		assert.True(t, on)
		on, _ = s.IsEnabled(ctx, "beta", "carol")
		assert.False(t, on)
		on, _ = s.IsEnabled(ctx, "ga", "bob")
		assert.False(t, on)

		require.NoError(t, s.ClearOverride(ctx, "beta", "alice"))
		require.NoError(t, s.ClearOverride(ctx, "beta", "nobody"))
		on, _ = s.IsEnabled(ctx, "beta", "alice")
		assert.False(t, on)

		assert.ErrorIs(t, s.SetOverride(ctx, "missing", "alice", true), feature.ErrFlagNotFound)
		assert.ErrorIs(t, s.ClearOverride(ctx, "missing", "alice"), feature.ErrFlagNotFound)
	})

	t.Run("rejected and ignored in production", func(t *testing.T) {
		t.Parallel()
		s := newStore(feature.WithEnvironment(environment.Production))
		require.NoError(t, s.RestoreFlags(ctx, []feature.Flag{{
			Name:              "beta",
			RolloutPercentage: 0,
			Overrides:         map[string]bool{"alice": true},
		}}))

		err := s.SetOverride(ctx, "beta", "alice", true)
		assert.ErrorIs(t, err, feature.ErrOverridesDisabled)
		assert.True(t, failure.IsConfiguration(err))
		assert.ErrorIs(t, s.ClearOverride(ctx, "beta", "alice"), feature.ErrOverridesDisabled)

		on, err := s.IsEnabled(ctx, "beta", "alice")
		require.NoError(t, err)
		assert.False(t, on)
	})
}

func TestStore_RolloutScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()
	ids := subjects(2000)

	r, err := s.StartRollout(ctx, "premium", 0.1, "desc")
	require.NoError(t, err)
	assert.Equal(t, feature.StatusInProgress, r.Status)
	assert.InDelta(t, 1.0, r.TargetPercentage, 1e-12)
	at10 := enabledSet(t, s, "premium", ids)

	r, err = s.IncreaseRollout(ctx, "premium", 0.5)
	require.NoError(t, err)
	assert.Equal(t, feature.StatusInProgress, r.Status)
	at50 := enabledSet(t, s, "premium", ids)

	r, err = s.IncreaseRollout(ctx, "premium", 1.0)
	require.NoError(t, err)
	assert.Equal(t, feature.StatusCompleted, r.Status)
	at100 := enabledSet(t, s, "premium", ids)

	for id := range at10 {
		assert.True(t, at50[id], "%s lost access at 50%%", id)
	}
	for id := range at50 {
		assert.True(t, at100[id], "%s lost access at 100%%", id)
	}
	assert.Less(t, len(at10), len(at50))
	assert.Less(t, len(at50), len(at100))
	assert.Len(t, at100, len(ids))

	require.Len(t, r.History, 3)
	assert.Equal(t, []feature.RolloutStatus{feature.StatusInProgress, feature.StatusInProgress, feature.StatusCompleted},
		[]feature.RolloutStatus{r.History[0].Status, r.History[1].Status, r.History[2].Status})
	assert.True(t, r.LastUpdated.After(r.StartDate))
}

func TestStore_IncreaseRollout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects decrease", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		_, err := s.StartRollout(ctx, "premium", 0.3, "")
		require.NoError(t, err)

		_, err = s.IncreaseRollout(ctx, "premium", 0.2)
		require.ErrorIs(t, err, feature.ErrPercentageDecrease)
		assert.True(t, failure.IsConfiguration(err))

		r, _ := s.Rollout("premium")
		assert.InDelta(t, 0.3, r.CurrentPercentage, 1e-12)
		f, _ := s.Flag("premium")
		assert.InDelta(t, 0.3, f.RolloutPercentage, 1e-12)
	})

	t.Run("same percentage is a no-op", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		_, err := s.StartRollout(ctx, "premium", 0.3, "")
		require.NoError(t, err)
		r, err := s.IncreaseRollout(ctx, "premium", 0.3)
		require.NoError(t, err)
		assert.Len(t, r.History, 1)
	})

	t.Run("unknown rollout", func(t *testing.T) {
		t.Parallel()
		_, err := newStore().IncreaseRollout(ctx, "missing", 0.5)
		assert.ErrorIs(t, err, feature.ErrRolloutNotFound)
		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("invalid percentage", func(t *testing.T) {
		t.Parallel()
		_, err := newStore().IncreaseRollout(ctx, "premium", 2)
		assert.ErrorIs(t, err, feature.ErrInvalidPercentage)
	})

	t.Run("completed rollout cannot grow", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		r, err := s.StartRollout(ctx, "premium", 1.0, "")
		require.NoError(t, err)
		assert.Equal(t, feature.StatusCompleted, r.Status)

		_, err = s.IncreaseRollout(ctx, "premium", 1.0)
		assert.ErrorIs(t, err, feature.ErrInvalidTransition)
	})
}

func TestStore_StartRollout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newStore()
	_, err := s.StartRollout(ctx, "", 0.1, "")
	assert.ErrorIs(t, err, feature.ErrInvalidFeature)
	_, err = s.StartRollout(ctx, "premium", -1, "")
	assert.ErrorIs(t, err, feature.ErrInvalidPercentage)

	r, err := s.StartRollout(ctx, "premium", 0.2, "billing")
	require.NoError(t, err)
	assert.Equal(t, "billing", r.Description)

	_, err = s.StartRollout(ctx, "premium", 0.5, "again")
	require.ErrorIs(t, err, feature.ErrRolloutExists)

	_, err = s.Rollback(ctx, "premium")
	require.NoError(t, err)

	r, err = s.StartRollout(ctx, "premium", 0.05, "second attempt")
	require.NoError(t, err)
	assert.Equal(t, feature.StatusInProgress, r.Status)
	assert.InDelta(t, 0.05, r.CurrentPercentage, 1e-12)
	require.Len(t, r.History, 3, "a restarted rollout keeps the rolled back attempt")
	assert.Equal(t,
		[]feature.RolloutStatus{feature.StatusInProgress, feature.StatusRolledBack, feature.StatusInProgress},
		[]feature.RolloutStatus{r.History[0].Status, r.History[1].Status, r.History[2].Status})
	assert.InDelta(t, 0.2, r.History[0].Percentage, 1e-12)
	assert.InDelta(t, 0.05, r.History[2].Percentage, 1e-12)
	assert.Equal(t, "second attempt", r.Description)
	f, _ := s.Flag("premium")
	assert.InDelta(t, 0.05, f.RolloutPercentage, 1e-12)
}

func TestStore_SetEnabledDuringRollout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()

	_, err := s.StartRollout(ctx, "premium", 0.4, "")
	require.NoError(t, err)

	err = s.SetEnabled(ctx, "premium", 0.1)
	require.ErrorIs(t, err, feature.ErrPercentageDecrease)

	require.NoError(t, s.SetEnabled(ctx, "premium", 0.6))
	r, _ := s.Rollout("premium")
	assert.InDelta(t, 0.6, r.CurrentPercentage, 1e-12)
	assert.Equal(t, feature.StatusInProgress, r.Status)

	require.NoError(t, s.SetEnabled(ctx, "premium", 1))
	r, _ = s.Rollout("premium")
	assert.Equal(t, feature.StatusCompleted, r.Status)

	err = s.SetEnabled(ctx, "premium", 0.2)
	require.ErrorIs(t, err, feature.ErrPercentageDecrease)
	assert.True(t, failure.IsConfiguration(err))
	require.NoError(t, s.SetEnabled(ctx, "premium", 1), "same percentage is accepted")
	r, _ = s.Rollout("premium")
	assert.Equal(t, feature.StatusCompleted, r.Status)
	f, _ := s.Flag("premium")
	assert.InDelta(t, 1.0, f.RolloutPercentage, 1e-12)
}

func TestStore_SetEnabledAfterRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()

	_, err := s.StartRollout(ctx, "premium", 0.1, "")
	require.NoError(t, err)
	_, err = s.IncreaseRollout(ctx, "premium", 1)
	require.NoError(t, err)
	_, err = s.Rollback(ctx, "premium")
	require.NoError(t, err)

	err = s.SetEnabled(ctx, "premium", 0.5)
	require.ErrorIs(t, err, feature.ErrInvalidTransition)
	assert.Empty(t, enabledSet(t, s, "premium", subjects(1000)), "rolled back feature stays off")

	require.NoError(t, s.SetEnabled(ctx, "premium", 0), "disabling again is a no-op")
	r, _ := s.Rollout("premium")
	assert.Equal(t, feature.StatusRolledBack, r.Status)

	_, err = s.StartRollout(ctx, "premium", 0.2, "retry")
	require.NoError(t, err)
	require.NoError(t, s.SetEnabled(ctx, "premium", 0.5))
}

func TestStore_PauseResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()

	_, err := s.StartRollout(ctx, "premium", 0.3, "")
	require.NoError(t, err)

	r, err := s.PauseRollout(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, feature.StatusPaused, r.Status)

	_, err = s.IncreaseRollout(ctx, "premium", 0.5)
	assert.ErrorIs(t, err, feature.ErrInvalidTransition)
	assert.ErrorIs(t, s.SetEnabled(ctx, "premium", 0.5), feature.ErrRolloutPaused)
	_, err = s.PauseRollout(ctx, "premium")
	assert.ErrorIs(t, err, feature.ErrInvalidTransition)

	f, _ := s.Flag("premium")
	assert.InDelta(t, 0.3, f.RolloutPercentage, 1e-12, "pausing keeps gating")

	r, err = s.ResumeRollout(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, feature.StatusInProgress, r.Status)
	_, err = s.IncreaseRollout(ctx, "premium", 0.5)
	require.NoError(t, err)

	_, err = s.PauseRollout(ctx, "missing")
	assert.ErrorIs(t, err, feature.ErrRolloutNotFound)
}

func TestStore_Rollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rec := &telemetry.Recorder{}
	var hooked []feature.Rollout
	s := newStore(
		feature.WithTelemetry(rec),
		feature.WithRollbackHook(func(_ context.Context, r feature.Rollout) { hooked = append(hooked, r) }),
	)

	_, err := s.StartRollout(ctx, "premium", 0.4, "")
	require.NoError(t, err)
	_, err = s.IncreaseRollout(ctx, "premium", 0.8)
	require.NoError(t, err)
	require.NoError(t, s.SetOverride(ctx, "premium", "vip", true))

	r, err := s.Rollback(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, feature.StatusRolledBack, r.Status)
	assert.InDelta(t, 0.8, r.CurrentPercentage, 1e-12, "keeps the last percentage reached")
	require.Len(t, r.History, 3)
	assert.Equal(t, feature.Step{Percentage: 0, Status: feature.StatusRolledBack, At: r.LastUpdated}, r.History[2])

	ids := append(subjects(1000), "vip")
	assert.Empty(t, enabledSet(t, s, "premium", ids))

	f, _ := s.Flag("premium")
	assert.False(t, f.Enabled)
	assert.Zero(t, f.RolloutPercentage)
	assert.Empty(t, f.Overrides)

	require.Len(t, hooked, 1)
	assert.Equal(t, "premium", hooked[0].Feature)

	recs := rec.Named(telemetry.EventRolledBack)
	require.Len(t, recs, 1)
	assert.Equal(t, "premium", recs[0].Props["feature"])
	assert.InDelta(t, 0.8, recs[0].Props["percentage"], 1e-12)

	_, err = s.Rollback(ctx, "premium")
	assert.ErrorIs(t, err, feature.ErrInvalidTransition)

	_, err = s.Rollback(ctx, "missing")
	assert.ErrorIs(t, err, feature.ErrRolloutNotFound)
	assert.True(t, failure.IsNotFound(err))
}

func TestStore_RollbackFromEveryActiveState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setups := map[string]func(s *feature.Store){
		"in_progress": func(s *feature.Store) { _, _ = s.StartRollout(ctx, "f", 0.5, "") },
		"paused": func(s *feature.Store) {
			_, _ = s.StartRollout(ctx, "f", 0.5, "")
			_, _ = s.PauseRollout(ctx, "f")
		},
		"completed": func(s *feature.Store) { _, _ = s.StartRollout(ctx, "f", 1, "") },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := newStore()
			setup(s)
			r, err := s.Rollback(ctx, "f")
			require.NoError(t, err)
			assert.Equal(t, feature.StatusRolledBack, r.Status)
			assert.Empty(t, enabledSet(t, s, "f", subjects(300)))
		})
	}
}

func TestStore_ReadsAreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()

	_, err := s.StartRollout(ctx, "premium", 0.1, "")
	require.NoError(t, err)
	require.NoError(t, s.SetOverride(ctx, "premium", "alice", true))
	_, err = s.Describe(ctx, "premium", "billing", "payments")
	require.NoError(t, err)

	f, _ := s.Flag("premium")
	f.Overrides["bob"] = true
	f.Tags[0] = "changed"

	r, _ := s.Rollout("premium")
	r.History[0].Percentage = 0.9

	f2, _ := s.Flag("premium")
	assert.NotContains(t, f2.Overrides, "bob")
	assert.Equal(t, []string{"payments"}, f2.Tags)
	r2, _ := s.Rollout("premium")
	assert.InDelta(t, 0.1, r2.History[0].Percentage, 1e-12)
}

func TestStore_DescribeAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()

	require.NoError(t, s.SetEnabled(ctx, "search", 0.5))
	require.NoError(t, s.SetEnabled(ctx, "billing", 0.1))
	require.NoError(t, s.SetEnabled(ctx, "avatars", 1))
	_, err := s.Describe(ctx, "billing", "new invoices", "payments", "beta")
	require.NoError(t, err)
	_, err = s.Describe(ctx, "search", "semantic search", "beta")
	require.NoError(t, err)
	_, err = s.Describe(ctx, "missing", "")
	assert.ErrorIs(t, err, feature.ErrFlagNotFound)

	names := func(flags []feature.Flag) []string {
		out := make([]string, 0, len(flags))
		for _, f := range flags {
			out = append(out, f.Name)
		}
		return out
	}
	assert.Equal(t, []string{"avatars", "billing", "search"}, names(s.Flags()))
	assert.Equal(t, []string{"billing", "search"}, names(s.Flags("beta")))
	assert.Equal(t, []string{"billing"}, names(s.Flags("payments", "nothing")))

	_, err = s.StartRollout(ctx, "zeta", 0.1, "")
	require.NoError(t, err)
	_, err = s.StartRollout(ctx, "alpha", 1, "")
	require.NoError(t, err)
	assert.Len(t, s.Rollouts(), 2)
	inProgress := s.Rollouts(feature.StatusInProgress)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "zeta", inProgress[0].Feature)
}

func TestStore_SnapshotRestore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := newStore()
	require.NoError(t, src.SetEnabled(ctx, "dark_mode", 0.5))
	require.NoError(t, src.SetOverride(ctx, "dark_mode", "alice", true))
	_, err := src.StartRollout(ctx, "premium", 0.1, "desc")
	require.NoError(t, err)
	_, err = src.IncreaseRollout(ctx, "premium", 0.4)
	require.NoError(t, err)

	snap := src.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded feature.Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	dst := newStore()
	require.NoError(t, dst.RestoreFlags(ctx, decoded.Flags))
	require.NoError(t, dst.RestoreRollouts(ctx, decoded.Rollouts))
	assert.Equal(t, snap, dst.Snapshot())

	ids := subjects(500)
	assert.Equal(t, enabledSet(t, src, "premium", ids), enabledSet(t, dst, "premium", ids))

	_, err = dst.IncreaseRollout(ctx, "premium", 0.3)
	assert.ErrorIs(t, err, feature.ErrPercentageDecrease, "restored rollouts keep monotonicity")
}

func TestStore_RestoreRejectsInvalidState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newStore()
	require.NoError(t, s.SetEnabled(ctx, "keep", 0.5))

	err := s.RestoreFlags(ctx, []feature.Flag{{Name: "ok", RolloutPercentage: 0.2}, {Name: "", RolloutPercentage: 0.1}})
	require.ErrorIs(t, err, feature.ErrInvalidSnapshot)
	assert.True(t, failure.IsPersistence(err))

	err = s.RestoreFlags(ctx, []feature.Flag{{Name: "a", RolloutPercentage: 3}})
	require.ErrorIs(t, err, feature.ErrInvalidSnapshot)

	err = s.RestoreRollouts(ctx, []feature.Rollout{{Feature: "a", Status: "inProgress"}})
	require.ErrorIs(t, err, feature.ErrInvalidSnapshot)

	_, ok := s.Flag("keep")
	assert.True(t, ok, "failed restore leaves state untouched")
	_, ok = s.Flag("ok")
	assert.False(t, ok)
}

func TestRollout_JSONContract(t *testing.T) {
	t.Parallel()
	r := feature.Rollout{
		Feature:           "premium",
		CurrentPercentage: 0.5,
		TargetPercentage:  1,
		Status:            feature.StatusRolledBack,
		StartDate:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LastUpdated:       time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"feature": "premium",
		"current_percentage": 0.5,
		"target_percentage": 1,
		"status": "rolled_back",
		"start_date": "2026-01-02T03:04:05Z",
		"last_updated": "2026-01-03T03:04:05Z"
	}`, string(data))
}

func TestStore_PublishesChanges(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := changefeed.New(16)
	defer feed.Close()
	sub := feed.Subscribe(ctx)

	s := newStore(feature.WithChanges(feed))
	_, err := s.StartRollout(ctx, "premium", 0.1, "")
	require.NoError(t, err)

	var kinds []changefeed.Kind
	for range 2 {
		select {
		case c := <-sub.C():
			assert.Equal(t, "premium", c.Key)
			kinds = append(kinds, c.Kind)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change")
		}
	}
	assert.Equal(t, []changefeed.Kind{changefeed.FlagChanged, changefeed.RolloutChanged}, kinds)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()
	_, err := s.StartRollout(ctx, "premium", 0.01, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				_, err := s.IsEnabled(ctx, "premium", fmt.Sprintf("user-%d-%d", w, i))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for step := 2; step <= 100; step++ {
			_, err := s.IncreaseRollout(ctx, "premium", float64(step)/100)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	r, _ := s.Rollout("premium")
	assert.Equal(t, feature.StatusCompleted, r.Status)
	assert.Len(t, r.History, 100)
}
