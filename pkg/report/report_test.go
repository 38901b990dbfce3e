package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/launchkit/pkg/alert"
	"github.com/dmitrymomot/launchkit/pkg/experiment"
	"github.com/dmitrymomot/launchkit/pkg/feature"
	"github.com/dmitrymomot/launchkit/pkg/feedback"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/report"
)

type components struct {
	flags    *feature.Store
	tests    *experiment.Manager
	feedback *feedback.Collector
	alerts   *alert.Engine
}

func newComponents() components {
	log := logger.Nop()
	return components{
		flags:    feature.NewStore(feature.WithLogger(log)),
		tests:    experiment.NewManager(experiment.WithLogger(log)),
		feedback: feedback.NewCollector(feedback.WithLogger(log)),
		alerts:   alert.NewEngine(alert.WithLogger(log)),
	}
}

func seed(t *testing.T, c components) {
	t.Helper()
	ctx := context.Background()

	for _, r := range []int{2, 2, 2, 5} {
		feat := "dark_mode"
		if r == 5 {
			feat = "search"
		}
		_, err := c.feedback.Collect(ctx, feat, r, "", nil)
		require.NoError(t, err)
	}
	_, err := c.feedback.Escalate(ctx, "billing", "payment outage")
	require.NoError(t, err)

	_, err = c.tests.CreateTest(ctx, "checkout", []string{"control", "treatment"}, 0.5, "")
	require.NoError(t, err)
	_, err = c.tests.CreateTest(ctx, "alpha", []string{"a", "b"}, 0.25, "")
	require.NoError(t, err)
	_, err = c.tests.CreateTest(ctx, "pricing", []string{"low", "mid", "high"}, 1, "")
	require.NoError(t, err)
	_, err = c.tests.StopTest(ctx, "pricing")
	require.NoError(t, err)

	_, err = c.flags.StartRollout(ctx, "premium", 0.1, "")
	require.NoError(t, err)
	_, err = c.flags.IncreaseRollout(ctx, "premium", 0.5)
	require.NoError(t, err)
	_, err = c.flags.StartRollout(ctx, "new_checkout", 0.125, "")
	require.NoError(t, err)
	_, err = c.flags.StartRollout(ctx, "legacy", 0.2, "")
	require.NoError(t, err)
	_, err = c.flags.Rollback(ctx, "legacy")
	require.NoError(t, err)
}

func TestReporter_StatusReport(t *testing.T) {
	t.Parallel()
	c := newComponents()
	seed(t, c)

	r := report.New(c.feedback, c.tests, c.flags)
	want := "Feedback: 4 entries, average 2.75\n" +
		"Top priorities:\n" +
		"  1. billing: critical (payment outage)\n" +
		"  2. dark_mode: high (average rating 2.00 is below the 3.0 quality floor)\n" +
		"Active A/B tests:\n" +
		"  alpha: 2 variants, target 25.0%\n" +
		"  checkout: 2 variants, target 50.0%\n" +
		"Rollouts in progress:\n" +
		"  new_checkout: 12.5%\n" +
		"  premium: 50.0%\n"
	assert.Equal(t, want, r.StatusReport(context.Background()))
	assert.Equal(t, want, r.StatusReport(context.Background()), "report is deterministic")
}

func TestReporter_Empty(t *testing.T) {
	t.Parallel()
	c := newComponents()

	r := report.New(c.feedback, c.tests, c.flags, report.WithAlerts(c.alerts, 3))
	want := "Feedback: 0 entries, average n/a\n" +
		"Top priorities:\n  none\n" +
		"Active A/B tests:\n  none\n" +
		"Rollouts in progress:\n  none\n" +
		"Recent alerts:\n  none\n"
	assert.Equal(t, want, r.StatusReport(context.Background()))
}

func TestReporter_TopPriorities(t *testing.T) {
	t.Parallel()
	c := newComponents()
	seed(t, c)

	out := report.New(c.feedback, c.tests, c.flags, report.WithTopPriorities(1)).StatusReport(context.Background())
	assert.Contains(t, out, "  1. billing: critical")
	assert.NotContains(t, out, "dark_mode")
}

func TestReporter_RecentAlerts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newComponents()

	_, err := c.alerts.Raise(ctx, alert.SignalRolloutRollback, alert.SeverityCritical, "stale event", 0)
	require.NoError(t, err)
	_, err = c.alerts.Raise(ctx, alert.SignalRolloutRollback, alert.SeverityCritical, "premium rolled back", 0.5)
	require.NoError(t, err)
	_, err = c.alerts.Configure(ctx, alert.SignalCrashRate, 0.01, alert.Exceeds, true)
	require.NoError(t, err)
	_, ok := c.alerts.Trigger(ctx, alert.SignalCrashRate, 0.011, "crash spike")
	require.True(t, ok)

	out := report.New(c.feedback, c.tests, c.flags, report.WithAlerts(c.alerts, 2)).StatusReport(ctx)
	assert.Contains(t, out, "Recent alerts:\n"+
		"  Warning crash_rate: crash spike\n"+
		"  Critical rollout_rollback: premium rolled back\n")
	assert.NotContains(t, out, "stale event")
}

func TestReporter_GroupsLargeCounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newComponents()
	for range 1200 {
		_, err := c.feedback.Collect(ctx, "search", 4, "", nil)
		require.NoError(t, err)
	}

	out := report.New(c.feedback, c.tests, c.flags).StatusReport(ctx)
	assert.Contains(t, out, "Feedback: 1,200 entries, average 4.00\n")
}

func TestReporter_WithLanguage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newComponents()
	for range 1200 {
		_, err := c.feedback.Collect(ctx, "search", 4, "", nil)
		require.NoError(t, err)
	}
	_, err := c.flags.StartRollout(ctx, "checkout", 0.125, "")
	require.NoError(t, err)

	out := report.New(c.feedback, c.tests, c.flags, report.WithLanguage(language.German)).StatusReport(ctx)
	assert.Contains(t, out, "Feedback: 1.200 entries, average 4,00\n")
	assert.Contains(t, out, "  checkout: 12,5%\n")
}
