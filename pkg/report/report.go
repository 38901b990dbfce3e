// Package report renders a plain-text status summary of an engine.
//
// The Reporter only reads snapshots through small source interfaces, so it
// never holds a component lock while formatting. Output is deterministic for
// a given state: every section is sorted and numbers are formatted with an
// English printer from golang.org/x/text/message.
package report

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/launchkit/pkg/alert"
	"github.com/dmitrymomot/launchkit/pkg/experiment"
	"github.com/dmitrymomot/launchkit/pkg/feature"
	"github.com/dmitrymomot/launchkit/pkg/feedback"
)

// DefaultTopPriorities is the number of priorities listed when none is configured.
const DefaultTopPriorities = 5

// FeedbackSource exposes feedback aggregates.
type FeedbackSource interface {
	Totals() (count int, average float64, ok bool)
	PrioritizedFeatures() []feedback.FeaturePriority
}

// TestSource exposes running A/B tests.
type TestSource interface {
	ActiveTests() []experiment.Test
}

// RolloutSource exposes rollouts filtered by status.
type RolloutSource interface {
	Rollouts(statuses ...feature.RolloutStatus) []feature.Rollout
}

// AlertSource exposes the alert log.
type AlertSource interface {
	History(signals ...alert.Signal) []alert.Event
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithTopPriorities limits the priorities section to n entries.
func WithTopPriorities(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.top = n
		}
	}
}

// WithAlerts adds a section with the n most recent alerts.
func WithAlerts(src AlertSource, n int) Option {
	return func(r *Reporter) {
		if src != nil && n > 0 {
			r.alerts = src
			r.recentAlerts = n
		}
	}
}

// WithLanguage sets the number formatting locale. Defaults to English.
func WithLanguage(tag language.Tag) Option {
	return func(r *Reporter) { r.lang = tag }
}

// Reporter builds status reports.
type Reporter struct {
	feedback FeedbackSource
	tests    TestSource
	rollouts RolloutSource

	alerts       AlertSource
	recentAlerts int
	top          int
	lang         language.Tag
}

func New(fb FeedbackSource, tests TestSource, rollouts RolloutSource, opts ...Option) *Reporter {
	r := &Reporter{
		feedback: fb,
		tests:    tests,
		rollouts: rollouts,
		top:      DefaultTopPriorities,
		lang:     language.English,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StatusReport renders feedback totals, top priorities, active tests,
// rollouts in progress and, when configured, recent alerts.
func (r *Reporter) StatusReport(_ context.Context) string {
	p := message.NewPrinter(r.lang)
	var b strings.Builder

	if count, avg, ok := r.feedback.Totals(); ok {
		p.Fprintf(&b, "Feedback: %d entries, average %.2f\n", count, avg)
	} else {
		b.WriteString("Feedback: 0 entries, average n/a\n")
	}

	b.WriteString("Top priorities:\n")
	prios := r.feedback.PrioritizedFeatures()
	if len(prios) > r.top {
		prios = prios[:r.top]
	}
	if len(prios) == 0 {
		b.WriteString("  none\n")
	}
	for i, fp := range prios {
		p.Fprintf(&b, "  %d. %s: %s", i+1, fp.Feature, fp.Priority)
		if fp.Justification != "" {
			p.Fprintf(&b, " (%s)", fp.Justification)
		}
		b.WriteString("\n")
	}

	b.WriteString("Active A/B tests:\n")
	tests := r.tests.ActiveTests()
	if len(tests) == 0 {
		b.WriteString("  none\n")
	}
	for _, t := range tests {
		p.Fprintf(&b, "  %s: %d variants, target %.1f%%\n", t.Name, len(t.Variants), t.TargetPercentage*100)
	}

	b.WriteString("Rollouts in progress:\n")
	rollouts := r.rollouts.Rollouts(feature.StatusInProgress)
	if len(rollouts) == 0 {
		b.WriteString("  none\n")
	}
	for _, ro := range rollouts {
		p.Fprintf(&b, "  %s: %.1f%%\n", ro.Feature, ro.CurrentPercentage*100)
	}

	if r.alerts != nil {
		b.WriteString("Recent alerts:\n")
		events := r.alerts.History()
		if len(events) > r.recentAlerts {
			events = events[len(events)-r.recentAlerts:]
		}
		if len(events) == 0 {
			b.WriteString("  none\n")
		}
		title := cases.Title(r.lang)
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			p.Fprintf(&b, "  %s %s: %s\n", title.String(string(ev.Severity)), ev.Signal, ev.Message)
		}
	}

	return b.String()
}
