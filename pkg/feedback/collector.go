package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Collector records feedback and maintains feature priorities.
type Collector struct {
	mu         sync.RWMutex
	log        []Entry
	stats      map[string]*stats
	priorities map[string]*FeaturePriority

	telemetry telemetry.Sink
	changes   changefeed.Publisher
	runner    async.Runner
	observer  AverageObserver
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		stats:      make(map[string]*stats),
		priorities: make(map[string]*FeaturePriority),
		telemetry:  telemetry.Nop{},
		changes:    changefeed.Nop{},
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = async.NewInline(c.logger)
	}
	c.logger = c.logger.With(logger.Component("feedback"))
	return c
}

// Collect appends a feedback entry and re-evaluates the feature's priority.
// Ratings outside [1, 5] are rejected, never clamped.
func (c *Collector) Collect(ctx context.Context, feature string, rating int, comment string, metadata map[string]string) (Entry, error) {
	if feature == "" {
		return Entry{}, ErrInvalidFeature
	}
	if rating < MinRating || rating > MaxRating {
		return Entry{}, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}

	c.mu.Lock()
	now := c.now()
	e := Entry{
		ID:        c.newID(),
		Feature:   feature,
		Rating:    rating,
		Comment:   comment,
		Timestamp: now,
		Metadata:  maps.Clone(metadata),
	}
	c.log = append(c.log, e)
	st := c.statsLocked(feature)
	st.add(len(c.log)-1, rating)
	avg := st.average()
	prio, changed := c.applyRuleLocked(feature, avg, now)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "feedback collected",
		logger.Feature(feature), slog.Int("rating", rating), slog.Float64("average", avg))
	c.publish(ctx, changefeed.FeedbackCollected, feature)
	c.emit(ctx, telemetry.EventFeedbackCollected, map[string]any{
		"feature": feature,
		"rating":  rating,
		"average": avg,
	})
	if changed {
		c.priorityChanged(ctx, prio)
	}
	if obs := c.observer; obs != nil {
		c.runner.Go(ctx, "feedback.average_observer", func(ctx context.Context) error {
			obs(ctx, feature, avg)
			return nil
		})
	}
	return e.clone(), nil
}

// Recompute re-applies the auto-prioritization rule to feature. Repeated
// calls with the same feedback are no-ops.
func (c *Collector) Recompute(ctx context.Context, feature string) error {
	c.mu.Lock()
	st, ok := c.stats[feature]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoFeedback, feature)
	}
	prio, changed := c.applyRuleLocked(feature, st.average(), c.now())
	c.mu.Unlock()

	if changed {
		c.priorityChanged(ctx, prio)
	}
	return nil
}

// RecomputeAll re-applies the rule to every feature with feedback and
// returns how many priorities changed.
func (c *Collector) RecomputeAll(ctx context.Context) int {
	c.mu.Lock()
	features := slices.Sorted(maps.Keys(c.stats))
	var updated []FeaturePriority
	for _, f := range features {
		if prio, changed := c.applyRuleLocked(f, c.stats[f].average(), c.now()); changed {
			updated = append(updated, prio)
		}
	}
	c.mu.Unlock()

	for _, p := range updated {
		c.priorityChanged(ctx, p)
	}
	return len(updated)
}

// AverageRating returns the mean rating of feature; false when there is no feedback.
func (c *Collector) AverageRating(feature string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.stats[feature]
	if !ok {
		return 0, false
	}
	return st.average(), true
}

// Summary aggregates the feedback of feature with up to recent latest entries.
func (c *Collector) Summary(feature string, recent int) Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sum := Summary{Feature: feature, Recent: []Entry{}}
	st, ok := c.stats[feature]
	if !ok {
		return sum
	}
	avg := st.average()
	sum.Count = st.count
	sum.Average = &avg
	sum.Histogram = st.histogram
	for i := len(st.entries) - 1; i >= 0 && len(sum.Recent) < recent; i-- {
		sum.Recent = append(sum.Recent, c.log[st.entries[i]].clone())
	}
	return sum
}

// Totals returns the entry count and mean rating over all features.
func (c *Collector) Totals() (count int, average float64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int
	for _, st := range c.stats {
		count += st.count
		total += st.sum
	}
	if count == 0 {
		return 0, 0, false
	}
	return count, float64(total) / float64(count), true
}

// Entries returns the whole feedback log in chronological order.
func (c *Collector) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.log))
	for i, e := range c.log {
		out[i] = e.clone()
	}
	return out
}

// SetPriority replaces the priority of feature.
func (c *Collector) SetPriority(ctx context.Context, feature string, priority Priority, justification string) (FeaturePriority, error) {
	if feature == "" {
		return FeaturePriority{}, ErrInvalidFeature
	}
	if !priority.Valid() {
		return FeaturePriority{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	c.mu.Lock()
	p := &FeaturePriority{
		Feature:       feature,
		Priority:      priority,
		Justification: justification,
		LastUpdated:   c.now(),
		Source:        SourceManual,
	}
	c.priorities[feature] = p
	out := *p
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "feature priority set", logger.Feature(feature), slog.String("priority", string(priority)))
	c.priorityChanged(ctx, out)
	return out, nil
}

// Escalate marks feature critical. It is the only way to reach critical.
func (c *Collector) Escalate(ctx context.Context, feature, justification string) (FeaturePriority, error) {
	return c.SetPriority(ctx, feature, PriorityCritical, justification)
}

// Priority returns the current priority of feature.
func (c *Collector) Priority(feature string) (FeaturePriority, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.priorities[feature]
	if !ok {
		return FeaturePriority{}, false
	}
	return *p, true
}

// PrioritizedFeatures lists every priority, highest first, most recently
// updated first among equals.
func (c *Collector) PrioritizedFeatures() []FeaturePriority {
	c.mu.RLock()
	out := make([]FeaturePriority, 0, len(c.priorities))
	for _, p := range c.priorities {
		out = append(out, *p)
	}
	c.mu.RUnlock()

	sortPriorities(out)
	return out
}

// RestoreEntries replaces the feedback log. Priorities are not recomputed;
// call RecomputeAll when they were not restored.
func (c *Collector) RestoreEntries(ctx context.Context, entries []Entry) error {
	var errs []error
	for i, e := range entries {
		switch {
		case e.ID == "":
			errs = append(errs, fmt.Errorf("%w: feedback[%d]: empty id", ErrInvalidSnapshot, i))
		case e.Feature == "":
			errs = append(errs, fmt.Errorf("%w: feedback[%d]: empty feature", ErrInvalidSnapshot, i))
		case e.Rating < MinRating || e.Rating > MaxRating:
			errs = append(errs, fmt.Errorf("%w: feedback[%d]: rating %d out of range", ErrInvalidSnapshot, i, e.Rating))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log := make([]Entry, len(entries))
	st := make(map[string]*stats)
	for i, e := range entries {
		log[i] = e.clone()
		s, ok := st[e.Feature]
		if !ok {
			s = &stats{}
			st[e.Feature] = s
		}
		s.add(i, e.Rating)
	}

	c.mu.Lock()
	c.log = log
	c.stats = st
	c.mu.Unlock()

	c.publish(ctx, changefeed.StateRestored, "feedback")
	return nil
}

// RestorePriorities replaces all priorities.
func (c *Collector) RestorePriorities(ctx context.Context, priorities []FeaturePriority) error {
	next := make(map[string]*FeaturePriority, len(priorities))
	var errs []error
	for i, p := range priorities {
		switch {
		case p.Feature == "":
			errs = append(errs, fmt.Errorf("%w: priorities[%d]: empty feature", ErrInvalidSnapshot, i))
			continue
		case !p.Priority.Valid():
			errs = append(errs, fmt.Errorf("%w: priority of %s: unknown value %q", ErrInvalidSnapshot, p.Feature, p.Priority))
			continue
		}
		cp := p
		next[p.Feature] = &cp
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.mu.Lock()
	c.priorities = next
	c.mu.Unlock()

	c.publish(ctx, changefeed.StateRestored, "priorities")
	return nil
}

// applyRuleLocked upserts an automatic high priority when avg is below the
// quality floor. It reports whether anything changed.
func (c *Collector) applyRuleLocked(feature string, avg float64, now time.Time) (FeaturePriority, bool) {
	if avg >= QualityFloor {
		return FeaturePriority{}, false
	}
	justification := fmt.Sprintf("average rating %.2f is below the %.1f quality floor", avg, QualityFloor)

	if cur, ok := c.priorities[feature]; ok {
		if cur.Priority.Rank() > PriorityHigh.Rank() {
			return FeaturePriority{}, false
		}
		// manual high priorities keep their justification
		if cur.Priority == PriorityHigh && (cur.Source != SourceAuto || cur.Justification == justification) {
			return FeaturePriority{}, false
		}
	}

	p := &FeaturePriority{
		Feature:       feature,
		Priority:      PriorityHigh,
		Justification: justification,
		LastUpdated:   now,
		Source:        SourceAuto,
	}
	c.priorities[feature] = p
	return *p, true
}

func (c *Collector) statsLocked(feature string) *stats {
	st, ok := c.stats[feature]
	if !ok {
		st = &stats{}
		c.stats[feature] = st
	}
	return st
}

func (c *Collector) priorityChanged(ctx context.Context, p FeaturePriority) {
	c.publish(ctx, changefeed.PriorityChanged, p.Feature)
	c.emit(ctx, telemetry.EventPriorityChanged, map[string]any{
		"feature":  p.Feature,
		"priority": string(p.Priority),
		"source":   string(p.Source),
	})
}

func (c *Collector) emit(ctx context.Context, event string, props map[string]any) {
	c.runner.Go(ctx, "telemetry."+event, func(ctx context.Context) error {
		return c.telemetry.Emit(ctx, event, props)
	})
}

func (c *Collector) publish(ctx context.Context, kind changefeed.Kind, key string) {
	c.changes.Publish(ctx, changefeed.Change{Kind: kind, Key: key, At: c.now()})
}
