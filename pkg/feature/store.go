package feature

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/bucket"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/environment"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Store holds feature flags and their rollouts. All methods are safe for
// concurrent use; readers receive copies.
type Store struct {
	mu       sync.RWMutex
	flags    map[string]*Flag
	rollouts map[string]*Rollout

	env        environment.Environment
	telemetry  telemetry.Sink
	changes    changefeed.Publisher
	runner     async.Runner
	onRollback RollbackHook
	now        func() time.Time
	logger     *slog.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		flags:     make(map[string]*Flag),
		rollouts:  make(map[string]*Rollout),
		env:       environment.Development,
		telemetry: telemetry.Nop{},
		changes:   changefeed.Nop{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = async.NewInline(s.logger)
	}
	s.logger = s.logger.With(logger.Component("feature"))
	return s
}

// SetEnabled sets the rollout percentage of feature, creating the flag when
// needed. Zero disables the flag. A feature under an active or completed
// rollout may only grow, and an in-progress rollout follows it. A rolled
// back feature stays off until a new rollout starts.
func (s *Store) SetEnabled(ctx context.Context, feature string, percentage float64) error {
	if feature == "" {
		return ErrInvalidFeature
	}
	if err := validatePercentage(percentage); err != nil {
		return err
	}

	s.mu.Lock()
	now := s.now()
	var rolloutChanged bool
	if r, ok := s.rollouts[feature]; ok {
		switch r.Status {
		case StatusPaused:
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrRolloutPaused, feature)
		case StatusInProgress:
			if percentage < r.CurrentPercentage {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s is at %.4f", ErrPercentageDecrease, feature, r.CurrentPercentage)
			}
			if percentage > r.CurrentPercentage {
				if err := s.advanceLocked(r, percentage, now); err != nil {
					s.mu.Unlock()
					return err
				}
				rolloutChanged = true
			}
		case StatusCompleted:
			if percentage < r.CurrentPercentage {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s completed at %.4f", ErrPercentageDecrease, feature, r.CurrentPercentage)
			}
		case StatusRolledBack:
			if percentage > 0 {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s was rolled back, start a new rollout to enable it", ErrInvalidTransition, feature)
			}
		}
	}
	s.setLocked(feature, percentage, now)
	var snapshot Rollout
	if rolloutChanged {
		snapshot = s.rollouts[feature].clone()
	}
	s.mu.Unlock()

	s.publish(ctx, changefeed.FlagChanged, feature)
	if rolloutChanged {
		s.rolloutChanged(ctx, snapshot)
	}
	return nil
}

// Describe updates the description and tags of an existing flag.
func (s *Store) Describe(ctx context.Context, feature, description string, tags ...string) (Flag, error) {
	s.mu.Lock()
	f, ok := s.flags[feature]
	if !ok {
		s.mu.Unlock()
		return Flag{}, fmt.Errorf("%w: %s", ErrFlagNotFound, feature)
	}
	f.Description = description
	f.Tags = slices.Clone(tags)
	f.UpdatedAt = s.now()
	out := f.clone()
	s.mu.Unlock()

	s.publish(ctx, changefeed.FlagChanged, feature)
	return out, nil
}

// IsEnabled evaluates feature for subject. Unknown flags evaluate to false
// with ErrFlagNotFound.
func (s *Store) IsEnabled(ctx context.Context, feature, subject string) (bool, error) {
	s.mu.RLock()
	f, ok := s.flags[feature]
	var (
		percentage float64
		forced     bool
		overridden bool
	)
	if ok {
		percentage = f.RolloutPercentage
		if !s.env.IsRelease() {
			forced, overridden = f.Overrides[subject]
		}
	}
	s.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFlagNotFound, feature)
	}

	enabled := forced
	if !overridden {
		enabled = bucket.Flag(feature, subject) < percentage
	}

	s.emit(ctx, telemetry.EventFlagEvaluated, map[string]any{
		"feature":    feature,
		"subject_id": subject,
		"enabled":    enabled,
		"override":   overridden,
	})
	return enabled, nil
}

// SetOverride forces the result of IsEnabled for one subject. Not available
// in release environments.
func (s *Store) SetOverride(ctx context.Context, feature, subject string, enabled bool) error {
	if s.env.IsRelease() {
		return ErrOverridesDisabled
	}

	s.mu.Lock()
	f, ok := s.flags[feature]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFlagNotFound, feature)
	}
	if f.Overrides == nil {
		f.Overrides = make(map[string]bool)
	}
	f.Overrides[subject] = enabled
	f.UpdatedAt = s.now()
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "flag override set", logger.Feature(feature), logger.SubjectID(subject), slog.Bool("enabled", enabled))
	s.publish(ctx, changefeed.FlagChanged, feature)
	return nil
}

// ClearOverride removes the override of subject. Not available in release environments.
func (s *Store) ClearOverride(ctx context.Context, feature, subject string) error {
	if s.env.IsRelease() {
		return ErrOverridesDisabled
	}

	s.mu.Lock()
	f, ok := s.flags[feature]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFlagNotFound, feature)
	}
	if _, exists := f.Overrides[subject]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(f.Overrides, subject)
	f.UpdatedAt = s.now()
	s.mu.Unlock()

	s.publish(ctx, changefeed.FlagChanged, feature)
	return nil
}

// StartRollout begins a gradual rollout at initial. A feature may have one
// rollout; a new one can start only after the previous was rolled back, and
// it continues the history of the rolled back attempt.
// Starting at 1.0 completes the rollout immediately.
func (s *Store) StartRollout(ctx context.Context, feature string, initial float64, description string) (Rollout, error) {
	if feature == "" {
		return Rollout{}, ErrInvalidFeature
	}
	if err := validatePercentage(initial); err != nil {
		return Rollout{}, err
	}

	s.mu.Lock()
	from := statusNone
	var history []Step
	if prev, ok := s.rollouts[feature]; ok {
		from = prev.Status
		if from != StatusRolledBack {
			s.mu.Unlock()
			return Rollout{}, fmt.Errorf("%w: %s is %s", ErrRolloutExists, feature, from)
		}
		history = slices.Clone(prev.History)
	}
	status, err := NextStatus(from, EventStart)
	if err != nil {
		s.mu.Unlock()
		return Rollout{}, err
	}

	now := s.now()
	r := &Rollout{
		Feature:           feature,
		Description:       description,
		CurrentPercentage: initial,
		TargetPercentage:  1.0,
		Status:            status,
		StartDate:         now,
		LastUpdated:       now,
		History:           append(history, Step{Percentage: initial, Status: status, At: now}),
	}
	if initial >= r.TargetPercentage {
		if err := s.transitionLocked(r, EventComplete, initial, now); err != nil {
			s.mu.Unlock()
			return Rollout{}, err
		}
	}
	s.rollouts[feature] = r
	s.setLocked(feature, initial, now)
	out := r.clone()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "rollout started", logger.Feature(feature), logger.Percentage(initial))
	s.publish(ctx, changefeed.FlagChanged, feature)
	s.rolloutChanged(ctx, out)
	return out, nil
}

// IncreaseRollout raises the rollout of feature to percentage. Reaching 1.0
// completes it.
func (s *Store) IncreaseRollout(ctx context.Context, feature string, percentage float64) (Rollout, error) {
	if err := validatePercentage(percentage); err != nil {
		return Rollout{}, err
	}

	s.mu.Lock()
	r, ok := s.rollouts[feature]
	if !ok {
		s.mu.Unlock()
		return Rollout{}, fmt.Errorf("%w: %s", ErrRolloutNotFound, feature)
	}
	if !CanFire(r.Status, EventIncrease) {
		_, err := NextStatus(r.Status, EventIncrease)
		s.mu.Unlock()
		return Rollout{}, err
	}
	if percentage < r.CurrentPercentage {
		s.mu.Unlock()
		return Rollout{}, fmt.Errorf("%w: %s is at %.4f, requested %.4f", ErrPercentageDecrease, feature, r.CurrentPercentage, percentage)
	}
	if percentage == r.CurrentPercentage {
		out := r.clone()
		s.mu.Unlock()
		return out, nil
	}

	now := s.now()
	if err := s.advanceLocked(r, percentage, now); err != nil {
		s.mu.Unlock()
		return Rollout{}, err
	}
	s.setLocked(feature, percentage, now)
	out := r.clone()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "rollout increased", logger.Feature(feature), logger.Percentage(percentage), slog.String("status", string(out.Status)))
	s.publish(ctx, changefeed.FlagChanged, feature)
	s.rolloutChanged(ctx, out)
	return out, nil
}

// PauseRollout freezes an in-progress rollout at its current percentage.
func (s *Store) PauseRollout(ctx context.Context, feature string) (Rollout, error) {
	return s.fire(ctx, feature, EventPause)
}

// ResumeRollout continues a paused rollout.
func (s *Store) ResumeRollout(ctx context.Context, feature string) (Rollout, error) {
	return s.fire(ctx, feature, EventResume)
}

// Rollback stops the rollout of feature and disables its flag for every
// subject, overrides included. The rollout keeps the percentage it had
// reached and its history.
func (s *Store) Rollback(ctx context.Context, feature string) (Rollout, error) {
	s.mu.Lock()
	r, ok := s.rollouts[feature]
	if !ok {
		s.mu.Unlock()
		return Rollout{}, fmt.Errorf("%w: %s", ErrRolloutNotFound, feature)
	}
	now := s.now()
	if err := s.transitionLocked(r, EventRollback, 0, now); err != nil {
		s.mu.Unlock()
		return Rollout{}, err
	}
	s.setLocked(feature, 0, now)
	s.flags[feature].Overrides = nil
	out := r.clone()
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "rollout rolled back", logger.Feature(feature), logger.Percentage(out.CurrentPercentage))
	s.publish(ctx, changefeed.FlagChanged, feature)
	s.publish(ctx, changefeed.RolloutChanged, feature)
	s.emit(ctx, telemetry.EventRolledBack, map[string]any{
		"feature":    feature,
		"percentage": out.CurrentPercentage,
	})
	if hook := s.onRollback; hook != nil {
		s.runner.Go(ctx, "feature.rollback_hook", func(ctx context.Context) error {
			hook(ctx, out)
			return nil
		})
	}
	return out, nil
}

// Flag returns a copy of the named flag.
func (s *Store) Flag(name string) (Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flags[name]
	if !ok {
		return Flag{}, false
	}
	return f.clone(), true
}

// Flags returns all flags sorted by name, optionally limited to flags
// carrying at least one of tags.
func (s *Store) Flags(tags ...string) []Flag {
	s.mu.RLock()
	out := make([]Flag, 0, len(s.flags))
	for _, f := range s.flags {
		if len(tags) > 0 && !slices.ContainsFunc(tags, func(t string) bool { return slices.Contains(f.Tags, t) }) {
			continue
		}
		out = append(out, f.clone())
	}
	s.mu.RUnlock()

	sortFlags(out)
	return out
}

// Rollout returns a copy of the rollout of feature.
func (s *Store) Rollout(feature string) (Rollout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rollouts[feature]
	if !ok {
		return Rollout{}, false
	}
	return r.clone(), true
}

// Rollouts returns all rollouts sorted by feature, optionally filtered by status.
func (s *Store) Rollouts(statuses ...RolloutStatus) []Rollout {
	s.mu.RLock()
	out := make([]Rollout, 0, len(s.rollouts))
	for _, r := range s.rollouts {
		if len(statuses) > 0 && !slices.Contains(statuses, r.Status) {
			continue
		}
		out = append(out, r.clone())
	}
	s.mu.RUnlock()

	sortRollouts(out)
	return out
}

func (s *Store) fire(ctx context.Context, feature string, ev RolloutEvent) (Rollout, error) {
	s.mu.Lock()
	r, ok := s.rollouts[feature]
	if !ok {
		s.mu.Unlock()
		return Rollout{}, fmt.Errorf("%w: %s", ErrRolloutNotFound, feature)
	}
	if err := s.transitionLocked(r, ev, r.CurrentPercentage, s.now()); err != nil {
		s.mu.Unlock()
		return Rollout{}, err
	}
	out := r.clone()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "rollout status changed", logger.Feature(feature), slog.String("status", string(out.Status)))
	s.rolloutChanged(ctx, out)
	return out, nil
}

// advanceLocked moves an in-progress rollout to percentage, completing it at the target.
func (s *Store) advanceLocked(r *Rollout, percentage float64, now time.Time) error {
	ev := EventIncrease
	if percentage >= r.TargetPercentage {
		ev = EventComplete
	}
	if err := s.transitionLocked(r, ev, percentage, now); err != nil {
		return err
	}
	r.CurrentPercentage = percentage
	return nil
}

// transitionLocked applies ev to r and appends a history step recording the
// gating percentage after the transition.
func (s *Store) transitionLocked(r *Rollout, ev RolloutEvent, percentage float64, now time.Time) error {
	to, err := NextStatus(r.Status, ev)
	if err != nil {
		return err
	}
	r.Status = to
	r.LastUpdated = now
	r.History = append(r.History, Step{Percentage: percentage, Status: to, At: now})
	return nil
}

func (s *Store) setLocked(feature string, percentage float64, now time.Time) {
	f, ok := s.flags[feature]
	if !ok {
		f = &Flag{Name: feature, CreatedAt: now}
		s.flags[feature] = f
	}
	f.RolloutPercentage = percentage
	f.Enabled = percentage > 0
	f.UpdatedAt = now
}

func (s *Store) rolloutChanged(ctx context.Context, r Rollout) {
	s.publish(ctx, changefeed.RolloutChanged, r.Feature)
	s.emit(ctx, telemetry.EventRolloutChanged, map[string]any{
		"feature":    r.Feature,
		"status":     string(r.Status),
		"percentage": r.CurrentPercentage,
	})
}

func (s *Store) emit(ctx context.Context, event string, props map[string]any) {
	s.runner.Go(ctx, "telemetry."+event, func(ctx context.Context) error {
		return s.telemetry.Emit(ctx, event, props)
	})
}

func (s *Store) publish(ctx context.Context, kind changefeed.Kind, key string) {
	s.changes.Publish(ctx, changefeed.Change{Kind: kind, Key: key, At: s.now()})
}

func sortFlags(flags []Flag) {
	slices.SortFunc(flags, func(a, b Flag) int { return cmp.Compare(a.Name, b.Name) })
}

func sortRollouts(rollouts []Rollout) {
	slices.SortFunc(rollouts, func(a, b Rollout) int { return cmp.Compare(a.Feature, b.Feature) })
}

func validatePercentage(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidPercentage, p)
	}
	return nil
}
