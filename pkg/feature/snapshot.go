package feature

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrymomot/launchkit/pkg/changefeed"
)

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	Flags    []Flag    `json:"flags"`
	Rollouts []Rollout `json:"rollouts"`
}

// Snapshot copies flags and rollouts under a single read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Flags:    make([]Flag, 0, len(s.flags)),
		Rollouts: make([]Rollout, 0, len(s.rollouts)),
	}
	for _, f := range s.flags {
		snap.Flags = append(snap.Flags, f.clone())
	}
	for _, r := range s.rollouts {
		snap.Rollouts = append(snap.Rollouts, r.clone())
	}
	sortFlags(snap.Flags)
	sortRollouts(snap.Rollouts)
	return snap
}

// RestoreFlags replaces all flags. The input is validated as a whole; on
// error the store is left untouched.
func (s *Store) RestoreFlags(ctx context.Context, flags []Flag) error {
	next := make(map[string]*Flag, len(flags))
	var errs []error
	for i, f := range flags {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Errorf("%w: flags[%d]: empty name", ErrInvalidSnapshot, i))
			continue
		case math.IsNaN(f.RolloutPercentage) || f.RolloutPercentage < 0 || f.RolloutPercentage > 1:
			errs = append(errs, fmt.Errorf("%w: flag %s: percentage %v out of range", ErrInvalidSnapshot, f.Name, f.RolloutPercentage))
			continue
		}
		if _, dup := next[f.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate flag %s", ErrInvalidSnapshot, f.Name))
			continue
		}
		c := f.clone()
		c.Enabled = c.RolloutPercentage > 0
		next[c.Name] = &c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.mu.Lock()
	s.flags = next
	s.mu.Unlock()

	s.publish(ctx, changefeed.StateRestored, "flags")
	return nil
}

// RestoreRollouts replaces all rollouts. The input is validated as a whole;
// on error the store is left untouched.
func (s *Store) RestoreRollouts(ctx context.Context, rollouts []Rollout) error {
	next := make(map[string]*Rollout, len(rollouts))
	var errs []error
	for i, r := range rollouts {
		switch {
		case r.Feature == "":
			errs = append(errs, fmt.Errorf("%w: rollouts[%d]: empty feature", ErrInvalidSnapshot, i))
			continue
		case !r.Status.Valid():
			errs = append(errs, fmt.Errorf("%w: rollout %s: unknown status %q", ErrInvalidSnapshot, r.Feature, r.Status))
			continue
		case math.IsNaN(r.CurrentPercentage) || r.CurrentPercentage < 0 || r.CurrentPercentage > 1:
			errs = append(errs, fmt.Errorf("%w: rollout %s: percentage %v out of range", ErrInvalidSnapshot, r.Feature, r.CurrentPercentage))
			continue
		}
		if _, dup := next[r.Feature]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate rollout %s", ErrInvalidSnapshot, r.Feature))
			continue
		}
		c := r.clone()
		if c.TargetPercentage == 0 {
			c.TargetPercentage = 1.0
		}
		next[c.Feature] = &c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.mu.Lock()
	s.rollouts = next
	s.mu.Unlock()

	s.publish(ctx, changefeed.StateRestored, "rollouts")
	return nil
}
