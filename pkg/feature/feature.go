package feature

import (
	"maps"
	"slices"
	"time"
)

// Flag is a feature flag gated by a rollout percentage.
type Flag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Enabled mirrors RolloutPercentage > 0. Disabling a flag sets the percentage to zero;
	// flags are never deleted.
	Enabled           bool    `json:"enabled"`
	RolloutPercentage float64 `json:"rollout_percentage"`
	// Overrides force the result for individual subjects. They are honored
	// only outside release environments.
	Overrides map[string]bool `json:"overrides,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitzero"`
	UpdatedAt time.Time       `json:"updated_at,omitzero"`
}

func (f Flag) clone() Flag {
	f.Overrides = maps.Clone(f.Overrides)
	f.Tags = slices.Clone(f.Tags)
	return f
}

// RolloutStatus is the lifecycle state of a rollout.
type RolloutStatus string

const (
	StatusInProgress RolloutStatus = "in_progress"
	StatusCompleted  RolloutStatus = "completed"
	StatusRolledBack RolloutStatus = "rolled_back"
	StatusPaused     RolloutStatus = "paused"
)

// Valid reports whether s is a known status.
func (s RolloutStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusRolledBack, StatusPaused:
		return true
	}
	return false
}

// Step records one change of a rollout.
type Step struct {
	Percentage float64       `json:"percentage"`
	Status     RolloutStatus `json:"status"`
	At         time.Time     `json:"at"`
}

// Rollout tracks the gradual release of a single feature.
type Rollout struct {
	Feature     string `json:"feature"`
	Description string `json:"description,omitempty"`
	// CurrentPercentage never decreases while the rollout is in progress. After
	// a rollback it keeps the last value reached; the flag itself is at zero.
	CurrentPercentage float64       `json:"current_percentage"`
	TargetPercentage  float64       `json:"target_percentage"`
	Status            RolloutStatus `json:"status"`
	StartDate         time.Time     `json:"start_date"`
	LastUpdated       time.Time     `json:"last_updated"`
	History           []Step        `json:"history,omitempty"`
}

func (r Rollout) clone() Rollout {
	r.History = slices.Clone(r.History)
	return r
}

// Active reports whether the rollout still gates its flag.
func (r Rollout) Active() bool {
	return r.Status == StatusInProgress || r.Status == StatusPaused
}
