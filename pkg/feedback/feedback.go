// Package feedback records user ratings per feature and keeps a prioritized
// list of features that need attention.
//
// Every collected rating recomputes the feature's average. An average below
// QualityFloor raises the feature to PriorityHigh with a justification quoting
// the average. The rule is idempotent and monotone: it never assigns beyond
// high, never lowers an existing priority and leaves unchanged entries alone.
// Critical is reserved for Escalate.
package feedback

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// QualityFloor is the average rating below which a feature is auto-prioritized.
const QualityFloor = 3.0

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Priority is the operational priority of a feature, totally ordered from low to critical.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities; unknown values rank zero.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Source tells whether a priority was derived from feedback or set by an operator.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Entry is one immutable piece of feedback.
type Entry struct {
	ID        string            `json:"id"`
	Feature   string            `json:"feature"`
	Rating    int               `json:"rating"`
	Comment   string            `json:"comment,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (e Entry) clone() Entry {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

// FeaturePriority is the current priority of a feature. Setting it again
// replaces the previous entry.
type FeaturePriority struct {
	Feature       string    `json:"feature"`
	Priority      Priority  `json:"priority"`
	Justification string    `json:"justification"`
	LastUpdated   time.Time `json:"last_updated"`
	Source        Source    `json:"source,omitempty"`
}

// Summary aggregates the feedback of one feature.
type Summary struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
	// Average is nil when the feature has no feedback.
	Average *float64 `json:"average,omitempty"`
	// Histogram counts ratings; index 0 holds ratings of 1.
	Histogram [MaxRating]int `json:"histogram"`
	// Recent holds the latest entries, newest first.
	Recent []Entry `json:"recent"`
}

// Ratings returns how many entries rated the feature r.
func (s Summary) Ratings(r int) int {
	if r < MinRating || r > MaxRating {
		return 0
	}
	return s.Histogram[r-1]
}

type stats struct {
	count     int
	sum       int
	histogram [MaxRating]int
	entries   []int // indexes into the log, chronological
}

func (s *stats) add(idx, rating int) {
	s.count++
	s.sum += rating
	s.histogram[rating-1]++
	s.entries = append(s.entries, idx)
}

func (s *stats) average() float64 {
	return float64(s.sum) / float64(s.count)
}

func sortPriorities(ps []FeaturePriority) {
	slices.SortFunc(ps, func(a, b FeaturePriority) int {
		if d := b.Priority.Rank() - a.Priority.Rank(); d != 0 {
			return d
		}
		if c := b.LastUpdated.Compare(a.LastUpdated); c != 0 {
			return c
		}
		return strings.Compare(a.Feature, b.Feature)
	})
}
