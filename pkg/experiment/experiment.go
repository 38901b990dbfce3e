// Package experiment runs multi-variant A/B tests.
//
// Assignments are never stored. Whether a subject takes part in a test and
// which variant it sees are pure functions of the test definition and the
// subject id, computed from two independent stable buckets:
//
//	eligible := bucket.Eligibility(test, subject) < test.TargetPercentage
//	index    := floor(bucket.Variant(test, subject) * len(test.Variants))
//
// A subject therefore keeps its variant for the whole life of a test, and
// past assignments of stopped tests can be reconstructed for audit as long
// as the test record is retained.
package experiment

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a test.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Test is an experiment definition. Variants are ordered and immutable; the
// order defines each variant's stable index.
type Test struct {
	Name             string     `json:"name"`
	Variants         []string   `json:"variants"`
	TargetPercentage float64    `json:"target_percentage"`
	Description      string     `json:"description,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	Status           Status     `json:"status"`
}

func (t Test) clone() Test {
	t.Variants = slices.Clone(t.Variants)
	if t.EndDate != nil {
		end := *t.EndDate
		t.EndDate = &end
	}
	return t
}

// Assignment is the derived placement of one subject in one test.
type Assignment struct {
	Test      string `json:"test"`
	SubjectID string `json:"subject_id"`
	Eligible  bool   `json:"eligible"`
	// Variant and Index are set only for eligible subjects; Index is -1 otherwise.
	Variant string `json:"variant,omitempty"`
	Index   int    `json:"index"`
	// Active reports whether the test currently gates new decisions.
	Active bool `json:"active"`
}
