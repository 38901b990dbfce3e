package experiment

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/async"
	"github.com/dmitrymomot/launchkit/pkg/bucket"
	"github.com/dmitrymomot/launchkit/pkg/changefeed"
	"github.com/dmitrymomot/launchkit/pkg/logger"
	"github.com/dmitrymomot/launchkit/pkg/telemetry"
)

// Manager owns the A/B tests of an engine.
type Manager struct {
	mu    sync.RWMutex
	tests map[string]*Test

	telemetry telemetry.Sink
	changes   changefeed.Publisher
	runner    async.Runner
	now       func() time.Time
	logger    *slog.Logger
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		tests:     make(map[string]*Test),
		telemetry: telemetry.Nop{},
		changes:   changefeed.Nop{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runner == nil {
		m.runner = async.NewInline(m.logger)
	}
	m.logger = m.logger.With(logger.Component("experiment"))
	return m
}

// CreateTest defines a new active test.
func (m *Manager) CreateTest(ctx context.Context, name string, variants []string, targetPercentage float64, description string) (Test, error) {
	if err := validateDefinition(name, variants, targetPercentage); err != nil {
		return Test{}, err
	}

	m.mu.Lock()
	if _, exists := m.tests[name]; exists {
		m.mu.Unlock()
		return Test{}, fmt.Errorf("%w: %s", ErrTestExists, name)
	}
	t := &Test{
		Name:             name,
		Variants:         slices.Clone(variants),
		TargetPercentage: targetPercentage,
		Description:      description,
		StartDate:        m.now(),
		Status:           StatusActive,
	}
	m.tests[name] = t
	out := t.clone()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "ab test created",
		logger.Test(name), slog.Int("variants", len(variants)), logger.Percentage(targetPercentage))
	m.publish(ctx, name)
	return out, nil
}

// VariantFor returns the variant of subject in an active test. It reports
// false for unknown or stopped tests and for subjects outside the target
// population.
func (m *Manager) VariantFor(ctx context.Context, test, subject string) (string, bool) {
	m.mu.RLock()
	t, ok := m.tests[test]
	if !ok || t.Status != StatusActive {
		m.mu.RUnlock()
		return "", false
	}
	a := assign(t, subject)
	m.mu.RUnlock()

	if !a.Eligible {
		return "", false
	}
	m.emit(ctx, telemetry.EventVariantAssigned, map[string]any{
		"test":       test,
		"variant":    a.Variant,
		"index":      a.Index,
		"subject_id": subject,
	})
	return a.Variant, true
}

// Assignment reconstructs the placement of subject in any retained test,
// including stopped ones. It never emits telemetry.
func (m *Manager) Assignment(_ context.Context, test, subject string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[test]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %s", ErrTestNotFound, test)
	}
	return assign(t, subject), nil
}

// RecordConversion reports a conversion of variant in test to telemetry.
// Test state is not modified; conversions of stopped tests are accepted.
func (m *Manager) RecordConversion(ctx context.Context, test, variant string, value *float64) error {
	m.mu.RLock()
	t, ok := m.tests[test]
	known := ok && slices.Contains(t.Variants, variant)
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTestNotFound, test)
	}
	if !known {
		return fmt.Errorf("%w: %s/%s", ErrUnknownVariant, test, variant)
	}
	props := map[string]any{"test": test, "variant": variant}
	if value != nil {
		if math.IsNaN(*value) || math.IsInf(*value, 0) {
			return ErrInvalidValue
		}
		props["value"] = *value
	}

	m.emit(ctx, telemetry.EventConversion, props)
	return nil
}

// StopTest completes an active test and records its end date.
func (m *Manager) StopTest(ctx context.Context, name string) (Test, error) {
	return m.finish(ctx, name, StatusCompleted)
}

// CancelTest stops an active test without declaring it completed.
func (m *Manager) CancelTest(ctx context.Context, name string) (Test, error) {
	return m.finish(ctx, name, StatusCancelled)
}

// Test returns a copy of the named test.
func (m *Manager) Test(name string) (Test, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[name]
	if !ok {
		return Test{}, false
	}
	return t.clone(), true
}

// Tests returns every retained test sorted by name.
func (m *Manager) Tests() []Test {
	return m.list(func(*Test) bool { return true })
}

// ActiveTests returns the active tests sorted by name.
func (m *Manager) ActiveTests() []Test {
	return m.list(func(t *Test) bool { return t.Status == StatusActive })
}

// Snapshot returns every test, for persistence.
func (m *Manager) Snapshot() []Test {
	return m.Tests()
}

// Restore replaces all tests. The input is validated as a whole; on error
// the manager is left untouched.
func (m *Manager) Restore(ctx context.Context, tests []Test) error {
	next := make(map[string]*Test, len(tests))
	var errs []error
	for i, t := range tests {
		if err := validateDefinition(t.Name, t.Variants, t.TargetPercentage); err != nil {
			errs = append(errs, fmt.Errorf("%w: tests[%d]: %w", ErrInvalidSnapshot, i, err))
			continue
		}
		if !t.Status.Valid() {
			errs = append(errs, fmt.Errorf("%w: test %s: unknown status %q", ErrInvalidSnapshot, t.Name, t.Status))
			continue
		}
		if _, dup := next[t.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate test %s", ErrInvalidSnapshot, t.Name))
			continue
		}
		c := t.clone()
		next[c.Name] = &c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.mu.Lock()
	m.tests = next
	m.mu.Unlock()

	m.changes.Publish(ctx, changefeed.Change{Kind: changefeed.StateRestored, Key: "ab_tests", At: m.now()})
	return nil
}

func (m *Manager) finish(ctx context.Context, name string, status Status) (Test, error) {
	m.mu.Lock()
	t, ok := m.tests[name]
	if !ok {
		m.mu.Unlock()
		return Test{}, fmt.Errorf("%w: %s", ErrTestNotFound, name)
	}
	if t.Status != StatusActive {
		m.mu.Unlock()
		return Test{}, fmt.Errorf("%w: %s is %s", ErrTestNotActive, name, t.Status)
	}
	end := m.now()
	t.Status = status
	t.EndDate = &end
	out := t.clone()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "ab test stopped", logger.Test(name), slog.String("status", string(status)))
	m.publish(ctx, name)
	return out, nil
}

func (m *Manager) list(keep func(*Test) bool) []Test {
	m.mu.RLock()
	out := make([]Test, 0, len(m.tests))
	for _, t := range m.tests {
		if keep(t) {
			out = append(out, t.clone())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Test) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

func (m *Manager) emit(ctx context.Context, event string, props map[string]any) {
	m.runner.Go(ctx, "telemetry."+event, func(ctx context.Context) error {
		return m.telemetry.Emit(ctx, event, props)
	})
}

func (m *Manager) publish(ctx context.Context, name string) {
	m.changes.Publish(ctx, changefeed.Change{Kind: changefeed.TestChanged, Key: name, At: m.now()})
}

// assign places subject in t. Eligibility and variant use independent scopes.
func assign(t *Test, subject string) Assignment {
	a := Assignment{
		Test:      t.Name,
		SubjectID: subject,
		Index:     -1,
		Active:    t.Status == StatusActive,
	}
	if bucket.Eligibility(t.Name, subject) >= t.TargetPercentage {
		return a
	}
	a.Eligible = true
	a.Index = bucket.Index(bucket.ScopeVariant+t.Name, subject, len(t.Variants))
	a.Variant = t.Variants[a.Index]
	return a
}

func validateDefinition(name string, variants []string, target float64) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(variants) < 2 {
		return fmt.Errorf("%w: %s has %d", ErrTooFewVariants, name, len(variants))
	}
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v == "" {
			return fmt.Errorf("%w: %s has an empty variant", ErrInvalidVariant, name)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: %s repeats %q", ErrInvalidVariant, name, v)
		}
		seen[v] = struct{}{}
	}
	if math.IsNaN(target) || target < 0 || target > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidTarget, target)
	}
	return nil
}
