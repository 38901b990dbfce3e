package feature

import (
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

var (
	ErrFlagNotFound    = fmt.Errorf("feature flag %w", failure.ErrNotFound)
	ErrRolloutNotFound = fmt.Errorf("rollout %w", failure.ErrNotFound)

	ErrInvalidFeature     = fmt.Errorf("%w: feature name is required", failure.ErrConfiguration)
	ErrInvalidPercentage  = fmt.Errorf("%w: percentage must be within [0, 1]", failure.ErrConfiguration)
	ErrPercentageDecrease = fmt.Errorf("%w: rollout percentage cannot decrease", failure.ErrConfiguration)
	ErrRolloutExists      = fmt.Errorf("%w: rollout already exists", failure.ErrConfiguration)
	ErrRolloutPaused      = fmt.Errorf("%w: rollout is paused", failure.ErrConfiguration)
	ErrInvalidTransition  = fmt.Errorf("%w: invalid rollout transition", failure.ErrConfiguration)
	ErrOverridesDisabled  = fmt.Errorf("%w: per-subject overrides are disabled in release environments", failure.ErrConfiguration)

	ErrInvalidSnapshot = fmt.Errorf("%w: invalid feature snapshot", failure.ErrPersistence)
)
