package alert

import (
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

var (
	ErrUnknownSignal    = fmt.Errorf("%w: unknown alert signal", failure.ErrConfiguration)
	ErrInvalidDirection = fmt.Errorf("%w: direction must be exceeds or falls_below", failure.ErrConfiguration)
	ErrInvalidThreshold = fmt.Errorf("%w: threshold must be a finite number", failure.ErrConfiguration)
	ErrInvalidCooldown  = fmt.Errorf("%w: cooldown must not be negative", failure.ErrConfiguration)
	ErrInvalidSeverity  = fmt.Errorf("%w: unknown severity", failure.ErrConfiguration)
	ErrEmptySignal      = fmt.Errorf("%w: signal is required", failure.ErrConfiguration)

	ErrConfigNotFound = fmt.Errorf("alert config %w", failure.ErrNotFound)

	ErrInvalidSnapshot = fmt.Errorf("%w: invalid alert snapshot", failure.ErrPersistence)
)
