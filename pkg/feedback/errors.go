package feedback

import (
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

var (
	ErrInvalidRating   = fmt.Errorf("%w: rating must be an integer within [1, 5]", failure.ErrConfiguration)
	ErrInvalidFeature  = fmt.Errorf("%w: feature name is required", failure.ErrConfiguration)
	ErrInvalidPriority = fmt.Errorf("%w: unknown priority", failure.ErrConfiguration)

	ErrNoFeedback = fmt.Errorf("feedback %w", failure.ErrNotFound)

	ErrInvalidSnapshot = fmt.Errorf("%w: invalid feedback snapshot", failure.ErrPersistence)
)
