// Package failure defines the root error kinds shared by every launchkit component.
//
// Package-level sentinels wrap exactly one of these roots, so callers can branch
// on the kind of failure without knowing which component produced it:
//
//	if errors.Is(err, failure.ErrNotFound) {
//		// unknown feature, test or rollout; the call was a no-op
//	}
package failure

import "errors"

var (
	// ErrConfiguration marks input that was rejected synchronously: invalid
	// definitions, out-of-range values, illegal state transitions.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound marks operations that reference an unknown entity.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks serialization or storage failures at the load/save boundary.
	ErrPersistence = errors.New("persistence failure")
)

// IsConfiguration reports whether err was caused by rejected configuration.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNotFound reports whether err references an unknown entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPersistence reports whether err happened at the persistence boundary.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
