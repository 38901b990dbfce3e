package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

func TestKinds(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("feature flag %w", failure.ErrNotFound)
	invalid := errors.Join(fmt.Errorf("%w: rating out of range", failure.ErrConfiguration), errors.New("got 7"))
	persist := fmt.Errorf("%w: decode flags", failure.ErrPersistence)

	assert.True(t, failure.IsNotFound(notFound))
	assert.False(t, failure.IsConfiguration(notFound))
	assert.Equal(t, "feature flag not found", notFound.Error())

	assert.True(t, failure.IsConfiguration(invalid))
	assert.False(t, failure.IsPersistence(invalid))

	assert.True(t, failure.IsPersistence(persist))
	assert.False(t, failure.IsNotFound(persist))
	assert.False(t, failure.IsNotFound(nil))
}
