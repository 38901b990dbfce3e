package config

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

var (
	ErrParsingConfig  = fmt.Errorf("%w: failed to parse environment variables into config", failure.ErrConfiguration)
	ErrNilPointer     = errors.New("nil pointer provided to config loader")
	ErrLoadingEnvFile = errors.New("failed to load env file")
	ErrBootstrap      = fmt.Errorf("%w: invalid bootstrap file", failure.ErrConfiguration)
)
