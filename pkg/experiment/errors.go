package experiment

import (
	"fmt"

	"github.com/dmitrymomot/launchkit/pkg/failure"
)

var (
	ErrTestNotFound = fmt.Errorf("ab test %w", failure.ErrNotFound)

	ErrInvalidName    = fmt.Errorf("%w: test name is required", failure.ErrConfiguration)
	ErrTooFewVariants = fmt.Errorf("%w: a test needs at least two variants", failure.ErrConfiguration)
	ErrInvalidVariant = fmt.Errorf("%w: variant names must be non-empty and unique", failure.ErrConfiguration)
	ErrInvalidTarget  = fmt.Errorf("%w: target percentage must be within [0, 1]", failure.ErrConfiguration)
	ErrTestExists     = fmt.Errorf("%w: test already exists", failure.ErrConfiguration)
	ErrTestNotActive  = fmt.Errorf("%w: test is not active", failure.ErrConfiguration)
	ErrUnknownVariant = fmt.Errorf("%w: variant is not part of the test", failure.ErrConfiguration)
	ErrInvalidValue   = fmt.Errorf("%w: conversion value must be finite", failure.ErrConfiguration)

	ErrInvalidSnapshot = fmt.Errorf("%w: invalid ab test snapshot", failure.ErrPersistence)
)
