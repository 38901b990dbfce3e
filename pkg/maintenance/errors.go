package maintenance

import "errors"

var (
	ErrNoTasks               = errors.New("maintenance runner has no tasks")
	ErrTaskAlreadyRegistered = errors.New("maintenance task already registered")
	ErrTaskNotFound          = errors.New("maintenance task not found")
	ErrAlreadyRunning        = errors.New("maintenance runner already started")
	ErrInvalidTask           = errors.New("maintenance task requires a name, schedule and function")
)
