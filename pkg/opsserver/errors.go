package opsserver

import "errors"

var (
	// ErrStart indicates that the server failed to start.
	ErrStart = errors.New("failed to start ops server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown ops server gracefully")
	// ErrAlreadyRunning is returned by Run when the server was already started.
	ErrAlreadyRunning = errors.New("ops server already running")
)
