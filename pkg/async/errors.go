package async

import "errors"

var (
	ErrDispatcherClosed = errors.New("async: dispatcher is closed")
	ErrQueueFull        = errors.New("async: dispatch queue is full")
	ErrShutdownTimeout  = errors.New("async: shutdown interrupted before queue drained")
)
