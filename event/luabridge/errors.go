package luabridge

import "errors"

// Errors for script hosts.
var (
	// ErrClosed is returned when operating on a closed host.
	ErrClosed = errors.New("lua host is closed")

	// ErrUnknownEvent is returned when a script names an event that was never exposed.
	ErrUnknownEvent = errors.New("unknown event name")

	// ErrInvalidExpose is returned when an event type cannot be exposed.
	ErrInvalidExpose = errors.New("invalid event exposure")
)
