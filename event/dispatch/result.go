package dispatch

import "time"

// Handler is the interface for event handlers.
// This mirrors the event.Listener Invoke method to avoid circular imports.
type Handler interface {
	Invoke(event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(event any) error

// Invoke implements the Handler interface.
func (f HandlerFunc) Invoke(event any) error {
	return f(event)
}

// Result represents the outcome of a handler execution.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, if any.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	// It is only captured when the executor has stack capture enabled.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Outcome returns "ok", "error" or "panic".
func (r Result) Outcome() string {
	switch {
	case r.Panicked:
		return "panic"
	case r.Error != nil:
		return "error"
	default:
		return "ok"
	}
}
