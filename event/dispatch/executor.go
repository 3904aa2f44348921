package dispatch

import (
	"runtime/debug"
	"time"
)

// Executor handles the actual execution of event handlers with
// panic recovery and timing.
type Executor struct {
	captureStack bool
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStackCapture enables capturing the stack trace of panicking handlers.
func WithStackCapture(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.captureStack = enabled
	}
}

// Execute runs a handler with the given event and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(event any, handler Handler) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			if e.captureStack {
				result.PanicStack = debug.Stack()
			}
		}
	}()

	if err := handler.Invoke(event); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}
