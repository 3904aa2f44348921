package event

import (
	"os"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/eventbus/event/dispatch"
)

// Observer receives dispatch measurements, e.g. for metrics.
// Implementations must be safe for concurrent use and must not call back
// into the dispatcher.
type Observer interface {
	// ObserveInvocation is called after every listener invocation.
	ObserveInvocation(eventType reflect.Type, listener string, result dispatch.Result)

	// ObserveDispatch is called after a dispatch that reached at least one listener.
	ObserveDispatch(eventType reflect.Type, listeners int, elapsed time.Duration)
}

// Option configures a SimpleDispatcher.
type Option func(*dispatcherConfig)

// dispatcherConfig contains configuration for the dispatcher.
type dispatcherConfig struct {
	logger       zerolog.Logger
	observer     Observer
	captureStack bool
}

// defaultDispatcherConfig logs warnings and errors to stderr.
func defaultDispatcherConfig() dispatcherConfig {
	return dispatcherConfig{
		logger: zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
}

// WithLogger sets the logger used to report listener failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *dispatcherConfig) {
		c.logger = logger
	}
}

// WithObserver sets an observer notified of every invocation.
func WithObserver(o Observer) Option {
	return func(c *dispatcherConfig) {
		c.observer = o
	}
}

// WithStackCapture controls whether panicking listeners have their stack
// trace captured and logged.
func WithStackCapture(enabled bool) Option {
	return func(c *dispatcherConfig) {
		c.captureStack = enabled
	}
}
