package event

import (
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/eventbus/event/dispatch"
)

// Dispatcher registers listeners and delivers events to them.
type Dispatcher interface {
	// Register adds the listener members declared by obj, which must be a
	// non-nil pointer. Registration fails on the first invalid member and
	// then adds nothing.
	Register(obj any) error

	// RegisterListener adds a single listener.
	RegisterListener(l Listener) error

	// Unregister removes the listener members declared by obj.
	Unregister(obj any) error

	// UnregisterListener removes a single listener and reports whether it
	// was registered.
	UnregisterListener(l Listener) bool

	// Dispatch delivers e to every listener registered for its concrete type,
	// in priority order. Listener failures are logged, never returned.
	Dispatch(e Event)

	// HasListeners reports whether any listener is registered for exactly t.
	HasListeners(t reflect.Type) bool
}

// Stats contains dispatcher statistics.
type Stats struct {
	// Dispatches is the number of events that reached at least one listener.
	Dispatches uint64

	// Invocations is the total number of listener invocations.
	Invocations uint64

	// Failures is the number of invocations that returned an error.
	Failures uint64

	// Panics is the number of invocations that panicked.
	Panics uint64
}

// SimpleDispatcher is the default Dispatcher implementation.
// It is safe for concurrent use. Listeners added or removed during a
// dispatch may or may not see that dispatch.
type SimpleDispatcher struct {
	registry *Registry
	executor *dispatch.Executor
	config   dispatcherConfig

	dispatches  atomic.Uint64
	invocations atomic.Uint64
	failures    atomic.Uint64
	panics      atomic.Uint64
}

var _ Dispatcher = (*SimpleDispatcher)(nil)

// NewDispatcher creates a dispatcher with the given options.
func NewDispatcher(opts ...Option) *SimpleDispatcher {
	config := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &SimpleDispatcher{
		registry: NewRegistry(),
		executor: dispatch.NewExecutor(dispatch.WithStackCapture(config.captureStack)),
		config:   config,
	}
}

// Register implements Dispatcher.
func (d *SimpleDispatcher) Register(obj any) error {
	members, err := discover(obj)
	if err != nil {
		return err
	}
	for _, m := range members {
		if !d.registry.Add(m) {
			d.config.logger.Debug().
				Str("listener", m.String()).
				Msg("listener already registered")
		}
	}
	return nil
}

// RegisterListener implements Dispatcher.
func (d *SimpleDispatcher) RegisterListener(l Listener) error {
	if err := validateListener(l); err != nil {
		return err
	}
	d.registry.Add(l)
	return nil
}

// Unregister implements Dispatcher.
func (d *SimpleDispatcher) Unregister(obj any) error {
	members, err := discover(obj)
	if err != nil {
		return err
	}
	for _, m := range members {
		d.registry.Remove(m)
	}
	return nil
}

// UnregisterListener implements Dispatcher.
func (d *SimpleDispatcher) UnregisterListener(l Listener) bool {
	if validateListener(l) != nil {
		return false
	}
	return d.registry.Remove(l)
}

// Dispatch implements Dispatcher.
func (d *SimpleDispatcher) Dispatch(e Event) {
	if e == nil {
		return
	}
	t := reflect.TypeOf(e)
	listeners := d.registry.Sorted(t)
	if len(listeners) == 0 {
		return
	}

	d.dispatches.Add(1)
	start := time.Now()
	for _, l := range listeners {
		result := d.executor.Execute(e, l)
		d.invocations.Add(1)
		if !result.IsSuccess() {
			d.report(t, l, result)
		}
		if d.config.observer != nil {
			d.config.observer.ObserveInvocation(t, describe(l), result)
		}
	}
	if d.config.observer != nil {
		d.config.observer.ObserveDispatch(t, len(listeners), time.Since(start))
	}
}

// HasListeners implements Dispatcher.
func (d *SimpleDispatcher) HasListeners(t reflect.Type) bool {
	return d.registry.Has(t)
}

// Stats returns current dispatcher statistics.
func (d *SimpleDispatcher) Stats() Stats {
	return Stats{
		Dispatches:  d.dispatches.Load(),
		Invocations: d.invocations.Load(),
		Failures:    d.failures.Load(),
		Panics:      d.panics.Load(),
	}
}

// Registry returns the underlying listener registry.
func (d *SimpleDispatcher) Registry() *Registry {
	return d.registry
}

// Clear removes every listener.
func (d *SimpleDispatcher) Clear() {
	d.registry.Clear()
}

// report logs a failed invocation.
func (d *SimpleDispatcher) report(t reflect.Type, l Listener, result dispatch.Result) {
	err := invocationError(t, l, result)

	var evt *zerolog.Event
	if result.Panicked {
		d.panics.Add(1)
		evt = d.config.logger.Error().Interface("panic", result.PanicValue)
		if len(result.PanicStack) > 0 {
			evt = evt.Bytes("stack", result.PanicStack)
		}
	} else {
		d.failures.Add(1)
		evt = d.config.logger.Error()
	}
	evt.Err(err).
		Str("event_type", t.String()).
		Str("listener", describe(l)).
		Msg("listener failed")
}

// invocationError converts a failed result into an *InvocationError,
// reusing one already produced by a member listener.
func invocationError(t reflect.Type, l Listener, result dispatch.Result) *InvocationError {
	if result.Panicked {
		return &InvocationError{
			EventType:  t,
			Listener:   describe(l),
			PanicValue: result.PanicValue,
			Stack:      result.PanicStack,
		}
	}
	var ie *InvocationError
	if errors.As(result.Error, &ie) {
		return ie
	}
	return &InvocationError{EventType: t, Listener: describe(l), Err: result.Error}
}

func validateListener(l Listener) error {
	if l == nil {
		return fmt.Errorf("%w: nil listener", ErrInvalidArgument)
	}
	v := reflect.ValueOf(l)
	if isNilValue(v) {
		return fmt.Errorf("%w: nil %T", ErrInvalidArgument, l)
	}
	t := l.EventType()
	if t == nil {
		return fmt.Errorf("%w: listener %s has no event type", ErrInvalidArgument, describe(l))
	}
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("%w: listener %s listens to interface type %v", ErrInvalidArgument, describe(l), t)
	}
	return nil
}

// HasListenersFor reports whether d has listeners for events of type E.
func HasListenersFor[E any](d Dispatcher) bool {
	return d.HasListeners(TypeOf[E]())
}
