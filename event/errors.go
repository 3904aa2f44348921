package event

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for the event dispatcher.
var (
	// ErrInvalidArgument is returned when a registration target is nil or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidMember is returned when a declared listener member is not
	// exported, is not bound to its owner, or has the wrong shape.
	ErrInvalidMember = errors.New("invalid listener member")

	// ErrDiscovery is returned when a declared listener member cannot be
	// turned into a listener, e.g. a tagged field holding nil.
	ErrDiscovery = errors.New("listener discovery failed")

	// ErrListenerInvocation marks a failure raised by a listener during dispatch.
	ErrListenerInvocation = errors.New("listener invocation failed")

	// ErrListenerPanic marks a listener that panicked during dispatch.
	ErrListenerPanic = errors.New("listener panicked")
)

// MemberError describes a listener member rejected during registration.
type MemberError struct {
	// Owner is the type of the registered object.
	Owner reflect.Type

	// Member is the method, function or field name.
	Member string

	// Reason explains what is wrong with the member.
	Reason string

	// Err is ErrInvalidMember or ErrDiscovery.
	Err error
}

// Error implements the error interface.
func (e *MemberError) Error() string {
	return fmt.Sprintf("%v: member %s of %v %s", e.Err, e.Member, e.Owner, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *MemberError) Unwrap() error {
	return e.Err
}

// InvocationError wraps a failure raised by a listener during dispatch.
type InvocationError struct {
	// EventType is the concrete type of the dispatched event.
	EventType reflect.Type

	// Listener describes the listener that failed.
	Listener string

	// Err is the error returned by the listener, nil when it panicked.
	Err error

	// PanicValue is the value passed to panic(), if the listener panicked.
	PanicValue any

	// Stack is the stack trace captured at the panic, if enabled.
	Stack []byte
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.PanicValue != nil {
		return fmt.Sprintf("listener %s panicked on %v: %v", e.Listener, e.EventType, e.PanicValue)
	}
	return fmt.Sprintf("listener %s failed on %v: %v", e.Listener, e.EventType, e.Err)
}

// Unwrap returns the underlying listener error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Is matches ErrListenerInvocation, and ErrListenerPanic for panics.
func (e *InvocationError) Is(target error) bool {
	if target == ErrListenerInvocation {
		return true
	}
	return target == ErrListenerPanic && e.PanicValue != nil
}
