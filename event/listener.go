package event

import (
	"fmt"
	"reflect"
)

// Listener receives events of exactly one concrete type.
type Listener interface {
	// Invoke handles the event. Returned errors and panics are isolated by
	// the dispatcher and never reach the publisher.
	Invoke(e Event) error

	// Priority determines the listener's position in the invocation order.
	Priority() Priority

	// EventType returns the concrete event type the listener receives.
	EventType() reflect.Type
}

// funcListener adapts a closure to Listener. Closures cannot be inspected
// for their parameter type, so the event type is carried explicitly.
type funcListener struct {
	eventType reflect.Type
	fn        func(Event) error
}

// NewListener creates a listener for events of type E backed by fn.
// The listener runs at PriorityNormal.
func NewListener[E any](fn func(E) error) Listener {
	if fn == nil {
		panic("event: nil listener func")
	}
	return &funcListener{
		eventType: TypeOf[E](),
		fn: func(e Event) error {
			return fn(e.(E))
		},
	}
}

// NewListenerFor creates a listener for the given event type backed by a
// type-erased fn. The listener runs at PriorityNormal.
func NewListenerFor(eventType reflect.Type, fn func(Event) error) Listener {
	if fn == nil {
		panic("event: nil listener func")
	}
	return &funcListener{eventType: eventType, fn: fn}
}

// Invoke implements Listener.
func (l *funcListener) Invoke(e Event) error {
	return l.fn(e)
}

// Priority implements Listener.
func (l *funcListener) Priority() Priority {
	return PriorityNormal
}

// EventType implements Listener.
func (l *funcListener) EventType() reflect.Type {
	return l.eventType
}

func (l *funcListener) String() string {
	return fmt.Sprintf("func(%v)", l.eventType)
}

// describe returns a short name for l used in logs and errors.
func describe(l Listener) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", l)
}

// sameListener reports whether a and b denote the same registration.
// Member listeners compare by identity key; everything else compares with ==
// when the dynamic type allows it.
func sameListener(a, b Listener) (same bool) {
	if ma, ok := a.(*memberListener); ok {
		mb, ok := b.(*memberListener)
		return ok && ma.key == mb.key
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	defer func() {
		// Interface-typed fields may hold uncomparable values.
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
