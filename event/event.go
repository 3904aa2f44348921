package event

import "reflect"

// Event is any value published through a Dispatcher.
// Listeners are selected by the event's concrete dynamic type, so *Ping and
// Ping are distinct event types. Use pointer events when listeners need to
// mutate shared state such as the cancelled flag.
type Event = any

// Cancellable is implemented by events that listeners may cancel.
// The dispatcher never reads the flag; it is a signal for the producer
// and for later listeners.
type Cancellable interface {
	// SetCancelled sets the cancelled state of the event.
	SetCancelled(cancelled bool)

	// IsCancelled reports whether the event has been cancelled.
	IsCancelled() bool
}

// CancelFlag is an embeddable implementation of Cancellable.
//
//	type ChatMessage struct {
//	    event.CancelFlag
//	    Text string
//	}
type CancelFlag struct {
	cancelled bool
}

// SetCancelled sets the cancelled state.
func (c *CancelFlag) SetCancelled(cancelled bool) {
	c.cancelled = cancelled
}

// IsCancelled reports whether the event was cancelled.
func (c *CancelFlag) IsCancelled() bool {
	return c.cancelled
}

// TypeOf returns the event type key for E.
func TypeOf[E any]() reflect.Type {
	return reflect.TypeFor[E]()
}
