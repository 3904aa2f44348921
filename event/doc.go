// Package event provides a synchronous, in-process event dispatcher.
//
// Producers publish plain Go values; every listener registered for the
// value's concrete type runs in the publisher's goroutine, ordered by
// priority. Nothing is queued, persisted or sent across processes.
//
// # Listeners
//
// A Listener handles one concrete event type:
//
//	type Ping struct{ Seq int }
//
//	l := event.NewListener(func(p *Ping) error {
//	    fmt.Println("ping", p.Seq)
//	    return nil
//	})
//	d := event.NewDispatcher()
//	_ = d.RegisterListener(l)
//	d.Dispatch(&Ping{Seq: 1})
//
// Closure listeners from NewListener and NewListenerFor run at
// PriorityNormal. Implement Listener directly for any other priority.
//
// # Listener Objects
//
// Register accepts a pointer to an object and discovers its listener members.
// Handler methods are declared through HandlerProvider, and fields holding a
// Listener are marked with the `event:"listener"` tag:
//
//	type Chat struct {
//	    Audit event.Listener `event:"listener,priority=lowest"`
//	}
//
//	func (c *Chat) Handlers(b *event.Binder) {
//	    event.On(b, event.PriorityHigh, c.OnMessage)
//	}
//
//	func (c *Chat) OnMessage(m *Message) error { ... }
//
// Declared methods must be exported methods of the object; package-level
// functions are rejected. Tagged fields must be exported and hold a non-nil
// Listener. Unregister(obj) removes everything Register(obj) added.
//
// # Priority Ordering
//
// Listeners run in ascending priority value:
//
//   - PriorityLowest (-1): runs first
//   - PriorityLow (0)
//   - PriorityNormal (1): default
//   - PriorityHigh (2)
//   - PriorityHighest (3): runs last
//
// Listeners of equal priority run in registration order. Sorting is deferred
// to the first dispatch after a registration.
//
// # Failure Isolation
//
// A listener that returns an error or panics is logged through zerolog and
// the remaining listeners still run. Dispatch itself never fails.
//
// # Thread Safety
//
// SimpleDispatcher is safe for concurrent use. Registrations may happen
// while events are being dispatched; a dispatch in progress may or may not
// observe them.
package event
