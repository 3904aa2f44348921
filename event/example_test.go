package event_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/eventbus/event"
)

type UserJoined struct {
	Name string
}

type Message struct {
	event.CancelFlag
	Text string
}

// priorityListener is an explicit listener with its own priority.
type priorityListener struct {
	priority event.Priority
	fn       func(*Message)
}

func (l *priorityListener) Invoke(e event.Event) error {
	l.fn(e.(*Message))
	return nil
}

func (l *priorityListener) Priority() event.Priority { return l.priority }

func (l *priorityListener) EventType() reflect.Type { return event.TypeOf[*Message]() }

// Example_basicUsage demonstrates registering a closure listener.
func Example_basicUsage() {
	d := event.NewDispatcher(event.WithLogger(zerolog.Nop()))

	_ = d.RegisterListener(event.NewListener(func(e *UserJoined) error {
		fmt.Printf("welcome, %s\n", e.Name)
		return nil
	}))

	d.Dispatch(&UserJoined{Name: "ada"})
	d.Dispatch(UserJoined{Name: "not delivered: value and pointer types differ"})

	// Output: welcome, ada
}

// Example_priorities shows the lowest priority running first.
func Example_priorities() {
	d := event.NewDispatcher(event.WithLogger(zerolog.Nop()))

	_ = d.RegisterListener(&priorityListener{priority: event.PriorityHighest, fn: func(m *Message) {
		fmt.Println("highest: cancelled =", m.IsCancelled())
	}})
	_ = d.RegisterListener(&priorityListener{priority: event.PriorityLowest, fn: func(m *Message) {
		if strings.Contains(m.Text, "spam") {
			m.SetCancelled(true)
		}
		fmt.Println("lowest: filter")
	}})

	d.Dispatch(&Message{Text: "buy spam"})

	// Output:
	// lowest: filter
	// highest: cancelled = true
}

type moderator struct {
	banned map[string]bool
}

func (m *moderator) Handlers(b *event.Binder) {
	event.On(b, event.PriorityLow, m.OnMessage)
}

func (m *moderator) OnMessage(msg *Message) error {
	if m.banned[msg.Text] {
		msg.SetCancelled(true)
	}
	return nil
}

// Example_listenerObject registers the members declared by an object.
func Example_listenerObject() {
	d := event.NewDispatcher(event.WithLogger(zerolog.Nop()))
	mod := &moderator{banned: map[string]bool{"rude": true}}

	if err := d.Register(mod); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("listening:", event.HasListenersFor[*Message](d))

	msg := &Message{Text: "rude"}
	d.Dispatch(msg)
	fmt.Println("cancelled:", msg.IsCancelled())

	_ = d.Unregister(mod)
	fmt.Println("listening:", event.HasListenersFor[*Message](d))

	// Output:
	// listening: true
	// cancelled: true
	// listening: false
}

// Example_failureIsolation shows a failing listener not stopping the others.
func Example_failureIsolation() {
	d := event.NewDispatcher(event.WithLogger(zerolog.Nop()))

	_ = d.RegisterListener(event.NewListener(func(*UserJoined) error {
		return errors.New("mailer offline")
	}))
	_ = d.RegisterListener(event.NewListener(func(e *UserJoined) error {
		fmt.Println("still delivered to", e.Name)
		return nil
	}))

	d.Dispatch(&UserJoined{Name: "grace"})
	fmt.Println("failures:", d.Stats().Failures)

	// Output:
	// still delivered to grace
	// failures: 1
}
