package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/eventbus/event"
	"github.com/dshills/eventbus/event/luabridge"
)

// ChatMessage is posted for every chat line. Listeners may cancel it.
type ChatMessage struct {
	event.CancelFlag
	Author string `json:"author"`
	Text   string `json:"text"`
}

// UserJoined is posted when a user enters the chat.
type UserJoined struct {
	Name string `json:"name"`
}

// exposeEvents makes the demo events visible to scripts.
func exposeEvents(h *luabridge.Host) error {
	return errors.Join(
		luabridge.Expose[*ChatMessage](h, "chat"),
		luabridge.Expose[*UserJoined](h, "joined"),
	)
}

// chatLog is a listener object: its handlers and its tagged field are
// discovered by Register.
type chatLog struct {
	out   io.Writer
	lines int

	Audit event.Listener `event:"listener,priority=highest"`
}

func newChatLog(out io.Writer) *chatLog {
	c := &chatLog{out: out}
	c.Audit = event.NewListener(func(m *ChatMessage) error {
		fmt.Fprintf(out, "[go] audit: %q cancelled=%t\n", m.Text, m.IsCancelled())
		return nil
	})
	return c
}

func (c *chatLog) Handlers(b *event.Binder) {
	event.On(b, event.PriorityNormal, c.OnMessage)
	event.OnFunc(b, event.PriorityHigh, c.OnJoin)
}

// OnMessage prints messages that no earlier listener cancelled.
func (c *chatLog) OnMessage(m *ChatMessage) error {
	if m.IsCancelled() {
		return nil
	}
	c.lines++
	fmt.Fprintf(c.out, "[go] %s: %s\n", m.Author, m.Text)
	return nil
}

// OnJoin announces a new user.
func (c *chatLog) OnJoin(u *UserJoined) {
	fmt.Fprintf(c.out, "[go] %s joined\n", u.Name)
}

// registerDemoListeners registers the Go side of the demo.
func registerDemoListeners(d event.Dispatcher, out io.Writer) (*chatLog, error) {
	chat := newChatLog(out)
	if err := d.Register(chat); err != nil {
		return nil, err
	}

	// Fails on purpose: the remaining listeners still run.
	mailer := event.NewListener(func(u *UserJoined) error {
		return fmt.Errorf("welcome mail to %s: mailer offline", u.Name)
	})
	if err := d.RegisterListener(mailer); err != nil {
		return nil, err
	}
	return chat, nil
}

// runScenario posts the demo events and reports what happened.
func runScenario(d event.Dispatcher, out io.Writer) {
	d.Dispatch(&UserJoined{Name: "ada"})

	for _, text := range []string{"hello everyone", "buy cheap spam now"} {
		msg := &ChatMessage{Author: "ada", Text: text}
		d.Dispatch(msg)
		fmt.Fprintf(out, "message %q cancelled: %t\n", text, msg.IsCancelled())
	}
}

// printMetrics writes every counter and histogram count in reg.
func printMetrics(reg prometheus.Gatherer, out io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := f.GetName() + "{" + strings.Join(labels, ",") + "}"
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s count=%d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)

	fmt.Fprintln(out, "metrics:")
	for _, line := range lines {
		fmt.Fprintln(out, "  "+line)
	}
	return nil
}
