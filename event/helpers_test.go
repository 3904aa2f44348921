package event

import (
	"bytes"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
)

type Ping struct {
	Seq int
}

type Pong struct{}

type ChatMessage struct {
	CancelFlag
	Author string
	Text   string
}

// recorder collects listener names in invocation order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// testListener is an explicit listener with a configurable outcome.
type testListener struct {
	name      string
	priority  Priority
	eventType reflect.Type
	rec       *recorder
	err       error
	panicWith any
}

func newTestListener(rec *recorder, name string, p Priority) *testListener {
	return &testListener{
		name:      name,
		priority:  p,
		eventType: TypeOf[*Ping](),
		rec:       rec,
	}
}

func (l *testListener) Invoke(e Event) error {
	if l.rec != nil {
		l.rec.add(l.name)
	}
	if l.panicWith != nil {
		panic(l.panicWith)
	}
	return l.err
}

func (l *testListener) Priority() Priority {
	return l.priority
}

func (l *testListener) EventType() reflect.Type {
	return l.eventType
}

func (l *testListener) String() string {
	return l.name
}

// newTestDispatcher returns a dispatcher logging into the returned buffer.
func newTestDispatcher(opts ...Option) (*SimpleDispatcher, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewDispatcher(opts...), &buf
}
