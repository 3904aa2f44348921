package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatRoom declares handler methods and tagged listener fields.
type chatRoom struct {
	rec *recorder

	Audit  Listener `event:"listener,priority=lowest"`
	Mirror Listener `event:"listener"`
	Plain  string
}

func newChatRoom(rec *recorder) *chatRoom {
	audit := newTestListener(rec, "audit", PriorityHighest)
	audit.eventType = TypeOf[*ChatMessage]()
	mirror := newTestListener(rec, "mirror", PriorityHigh)
	mirror.eventType = TypeOf[*ChatMessage]()
	return &chatRoom{rec: rec, Audit: audit, Mirror: mirror}
}

func (c *chatRoom) Handlers(b *Binder) {
	On(b, PriorityNormal, c.OnMessage)
	OnFunc(b, PriorityLow, c.OnPing)
	On(b, PriorityLowest, func(m *ChatMessage) error {
		c.rec.add("inline")
		return nil
	})
}

func (c *chatRoom) OnMessage(m *ChatMessage) error {
	c.rec.add("method")
	return nil
}

func (c *chatRoom) OnPing(p *Ping) {
	c.rec.add("ping")
}

func handlePing(*Ping) error { return nil }

type privateHandler struct{}

func (p *privateHandler) Handlers(b *Binder) { On(b, PriorityNormal, p.onPing) }
func (p *privateHandler) onPing(*Ping) error  { return nil }

type staticHandler struct{}

func (s *staticHandler) Handlers(b *Binder) { On(b, PriorityNormal, handlePing) }

var globalPingHandler = func(*Ping) error { return nil }

type globalVarHandler struct{}

func (g *globalVarHandler) Handlers(b *Binder) { On(b, PriorityNormal, globalPingHandler) }

// foreignHandler declares another object's method as its own.
type foreignHandler struct{ other *erroringRoom }

func (f *foreignHandler) Handlers(b *Binder) { On(b, PriorityNormal, f.other.OnPing) }
func (f *foreignHandler) OnPing(*Ping) error { return nil }

type nilHandler struct{}

func (n *nilHandler) Handlers(b *Binder) { On[*Ping](b, PriorityNormal, nil) }

type interfaceHandler struct{}

func (h *interfaceHandler) Handlers(b *Binder) { On(b, PriorityNormal, h.OnAny) }
func (h *interfaceHandler) OnAny(any) error    { return nil }

type badPriorityHandler struct{}

func (h *badPriorityHandler) Handlers(b *Binder) { On(b, Priority(9), h.OnPing) }
func (h *badPriorityHandler) OnPing(*Ping) error { return nil }

// failFast declares a valid handler before an invalid one.
type failFast struct{ calls int }

func (f *failFast) Handlers(b *Binder) {
	On(b, PriorityNormal, f.OnPing)
	On(b, PriorityNormal, handlePing)
}
func (f *failFast) OnPing(*Ping) error { f.calls++; return nil }

type unexportedField struct {
	audit Listener `event:"listener"`
}

type nilField struct {
	Audit Listener `event:"listener"`
}

type wrongFieldType struct {
	Audit string `event:"listener"`
}

type badTag struct {
	Audit Listener `event:"handler"`
}

type badTagPriority struct {
	Audit Listener `event:"listener,priority=urgent"`
}

type badTagOption struct {
	Audit Listener `event:"listener,once"`
}

func TestRegister_DiscoversMembers(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}
	room := newChatRoom(rec)

	require.NoError(t, d.Register(room))

	d.Dispatch(&ChatMessage{Text: "hi"})
	assert.Equal(t, []string{"inline", "audit", "method", "mirror"}, rec.Calls(),
		"tag priority overrides the field listener's own; untagged priority comes from the listener")

	rec.reset()
	d.Dispatch(&Ping{})
	assert.Equal(t, []string{"ping"}, rec.Calls())
}

func TestRegister_Twice(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}
	room := newChatRoom(rec)

	require.NoError(t, d.Register(room))
	require.NoError(t, d.Register(room))

	assert.Equal(t, 4, d.Registry().Count(TypeOf[*ChatMessage]()))
	assert.Equal(t, 1, d.Registry().Count(TypeOf[*Ping]()))
}

func TestRegister_TwoOwnersOfSameType(t *testing.T) {
	d, _ := newTestDispatcher()
	first, second := &recorder{}, &recorder{}

	require.NoError(t, d.Register(newChatRoom(first)))
	require.NoError(t, d.Register(newChatRoom(second)))

	d.Dispatch(&Ping{})
	assert.Equal(t, []string{"ping"}, first.Calls())
	assert.Equal(t, []string{"ping"}, second.Calls())
}

func TestUnregister_Symmetric(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}
	room := newChatRoom(rec)
	other := newChatRoom(&recorder{})

	require.NoError(t, d.Register(room))
	require.NoError(t, d.Register(other))
	require.NoError(t, d.Unregister(room))

	assert.Equal(t, 4, d.Registry().Count(TypeOf[*ChatMessage]()), "only the other room's listeners remain")

	require.NoError(t, d.Unregister(other))
	assert.False(t, HasListenersFor[*ChatMessage](d), "field listeners are removed too")
	assert.False(t, HasListenersFor[*Ping](d))

	d.Dispatch(&ChatMessage{})
	assert.Empty(t, rec.Calls())
}

func TestUnregister_AfterFieldReassignment(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}
	room := newChatRoom(rec)

	require.NoError(t, d.Register(room))
	replacement := newTestListener(rec, "replacement", PriorityNormal)
	replacement.eventType = TypeOf[*ChatMessage]()
	room.Audit = replacement

	d.Dispatch(&ChatMessage{})
	assert.Contains(t, rec.Calls(), "audit", "the value held at registration keeps running")

	require.NoError(t, d.Unregister(room))
	assert.False(t, HasListenersFor[*ChatMessage](d))
}

func TestRegister_InvalidArgument(t *testing.T) {
	var nilRoom *chatRoom

	tests := []struct {
		name string
		obj  any
	}{
		{"nil", nil},
		{"nil pointer", nilRoom},
		{"not a pointer", chatRoom{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher()
			assert.ErrorIs(t, d.Register(tt.obj), ErrInvalidArgument)
			assert.ErrorIs(t, d.Unregister(tt.obj), ErrInvalidArgument)
		})
	}
}

func TestRegister_InvalidMembers(t *testing.T) {
	tests := []struct {
		name   string
		obj    any
		want   error
		member string
	}{
		{"private method", &privateHandler{}, ErrInvalidMember, "onPing"},
		{"static function", &staticHandler{}, ErrInvalidMember, "handlePing"},
		{"package-level function variable", &globalVarHandler{}, ErrInvalidMember, ""},
		{"method of another object", &foreignHandler{other: &erroringRoom{}}, ErrInvalidMember, "OnPing"},
		{"nil function", &nilHandler{}, ErrInvalidMember, "<nil>"},
		{"interface event type", &interfaceHandler{}, ErrInvalidMember, "OnAny"},
		{"invalid priority", &badPriorityHandler{}, ErrInvalidMember, "OnPing"},
		{"unexported field", &unexportedField{audit: NewListener(handlePing)}, ErrInvalidMember, "audit"},
		{"nil field", &nilField{}, ErrDiscovery, "Audit"},
		{"wrong field type", &wrongFieldType{Audit: "x"}, ErrInvalidMember, "Audit"},
		{"unknown tag", &badTag{Audit: NewListener(handlePing)}, ErrInvalidMember, "Audit"},
		{"unknown tag priority", &badTagPriority{Audit: NewListener(handlePing)}, ErrInvalidMember, "Audit"},
		{"unknown tag option", &badTagOption{Audit: NewListener(handlePing)}, ErrInvalidMember, "Audit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher()

			err := d.Register(tt.obj)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var me *MemberError
			require.True(t, errors.As(err, &me))
			if tt.member != "" {
				assert.Equal(t, tt.member, me.Member)
			}

			assert.Empty(t, d.Registry().Types(), "a rejected registration adds nothing")
		})
	}
}

func TestRegister_FailFastAddsNothing(t *testing.T) {
	d, _ := newTestDispatcher()
	f := &failFast{}

	err := d.Register(f)
	require.ErrorIs(t, err, ErrInvalidMember)

	d.Dispatch(&Ping{})
	assert.Zero(t, f.calls)
	assert.False(t, HasListenersFor[*Ping](d))
}

func TestRegister_NoMembers(t *testing.T) {
	d, _ := newTestDispatcher()
	type plain struct{ Name string }

	require.NoError(t, d.Register(&plain{Name: "x"}))
	assert.Empty(t, d.Registry().Types())
}

func TestMemberListener_WrapsErrors(t *testing.T) {
	d, buf := newTestDispatcher()
	boom := errors.New("member failed")

	room := &erroringRoom{err: boom}
	require.NoError(t, d.Register(room))

	d.Dispatch(&Ping{})

	assert.Contains(t, buf.String(), "(*event.erroringRoom).OnPing")
	assert.Contains(t, buf.String(), "member failed")
	assert.Equal(t, uint64(1), d.Stats().Failures)

	m := &memberListener{
		key:       memberKey{owner: room, name: "OnPing", eventType: TypeOf[*Ping]()},
		ownerType: TypeOf[*erroringRoom](),
		call:      func(Event) error { return boom },
	}
	err := m.Invoke(&Ping{})
	assert.ErrorIs(t, err, ErrListenerInvocation)
	assert.ErrorIs(t, err, boom)
}

type erroringRoom struct{ err error }

func (r *erroringRoom) Handlers(b *Binder) { On(b, PriorityNormal, r.OnPing) }
func (r *erroringRoom) OnPing(*Ping) error { return r.err }

func TestFuncMember(t *testing.T) {
	room := &chatRoom{}
	closure := func(*Ping) error { return nil }

	tests := []struct {
		name         string
		fn           any
		wantName     string
		wantReceiver string
		wantKind     funcKind
	}{
		{"method value", room.OnMessage, "OnMessage", "chatRoom", methodFunc},
		{"value receiver", pingCounter{}.Count, "Count", "pingCounter", methodFunc},
		{"package function", handlePing, "handlePing", "", staticFunc},
		{"package-level function variable", globalPingHandler, "", "", staticFunc},
		{"closure", closure, "", "", closureFunc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, receiver, kind := funcMember(tt.fn)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantReceiver, receiver)
			if tt.wantName != "" {
				assert.Equal(t, tt.wantName, name)
			}
		})
	}
}

type pingCounter struct{}

func (pingCounter) Count(*Ping) {}

// loopHandlers declares several handlers from one function literal site.
type loopHandlers struct {
	rec   *recorder
	names []string
}

func (l *loopHandlers) Handlers(b *Binder) {
	for _, name := range l.names {
		On(b, PriorityNormal, func(*Ping) error {
			l.rec.add(name)
			return nil
		})
	}
}

// taggedHandlers declares handlers through a helper that returns closures.
type taggedHandlers struct{ rec *recorder }

func (h *taggedHandlers) Handlers(b *Binder) {
	On(b, PriorityLow, h.tag("low"))
	On(b, PriorityHigh, h.tag("high"))
}

func (h *taggedHandlers) tag(name string) func(*Ping) error {
	return func(*Ping) error {
		h.rec.add(name)
		return nil
	}
}

func TestRegister_HandlersFromOneSite(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}
	l := &loopHandlers{rec: rec, names: []string{"first", "second", "third"}}

	require.NoError(t, d.Register(l))
	assert.Equal(t, 3, d.Registry().Count(TypeOf[*Ping]()))

	d.Dispatch(&Ping{})
	assert.Equal(t, []string{"first", "second", "third"}, rec.Calls())

	require.NoError(t, d.Register(l), "registering again is still a no-op")
	assert.Equal(t, 3, d.Registry().Count(TypeOf[*Ping]()))

	require.NoError(t, d.Unregister(l))
	assert.False(t, HasListenersFor[*Ping](d))
}

func TestRegister_HandlersFromHelper(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}

	require.NoError(t, d.Register(&taggedHandlers{rec: rec}))

	d.Dispatch(&Ping{})
	assert.Equal(t, []string{"low", "high"}, rec.Calls())
}

// outer gets OnPing from an embedded type.
type innerPing struct{ rec *recorder }

func (i *innerPing) OnPing(*Ping) error {
	i.rec.add("inner")
	return nil
}

type outer struct{ *innerPing }

func (o *outer) Handlers(b *Binder) { On(b, PriorityNormal, o.OnPing) }

func TestRegister_PromotedMethod(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := &recorder{}

	require.NoError(t, d.Register(&outer{innerPing: &innerPing{rec: rec}}))

	d.Dispatch(&Ping{})
	assert.Equal(t, []string{"inner"}, rec.Calls())
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag      string
		want     Priority
		wantSet  bool
		wantFail bool
	}{
		{"listener", PriorityNormal, false, false},
		{"listener,priority=high", PriorityHigh, true, false},
		{"listener, priority=LOWEST", PriorityLowest, true, false},
		{"listener,", PriorityNormal, false, false},
		{"listener,priority=", PriorityNormal, false, true},
		{"listener,priority=urgent", PriorityNormal, false, true},
		{"handler", PriorityNormal, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			p, set, err := parseTag(tt.tag)
			if tt.wantFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
			assert.Equal(t, tt.wantSet, set)
		})
	}
}
