package luabridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventbus/event"
)

// DefaultTimeout bounds a single script execution or listener call.
const DefaultTimeout = 5 * time.Second

// Host runs Lua scripts whose listeners are registered on a dispatcher.
type Host struct {
	dispatcher event.Dispatcher
	logger     zerolog.Logger
	timeout    time.Duration
	priority   event.Priority
	output     io.Writer

	// mu guards the Lua state, which is not goroutine-safe.
	mu     sync.Mutex
	L      *lua.LState
	closed bool

	// handlesMu guards names and listeners. It is separate from mu so that
	// scripts can call events.on and events.off while holding the state.
	handlesMu sync.Mutex
	names     map[string]reflect.Type
	listeners map[string]*scriptListener
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger for script registration messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithTimeout bounds every script execution and listener call.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// WithDefaultPriority sets the priority of events.on calls that give none.
func WithDefaultPriority(p event.Priority) Option {
	return func(h *Host) {
		h.priority = p
	}
}

// WithOutput redirects the script print function to w.
func WithOutput(w io.Writer) Option {
	return func(h *Host) {
		h.output = w
	}
}

// NewHost creates a host whose scripts register listeners on d.
func NewHost(d event.Dispatcher, opts ...Option) *Host {
	h := &Host{
		dispatcher: d,
		logger:     zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
		timeout:    DefaultTimeout,
		priority:   event.PriorityNormal,
		names:      make(map[string]reflect.Type),
		listeners:  make(map[string]*scriptListener),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(h.L)
	if h.output != nil {
		h.L.SetGlobal("print", h.L.NewFunction(h.luaPrint))
	}
	h.L.SetGlobal("events", h.eventsModule())
	return h
}

// openSafeLibraries opens the base, table, string and math libraries and
// removes the loaders that reach the file system.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Expose makes events of type E visible to scripts under name.
func Expose[E any](h *Host, name string) error {
	return h.expose(name, event.TypeOf[E]())
}

func (h *Host) expose(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidExpose)
	}
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("%w: %s names interface type %v", ErrInvalidExpose, name, t)
	}

	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()
	if existing, ok := h.names[name]; ok && existing != t {
		return fmt.Errorf("%w: %s already names %v", ErrInvalidExpose, name, existing)
	}
	h.names[name] = t
	return nil
}

// Names returns the exposed event names in sorted order.
func (h *Host) Names() []string {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()

	names := make([]string, 0, len(h.names))
	for name := range h.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Listeners returns the number of registered script listeners.
func (h *Host) Listeners() int {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()
	return len(h.listeners)
}

// DoString runs a chunk of Lua source.
func (h *Host) DoString(src string) error {
	return h.exec(func() error {
		return h.L.DoString(src)
	})
}

// DoFile runs the Lua file at path.
func (h *Host) DoFile(path string) error {
	return h.exec(func() error {
		return h.L.DoFile(path)
	})
}

// exec runs fn with the state locked and bounded by the host timeout.
func (h *Host) exec(fn func() error) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	if h.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close unregisters every script listener and closes the Lua state.
func (h *Host) Close() error {
	h.handlesMu.Lock()
	listeners := h.listeners
	h.listeners = make(map[string]*scriptListener)
	h.handlesMu.Unlock()

	for _, l := range listeners {
		h.dispatcher.UnregisterListener(l)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}

// eventsModule builds the global events table.
func (h *Host) eventsModule() *lua.LTable {
	mod := h.L.SetFuncs(h.L.NewTable(), map[string]lua.LGFunction{
		"on":  h.luaOn,
		"off": h.luaOff,
		"has": h.luaHas,
	})

	priorities := h.L.NewTable()
	for _, p := range event.Priorities() {
		priorities.RawSetString(p.String(), lua.LNumber(p))
	}
	mod.RawSetString("priorities", priorities)
	return mod
}

// luaOn implements events.on(name, [priority], fn) -> id.
func (h *Host) luaOn(L *lua.LState) int {
	name := L.CheckString(1)

	p := h.priority
	fnArg := 2
	if L.GetTop() >= 3 {
		p = checkPriority(L, 2)
		fnArg = 3
	}
	fn := L.CheckFunction(fnArg)

	t, ok := h.eventType(name)
	if !ok {
		L.ArgError(1, fmt.Sprintf("%v: %q", ErrUnknownEvent, name))
		return 0
	}

	l := &scriptListener{
		id:        uuid.NewString(),
		host:      h,
		name:      name,
		eventType: t,
		priority:  p,
		fn:        fn,
	}
	if err := h.dispatcher.RegisterListener(l); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	h.handlesMu.Lock()
	h.listeners[l.id] = l
	h.handlesMu.Unlock()

	h.logger.Debug().
		Str("listener", l.String()).
		Str("event_type", t.String()).
		Stringer("priority", p).
		Msg("script listener registered")

	L.Push(lua.LString(l.id))
	return 1
}

// luaOff implements events.off(id) -> bool.
func (h *Host) luaOff(L *lua.LState) int {
	id := L.CheckString(1)

	h.handlesMu.Lock()
	l, ok := h.listeners[id]
	delete(h.listeners, id)
	h.handlesMu.Unlock()

	if ok {
		h.dispatcher.UnregisterListener(l)
		h.logger.Debug().Str("listener", l.String()).Msg("script listener removed")
	}
	L.Push(lua.LBool(ok))
	return 1
}

// luaHas implements events.has(name) -> bool.
func (h *Host) luaHas(L *lua.LState) int {
	t, ok := h.eventType(L.CheckString(1))
	L.Push(lua.LBool(ok && h.dispatcher.HasListeners(t)))
	return 1
}

// luaPrint writes its arguments to the host output, tab-separated like the
// builtin print.
func (h *Host) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(h.output, strings.Join(parts, "\t"))
	return 0
}

func (h *Host) eventType(name string) (reflect.Type, bool) {
	h.handlesMu.Lock()
	defer h.handlesMu.Unlock()
	t, ok := h.names[name]
	return t, ok
}

// checkPriority accepts a priority value or name at stack index n.
func checkPriority(L *lua.LState, n int) event.Priority {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		p := event.Priority(int8(v))
		if lua.LNumber(p) != v || !p.Valid() {
			L.ArgError(n, fmt.Sprintf("invalid priority %v", v))
		}
		return p
	case lua.LString:
		p, err := event.ParsePriority(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return p
	default:
		L.TypeError(n, lua.LTNumber)
		return event.PriorityNormal
	}
}

// scriptListener delivers events to a Lua function.
type scriptListener struct {
	id        string
	host      *Host
	name      string
	eventType reflect.Type
	priority  event.Priority
	fn        *lua.LFunction
}

// Invoke implements event.Listener.
func (l *scriptListener) Invoke(e event.Event) error {
	return l.host.exec(func() error {
		return l.host.L.CallByParam(lua.P{
			Fn:      l.fn,
			NRet:    0,
			Protect: true,
		}, eventTable(l.host.L, l.name, e))
	})
}

// Priority implements event.Listener.
func (l *scriptListener) Priority() event.Priority {
	return l.priority
}

// EventType implements event.Listener.
func (l *scriptListener) EventType() reflect.Type {
	return l.eventType
}

func (l *scriptListener) String() string {
	return fmt.Sprintf("lua:%s#%s", l.name, l.id[:8])
}
