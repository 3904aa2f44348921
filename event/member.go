package event

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TagName is the struct tag key that marks listener fields.
//
//	type Chat struct {
//	    Audit event.Listener `event:"listener,priority=lowest"`
//	}
const TagName = "event"

// HandlerProvider is implemented by objects that declare listener methods.
// Handlers is called on every Register and Unregister of the object and must
// declare the same handlers each time.
//
//	func (c *Chat) Handlers(b *event.Binder) {
//	    event.On(b, event.PriorityHigh, c.OnMessage)
//	}
type HandlerProvider interface {
	Handlers(b *Binder)
}

// Binder collects the handlers declared by a HandlerProvider.
// The first invalid declaration is recorded and later ones are ignored.
type Binder struct {
	owner     any
	ownerType reflect.Type
	members   []*memberListener
	err       error
}

// On declares fn as the owner's handler for events of type E at priority p.
// fn must be a method value of an exported method (c.OnMessage) or a function
// literal; package-level functions are rejected since they are not bound to
// the owner.
func On[E any](b *Binder, p Priority, fn func(E) error) {
	if fn == nil {
		b.bind(nil, TypeOf[E](), p, nil)
		return
	}
	b.bind(fn, TypeOf[E](), p, func(e Event) error {
		return fn(e.(E))
	})
}

// OnFunc is On for handlers that cannot fail.
func OnFunc[E any](b *Binder, p Priority, fn func(E)) {
	if fn == nil {
		b.bind(nil, TypeOf[E](), p, nil)
		return
	}
	b.bind(fn, TypeOf[E](), p, func(e Event) error {
		fn(e.(E))
		return nil
	})
}

func (b *Binder) bind(fn any, eventType reflect.Type, p Priority, call func(Event) error) {
	if b.err != nil {
		return
	}
	if fn == nil {
		b.err = b.memberError("<nil>", "is a nil function", ErrInvalidMember)
		return
	}

	name, receiver, kind := funcMember(fn)
	switch {
	case kind == staticFunc:
		b.err = b.memberError(name, "is static: not bound to the registered object", ErrInvalidMember)
		return
	case kind == methodFunc && !isExported(name):
		b.err = b.memberError(name, "is not exported", ErrInvalidMember)
		return
	case kind == methodFunc && !b.ownsMethod(receiver, name):
		b.err = b.memberError(name, fmt.Sprintf("is a method of %s, not of %v", receiver, b.ownerType), ErrInvalidMember)
		return
	case eventType.Kind() == reflect.Interface:
		b.err = b.memberError(name, fmt.Sprintf("listens to interface type %v", eventType), ErrInvalidMember)
		return
	case !p.Valid():
		b.err = b.memberError(name, fmt.Sprintf("has invalid priority %d", int8(p)), ErrInvalidMember)
		return
	}

	b.members = append(b.members, &memberListener{
		key:       memberKey{owner: b.owner, name: name, index: len(b.members), eventType: eventType},
		ownerType: b.ownerType,
		priority:  p,
		call:      call,
	})
}

// ownsMethod reports whether a method value with the given receiver type
// name belongs to the owner. Promoted methods carry the receiver of the
// embedded type that declares them.
func (b *Binder) ownsMethod(receiver, name string) bool {
	if _, ok := b.ownerType.MethodByName(name); !ok {
		return false
	}
	return hasReceiver(b.ownerType.Elem(), receiver, make(map[reflect.Type]bool))
}

// hasReceiver reports whether t or a type embedded in it is named receiver.
func hasReceiver(t reflect.Type, receiver string, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	if baseTypeName(t.Name()) == receiver {
		return true
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if hasReceiver(ft, receiver, seen) {
			return true
		}
	}
	return false
}

func (b *Binder) memberError(member, reason string, err error) error {
	return &MemberError{Owner: b.ownerType, Member: member, Reason: reason, Err: err}
}

type funcKind int

const (
	staticFunc funcKind = iota
	methodFunc
	closureFunc
)

var closureName = regexp.MustCompile(`\.func\d+(\.|$)`)

// funcMember classifies a function value by its runtime symbol:
// method values carry the "-fm" suffix, function literals a funcN segment.
// Function literals in package-level variables live under glob. or init.
// and count as static. For method values the receiver type name is returned
// without pointer or type arguments.
func funcMember(fn any) (name, receiver string, kind funcKind) {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "<unknown>", "", staticFunc
	}
	full := f.Name()
	short := full
	if i := strings.LastIndex(short, "/"); i >= 0 {
		short = short[i+1:]
	}
	if i := strings.Index(short, "."); i >= 0 {
		short = short[i+1:]
	}

	if strings.HasSuffix(full, "-fm") {
		name = strings.TrimSuffix(short, "-fm")
		if i := strings.LastIndex(name, "."); i >= 0 {
			receiver = strings.TrimSuffix(strings.TrimPrefix(name[:i], "(*"), ")")
			name = name[i+1:]
		}
		return name, baseTypeName(receiver), methodFunc
	}
	if closureName.MatchString(short) {
		if strings.HasPrefix(short, "glob.") || strings.HasPrefix(short, "init.") {
			return short, "", staticFunc
		}
		return short, "", closureFunc
	}
	return short, "", staticFunc
}

// baseTypeName strips type arguments: "Box[int]" and "Box[...]" become "Box".
func baseTypeName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// memberKey identifies a member listener: the same declaration of the same
// object always yields an equal key. index is the declaration's position
// among the owner's handlers, or the field index for listener fields, so
// handlers sharing a name still get distinct keys.
type memberKey struct {
	owner     any
	name      string
	index     int
	eventType reflect.Type
}

// memberListener adapts a declared handler or a tagged listener field.
type memberListener struct {
	key       memberKey
	ownerType reflect.Type
	priority  Priority
	call      func(Event) error
}

// Invoke implements Listener.
func (m *memberListener) Invoke(e Event) error {
	if err := m.call(e); err != nil {
		return &InvocationError{EventType: m.key.eventType, Listener: m.String(), Err: err}
	}
	return nil
}

// Priority implements Listener.
func (m *memberListener) Priority() Priority {
	return m.priority
}

// EventType implements Listener.
func (m *memberListener) EventType() reflect.Type {
	return m.key.eventType
}

func (m *memberListener) String() string {
	owner := m.ownerType.String()
	if m.ownerType.Kind() == reflect.Pointer {
		owner = "(" + owner + ")"
	}
	return owner + "." + m.key.name
}

var listenerType = reflect.TypeFor[Listener]()

// discover returns the member listeners declared by obj: handlers from
// HandlerProvider first, then tagged fields in declaration order.
// It stops at the first invalid member and never mutates obj.
func discover(obj any) ([]*memberListener, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil object", ErrInvalidArgument)
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %T is not a pointer", ErrInvalidArgument, obj)
	}
	if v.IsNil() {
		return nil, fmt.Errorf("%w: nil %T", ErrInvalidArgument, obj)
	}

	var members []*memberListener
	if hp, ok := obj.(HandlerProvider); ok {
		b := &Binder{owner: obj, ownerType: v.Type()}
		hp.Handlers(b)
		if b.err != nil {
			return nil, b.err
		}
		members = append(members, b.members...)
	}

	if v.Elem().Kind() == reflect.Struct {
		fields, err := scanFields(obj, v.Type(), v.Elem())
		if err != nil {
			return nil, err
		}
		members = append(members, fields...)
	}
	return members, nil
}

func scanFields(owner any, ownerType reflect.Type, sv reflect.Value) ([]*memberListener, error) {
	st := sv.Type()
	var members []*memberListener

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		fail := func(reason string, err error) error {
			return &MemberError{Owner: ownerType, Member: f.Name, Reason: reason, Err: err}
		}

		tagPriority, hasPriority, err := parseTag(tag)
		if err != nil {
			return nil, fail(err.Error(), ErrInvalidMember)
		}
		if !f.IsExported() {
			return nil, fail("is not exported", ErrInvalidMember)
		}
		if !f.Type.Implements(listenerType) {
			return nil, fail(fmt.Sprintf("has type %v which does not implement event.Listener", f.Type), ErrInvalidMember)
		}

		fv := sv.Field(i)
		if isNilValue(fv) {
			return nil, fail("holds no listener", ErrDiscovery)
		}
		held := fv.Interface().(Listener)
		eventType := held.EventType()
		if eventType == nil {
			return nil, fail("holds a listener without an event type", ErrDiscovery)
		}
		if eventType.Kind() == reflect.Interface {
			return nil, fail(fmt.Sprintf("listens to interface type %v", eventType), ErrInvalidMember)
		}

		p := held.Priority()
		if hasPriority {
			p = tagPriority
		}
		members = append(members, &memberListener{
			key:       memberKey{owner: owner, name: f.Name, index: i, eventType: eventType},
			ownerType: ownerType,
			priority:  p,
			call:      held.Invoke,
		})
	}
	return members, nil
}

// parseTag parses `listener` or `listener,priority=<name>`.
func parseTag(tag string) (Priority, bool, error) {
	parts := strings.Split(tag, ",")
	if strings.TrimSpace(parts[0]) != "listener" {
		return PriorityNormal, false, fmt.Errorf("has unknown tag %q", tag)
	}

	var (
		p   = PriorityNormal
		set bool
	)
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "priority":
			parsed, err := ParsePriority(value)
			if err != nil || value == "" {
				return PriorityNormal, false, fmt.Errorf("has unknown priority %q", value)
			}
			p, set = parsed, true
		case "":
		default:
			return PriorityNormal, false, fmt.Errorf("has unknown tag option %q", key)
		}
	}
	return p, set, nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
