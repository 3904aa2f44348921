package luabridge

import (
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventbus/event"
)

// maxDepth bounds nesting in converted values. Deeper values become nil.
const maxDepth = 32

// eventTable converts e into the table handed to script listeners.
func eventTable(L *lua.LState, name string, e event.Event) *lua.LTable {
	c := newConverter(L)
	t := L.NewTable()

	rv := reflect.ValueOf(e)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		c.enter(rv)
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		c.setFields(t, rv, 0)
	} else if rv.IsValid() && rv.Kind() != reflect.Pointer {
		t.RawSetString("value", c.toLua(rv, 0))
	}

	if cf, ok := e.(event.Cancellable); ok {
		t.RawSetString("cancel", L.NewFunction(func(L *lua.LState) int {
			cf.SetCancelled(true)
			return 0
		}))
		t.RawSetString("cancelled", L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LBool(cf.IsCancelled()))
			return 1
		}))
	}

	t.RawSetString("type", lua.LString(name))
	return t
}

// visit identifies a reference on the current conversion path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// converter turns Go values into Lua values. References already on the
// path from the root convert to nil, so cyclic values terminate.
type converter struct {
	L       *lua.LState
	visited map[visit]bool
}

func newConverter(L *lua.LState) *converter {
	return &converter{L: L, visited: make(map[visit]bool)}
}

// enter marks the reference held by rv as being converted. It returns false
// if it already is.
func (c *converter) enter(rv reflect.Value) bool {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if v.ptr == 0 {
		return true
	}
	if c.visited[v] {
		return false
	}
	c.visited[v] = true
	return true
}

func (c *converter) leave(rv reflect.Value) {
	delete(c.visited, visit{ptr: rv.Pointer(), typ: rv.Type()})
}

// setFields copies the exported fields of struct rv into t. Embedded structs
// are flattened the way encoding/json flattens them.
func (c *converter) setFields(t *lua.LTable, rv reflect.Value, depth int) {
	if depth > maxDepth {
		return
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)

		if field.Anonymous {
			ft := fv
			if ft.Kind() == reflect.Pointer {
				if ft.IsNil() || !c.enter(ft) {
					continue
				}
				if ft.Elem().Kind() == reflect.Struct {
					c.setFields(t, ft.Elem(), depth+1)
					c.leave(ft)
					continue
				}
				c.leave(ft)
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				c.setFields(t, ft, depth+1)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		t.RawSetString(name, c.toLua(fv, depth+1))
	}
}

// toLua converts a Go value to a Lua value. Values with no Lua counterpart
// become userdata.
func (c *converter) toLua(rv reflect.Value, depth int) lua.LValue {
	if !rv.IsValid() || depth > maxDepth {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())

	case reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return c.toLua(rv.Elem(), depth)

	case reflect.Pointer:
		if rv.IsNil() || !c.enter(rv) {
			return lua.LNil
		}
		defer c.leave(rv)
		return c.toLua(rv.Elem(), depth+1)

	case reflect.Slice:
		if rv.IsNil() {
			return lua.LNil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return lua.LString(rv.Bytes())
		}
		if !c.enter(rv) {
			return lua.LNil
		}
		defer c.leave(rv)
		return c.sequence(rv, depth)

	case reflect.Array:
		return c.sequence(rv, depth)

	case reflect.Map:
		if rv.IsNil() || !c.enter(rv) {
			return lua.LNil
		}
		defer c.leave(rv)
		t := c.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			key := c.toLua(iter.Key(), depth+1)
			if key == lua.LNil {
				continue
			}
			t.RawSet(key, c.toLua(iter.Value(), depth+1))
		}
		return t

	case reflect.Struct:
		t := c.L.NewTable()
		c.setFields(t, rv, depth)
		return t

	default:
		ud := c.L.NewUserData()
		if rv.CanInterface() {
			ud.Value = rv.Interface()
		}
		return ud
	}
}

func (c *converter) sequence(rv reflect.Value, depth int) *lua.LTable {
	t := c.L.NewTable()
	for i := 0; i < rv.Len(); i++ {
		t.RawSetInt(i+1, c.toLua(rv.Index(i), depth+1))
	}
	return t
}
