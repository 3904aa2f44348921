package event

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry stores listeners keyed by concrete event type.
// It is safe for concurrent use: the type map is a sync.Map, writers to one
// type serialize on that type's entry, and readers load an immutable slice
// without locking.
type Registry struct {
	entries sync.Map // reflect.Type -> *entry
}

// entry holds the listeners for one event type.
type entry struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	removed bool // entry was deleted from the map; guarded by mu
}

// snapshot is an immutable listener sequence. The dirty flag travels with
// the slice it describes, so a reader never sees an unsorted slice marked
// as sorted.
type snapshot struct {
	listeners []Listener
	dirty     bool // order needs a resort before the next dispatch
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends l to the entry for its event type and marks the entry dirty.
// It returns false if an equal listener is already registered for that type.
func (r *Registry) Add(l Listener) bool {
	t := l.EventType()
	for {
		v, _ := r.entries.LoadOrStore(t, &entry{})
		e := v.(*entry)

		e.mu.Lock()
		if e.removed {
			// Lost a race with the removal of the last listener; retry on a fresh entry.
			e.mu.Unlock()
			continue
		}

		current := e.load()
		for _, existing := range current {
			if sameListener(existing, l) {
				e.mu.Unlock()
				return false
			}
		}

		next := make([]Listener, len(current), len(current)+1)
		copy(next, current)
		next = append(next, l)
		e.current.Store(&snapshot{listeners: next, dirty: true})
		e.mu.Unlock()
		return true
	}
}

// Remove removes the first listener equal to l from its type's entry.
// When the entry becomes empty it is deleted together with its dirty flag.
func (r *Registry) Remove(l Listener) bool {
	t := l.EventType()
	v, ok := r.entries.Load(t)
	if !ok {
		return false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return false
	}

	current := e.load()
	idx := -1
	for i, existing := range current {
		if sameListener(existing, l) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	if len(current) == 1 {
		e.removed = true
		e.current.Store(nil)
		r.entries.CompareAndDelete(t, e)
		return true
	}

	// Removing an element keeps the remaining order intact, so the dirty
	// flag is left as it was.
	next := make([]Listener, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	e.current.Store(&snapshot{listeners: next, dirty: e.current.Load().dirty})
	return true
}

// Sorted returns the listeners for t in invocation order. If the entry is
// dirty it is stable-sorted by ascending priority first and the dirty flag
// is cleared. The returned slice must not be modified.
func (r *Registry) Sorted(t reflect.Type) []Listener {
	v, ok := r.entries.Load(t)
	if !ok {
		return nil
	}
	e := v.(*entry)

	snap := e.current.Load()
	if snap == nil || !snap.dirty {
		return snap.load()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	snap = e.current.Load()
	if snap == nil || !snap.dirty {
		return snap.load()
	}
	next := make([]Listener, len(snap.listeners))
	copy(next, snap.listeners)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Priority() < next[j].Priority()
	})
	e.current.Store(&snapshot{listeners: next})
	return next
}

// Has reports whether a non-empty entry exists for t.
func (r *Registry) Has(t reflect.Type) bool {
	v, ok := r.entries.Load(t)
	if !ok {
		return false
	}
	return len(v.(*entry).load()) > 0
}

// Count returns the number of listeners registered for t.
func (r *Registry) Count(t reflect.Type) int {
	v, ok := r.entries.Load(t)
	if !ok {
		return 0
	}
	return len(v.(*entry).load())
}

// Dirty reports whether the entry for t awaits a resort.
func (r *Registry) Dirty(t reflect.Type) bool {
	v, ok := r.entries.Load(t)
	if !ok {
		return false
	}
	snap := v.(*entry).current.Load()
	return snap != nil && snap.dirty
}

// Types returns every event type with at least one listener.
func (r *Registry) Types() []reflect.Type {
	var types []reflect.Type
	r.entries.Range(func(k, v any) bool {
		if len(v.(*entry).load()) > 0 {
			types = append(types, k.(reflect.Type))
		}
		return true
	})
	return types
}

// Clear removes every listener.
func (r *Registry) Clear() {
	r.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		e.removed = true
		e.current.Store(nil)
		r.entries.CompareAndDelete(k, e)
		e.mu.Unlock()
		return true
	})
}

func (e *entry) load() []Listener {
	return e.current.Load().load()
}

func (s *snapshot) load() []Listener {
	if s == nil {
		return nil
	}
	return s.listeners
}
