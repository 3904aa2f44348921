package event

import "sync/atomic"

var defaultDispatcher atomic.Pointer[SimpleDispatcher]

// Default returns the process-wide dispatcher, creating it on first use.
func Default() *SimpleDispatcher {
	if d := defaultDispatcher.Load(); d != nil {
		return d
	}
	defaultDispatcher.CompareAndSwap(nil, NewDispatcher())
	return defaultDispatcher.Load()
}

// SetDefault replaces the process-wide dispatcher. Listeners registered on
// the previous one stay there.
func SetDefault(d *SimpleDispatcher) {
	defaultDispatcher.Store(d)
}

// Post dispatches e on the default dispatcher and returns it, so a producer
// can inspect what listeners did:
//
//	if msg := event.Post(&ChatMessage{Text: text}); msg.IsCancelled() {
//	    return
//	}
func Post[E any](e E) E {
	Default().Dispatch(e)
	return e
}
