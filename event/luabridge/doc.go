// Package luabridge lets Lua scripts listen to dispatcher events.
//
// A Host owns a sandboxed gopher-lua state bound to one dispatcher. Go code
// exposes event types under script-visible names; scripts subscribe through
// the global events table:
//
//	h := luabridge.NewHost(d)
//	defer h.Close()
//	luabridge.Expose[*ChatMessage](h, "chat")
//
//	err := h.DoString(`
//	    events.on("chat", events.priorities.lowest, function(e)
//	        if e.text:find("spam") then e.cancel() end
//	    end)
//	`)
//
// # Script API
//
//   - events.on(name, [priority], fn) registers fn and returns a listener id.
//     priority is a number from events.priorities or a name such as "high".
//   - events.off(id) removes a listener and reports whether it existed.
//   - events.has(name) reports whether anything listens to the event.
//   - events.priorities maps priority names to their values.
//
// Listeners receive a table holding the event's exported fields (json tag
// names win over field names) and its exposed name under "type". Cancellable
// events also carry cancel() and cancelled(), which act on the Go value.
//
// # Concurrency
//
// A Lua state is single-threaded. The Host serializes every script call, so
// events may be dispatched from any goroutine, but a slow script delays every
// other dispatch that reaches the same Host.
package luabridge
