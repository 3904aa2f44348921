// Package dispatch runs event listeners with failure isolation.
//
// An Executor invokes one handler synchronously in the caller's goroutine,
// recovers panics and records how long the handler ran. The outcome is a
// Result which the caller inspects instead of unwinding:
//
//	exec := dispatch.NewExecutor(dispatch.WithStackCapture(true))
//	result := exec.Execute(event, handler)
//	if !result.IsSuccess() {
//	    // log result.Error or result.PanicValue and move on
//	}
//
// Nothing in this package starts goroutines or blocks on I/O.
package dispatch
