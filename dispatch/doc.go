// Package dispatch turns a built request into the result shape a method
// declares.
//
// Value methods execute on the caller's goroutine and return the decoded
// value. Callback methods return an unstarted *call.Call[any] and stream
// methods an unsubscribed *stream.Stream[any]; no I/O happens until the
// caller enqueues or subscribes.
package dispatch
