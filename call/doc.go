// Package call implements the single-completion, cancellable call handle
// behind callback-driven methods.
//
// A Call moves through
//
//	Idle -> InFlight -> Succeeded | Failed | Cancelled
//
// Each transition is a compare-and-swap on one atomic state word, so at
// most one terminal state is ever recorded and at most one of the success
// or failure callbacks fires. Cancel wins over a response that arrives
// later; a response that won first makes Cancel a no-op.
//
//	c, _ := proxy.Call[UserList](ctx, client, "UsersAsync", "octocat", "stars")
//	_ = c.Enqueue(call.Funcs(
//	    func(users UserList) { ... },
//	    func(err error) { ... },
//	))
//	defer c.Cancel()
package call
