// Package stream implements cold, single-element streams for lazy-stream
// methods.
//
// A Stream performs no I/O until it is subscribed. Every subscription
// creates a fresh call, so subscribing twice issues two requests and an
// unsubscribed stream issues none. On success an observer receives one
// OnNext followed by OnComplete; on failure it receives OnError.
//
//	s, _ := proxy.Stream[UserList](ctx, client, "UsersStream", "octocat", "stars")
//	users, err := s.First(ctx)
package stream
