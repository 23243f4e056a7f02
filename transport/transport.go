package transport

import (
	"context"

	"github.com/kbukum/declhttp/request"
)

// Transport executes requests.
type Transport interface {
	// Execute performs req on the calling goroutine and returns the body of a
	// successful response.
	Execute(ctx context.Context, req request.Built) ([]byte, error)

	// Enqueue performs req asynchronously and reports the outcome to done,
	// at most once. done is never invoked after the returned handle has been
	// cancelled.
	Enqueue(ctx context.Context, req request.Built, done func(body []byte, err error)) Handle
}

// Handle aborts an enqueued request. Cancel is idempotent.
type Handle interface {
	Cancel()
}
