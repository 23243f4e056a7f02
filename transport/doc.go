// Package transport executes built requests and returns raw response
// bodies.
//
// HTTP is the production implementation. It wraps net/http with a request
// timeout, default headers and a User-Agent, and optionally with retry
// (exponential backoff), a token-bucket rate limit and a circuit breaker:
//
//	t, err := transport.NewHTTP(transport.Config{
//	    Timeout: 10 * time.Second,
//	    Retry:   &transport.RetryConfig{MaxAttempts: 3},
//	})
//
// Failures are reported as TRANSPORT_FAILURE errors whose reason detail
// distinguishes timeouts, connection errors and the HTTP status classes.
package transport
