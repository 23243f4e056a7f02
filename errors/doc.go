// Package errors provides the error taxonomy shared by every declhttp
// package.
//
// Three failure classes exist:
//
//   - CONTRACT_VIOLATION: a caller bug (unknown method, arity mismatch,
//     unclassifiable result type). Raised synchronously and never retried.
//   - TRANSPORT_FAILURE: connection errors and non-success HTTP statuses.
//   - DECODE_FAILURE: a body that cannot be decoded into the declared type.
//
// Transport and decode failures travel through the channel of the active
// execution strategy: returned from a synchronous call, delivered to a
// failure callback, or terminating a stream.
package errors
