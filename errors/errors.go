package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
)

// Detail keys used by the constructors in this package.
const (
	DetailReason = "reason"
	DetailStatus = "status"
	DetailTarget = "target"
	DetailMethod = "method"
)

// AppError is the unified declhttp error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Reason returns the transport failure reason, or "" for other codes.
func (e *AppError) Reason() Reason {
	r, _ := e.Details[DetailReason].(Reason)
	return r
}

// Status returns the HTTP status attached to a transport failure, or 0.
func (e *AppError) Status() int {
	s, _ := e.Details[DetailStatus].(int)
	return s
}

// ContractViolation creates an error for a caller-side usage bug.
func ContractViolation(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeContractViolation,
		Message: fmt.Sprintf(format, args...),
	}
}

// TransportFailure creates an error for a failed request execution.
func TransportFailure(reason Reason, cause error) *AppError {
	msg := string(reason)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", reason, cause)
	}
	return &AppError{
		Code:      ErrCodeTransportFailure,
		Message:   msg,
		Retryable: IsRetryableReason(reason),
		Details:   map[string]any{DetailReason: reason},
		Cause:     cause,
	}
}

// StatusFailure creates a transport failure for a non-success HTTP status.
// The response body, if any, is kept as the error's cause message.
func StatusFailure(reason Reason, status int, body []byte) *AppError {
	e := &AppError{
		Code:      ErrCodeTransportFailure,
		Message:   fmt.Sprintf("%s (HTTP %d)", reason, status),
		Retryable: IsRetryableReason(reason),
		Details:   map[string]any{DetailReason: reason, DetailStatus: status},
	}
	if len(body) > 0 {
		e.Details["body"] = string(body)
	}
	return e
}

// DecodeFailure creates an error for a body that could not be decoded into target.
func DecodeFailure(target reflect.Type, cause error) *AppError {
	name := "<nil>"
	if target != nil {
		name = target.String()
	}
	return &AppError{
		Code:    ErrCodeDecodeFailure,
		Message: fmt.Sprintf("cannot decode response into %s", name),
		Details: map[string]any{DetailTarget: name},
		Cause:   cause,
	}
}

// Cancelled creates the error reported to blocking waiters of a cancelled call.
func Cancelled() *AppError {
	return &AppError{
		Code:    ErrCodeCancelled,
		Message: "call cancelled",
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of an AppError in the chain, or "" when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsContractViolation reports whether err is a contract violation.
func IsContractViolation(err error) bool { return CodeOf(err) == ErrCodeContractViolation }

// IsTransportFailure reports whether err is a transport failure.
func IsTransportFailure(err error) bool { return CodeOf(err) == ErrCodeTransportFailure }

// IsDecodeFailure reports whether err is a decode failure.
func IsDecodeFailure(err error) bool { return CodeOf(err) == ErrCodeDecodeFailure }

// IsCancelled reports whether err reports a cancelled call.
func IsCancelled(err error) bool { return CodeOf(err) == ErrCodeCancelled }

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
