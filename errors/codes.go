package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeContractViolation indicates a descriptor or argument mismatch.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	// ErrCodeTransportFailure indicates a network or non-success status error.
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	// ErrCodeDecodeFailure indicates the body could not be decoded.
	ErrCodeDecodeFailure ErrorCode = "DECODE_FAILURE"
	// ErrCodeCancelled indicates the call was cancelled before completion.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Reason refines a transport failure.
type Reason string

// Transport failure reasons, stored under the "reason" detail key.
const (
	ReasonTimeout     Reason = "timeout"
	ReasonConnection  Reason = "connection"
	ReasonAuth        Reason = "auth"
	ReasonNotFound    Reason = "not_found"
	ReasonRateLimit   Reason = "rate_limit"
	ReasonClient      Reason = "client"
	ReasonServer      Reason = "server"
	ReasonCircuitOpen Reason = "circuit_open"
)

var retryableReasons = map[Reason]bool{
	ReasonTimeout:    true,
	ReasonConnection: true,
	ReasonRateLimit:  true,
	ReasonServer:     true,
}

// IsRetryableReason reports whether a transport failure with the given
// reason may succeed when repeated.
func IsRetryableReason(r Reason) bool {
	return retryableReasons[r]
}
