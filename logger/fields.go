package logger

import "time"

// Standard field key constants for structured logging.
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldCallID    = "call_id"
	FieldStrategy  = "strategy"
	FieldState     = "state"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("done", logger.Fields("method", "Users", "url", u))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for a method call that failed.
func ErrorFields(method string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod: method,
		FieldError:  err.Error(),
	}
}

// DurationFields creates fields for a timed method call.
func DurationFields(method string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldMethod:   method,
		FieldDuration: d.Milliseconds(),
	}
}
