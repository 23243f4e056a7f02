package descriptor

import (
	"fmt"
	"reflect"
)

// Kind classifies the declared return shape of a method.
type Kind int

const (
	// KindUnknown is the zero Kind; it never classifies a valid method.
	KindUnknown Kind = iota
	// KindValue executes synchronously and returns the decoded value.
	KindValue
	// KindCallback returns a callback-driven call handle.
	KindCallback
	// KindStream returns a cold, single-value stream.
	KindStream
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindCallback:
		return "callback"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// ResultType describes a method's declared return type: its
// classification and the payload type the body is decoded into.
type ResultType struct {
	Kind    Kind
	Payload reflect.Type
}

// Value declares a method that returns T directly.
func Value[T any]() ResultType {
	return ResultType{Kind: KindValue, Payload: reflect.TypeFor[T]()}
}

// Callback declares a method that returns a call handle delivering T.
func Callback[T any]() ResultType {
	return ResultType{Kind: KindCallback, Payload: reflect.TypeFor[T]()}
}

// Stream declares a method that returns a cold stream of T.
func Stream[T any]() ResultType {
	return ResultType{Kind: KindStream, Payload: reflect.TypeFor[T]()}
}

// Valid reports whether exactly one classification applies and a payload is known.
func (r ResultType) Valid() bool {
	switch r.Kind {
	case KindValue, KindCallback, KindStream:
		return r.Payload != nil
	default:
		return false
	}
}

// String renders the result type, e.g. "callback[main.UserList]".
func (r ResultType) String() string {
	if r.Payload == nil {
		return fmt.Sprintf("%s[<nil>]", r.Kind)
	}
	return fmt.Sprintf("%s[%s]", r.Kind, r.Payload)
}
