package descriptor

import (
	"net/http"
	"slices"
)

// Binding maps one source parameter to a query key.
type Binding struct {
	// Param is the zero-based index of the argument in the method call.
	Param int `validate:"gte=0"`
	// Key is the query key the stringified argument is bound to.
	// For expanded bindings it is informational only.
	Key string `validate:"required"`
	// Expand encodes a struct argument as several query pairs, one per field.
	Expand bool
}

// Method is the immutable descriptor of one declared API method.
type Method struct {
	Name       string     `validate:"required"`
	HTTPMethod string     `validate:"required,oneof=GET"`
	Path       string     `validate:"required,startswith=/"`
	Bindings   []Binding  `validate:"dive"`
	Result     ResultType `validate:"-"`
}

// BindingOption declares a binding; Get assigns parameter indices in order.
type BindingOption func(index int) Binding

// Field binds the next parameter to key.
func Field(key string) BindingOption {
	return func(index int) Binding {
		return Binding{Param: index, Key: key}
	}
}

// Fields binds consecutive parameters to keys, in order.
func Fields(keys ...string) []BindingOption {
	opts := make([]BindingOption, len(keys))
	for i, k := range keys {
		opts[i] = Field(k)
	}
	return opts
}

// Query binds the next parameter as a struct whose fields become query
// pairs. name only identifies the parameter in error messages.
func Query(name string) BindingOption {
	return func(index int) Binding {
		return Binding{Param: index, Key: name, Expand: true}
	}
}

// Get declares a GET method. Bindings receive parameter indices in the
// order they are given.
func Get(name, path string, result ResultType, bindings ...BindingOption) Method {
	m := Method{
		Name:       name,
		HTTPMethod: http.MethodGet,
		Path:       path,
		Result:     result,
		Bindings:   make([]Binding, len(bindings)),
	}
	for i, b := range bindings {
		m.Bindings[i] = b(i)
	}
	return m
}

// Arity returns the number of arguments a call must supply.
func (m Method) Arity() int {
	return len(m.Bindings)
}

// clone returns a copy that shares no slice with m.
func (m Method) clone() Method {
	m.Bindings = slices.Clone(m.Bindings)
	return m
}
