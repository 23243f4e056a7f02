package request

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"

	"github.com/kbukum/declhttp/descriptor"
	"github.com/kbukum/declhttp/errors"
)

// QueryTag is the struct tag read when expanding struct arguments.
const QueryTag = "query"

// Built is a request ready for the transport. It is a value object, built
// fresh for every call.
type Built struct {
	Method string
	URL    string
}

// String renders the request as "GET <url>".
func (b Built) String() string {
	return b.Method + " " + b.URL
}

// Builder builds requests against a fixed base URL.
type Builder struct {
	baseURL string
	encoder *schema.Encoder
}

// NewBuilder creates a builder. baseURL is used verbatim as prefix; a
// trailing slash is removed so paths starting with "/" join cleanly.
func NewBuilder(baseURL string) *Builder {
	enc := schema.NewEncoder()
	enc.SetAliasTag(QueryTag)
	return &Builder{
		baseURL: strings.TrimRight(baseURL, "/"),
		encoder: enc,
	}
}

// BaseURL returns the base URL requests are built against.
func (b *Builder) BaseURL() string {
	return b.baseURL
}

// Build constructs the request for one call of m with args.
func (b *Builder) Build(m descriptor.Method, args []any) (Built, error) {
	if len(args) != len(m.Bindings) {
		return Built{}, errors.ContractViolation("method %q expects %d arguments, got %d",
			m.Name, len(m.Bindings), len(args)).
			WithDetail(errors.DetailMethod, m.Name)
	}

	var sb strings.Builder
	sb.WriteString(b.baseURL)
	sb.WriteString(m.Path)

	appended := 0
	appendPair := func(key, value string) {
		if appended == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(value))
		appended++
	}

	for _, binding := range m.Bindings {
		arg := args[binding.Param]
		if isNil(arg) {
			return Built{}, errors.ContractViolation("method %q: argument %d (%s) is nil",
				m.Name, binding.Param, binding.Key).
				WithDetail(errors.DetailMethod, m.Name)
		}

		if !binding.Expand {
			appendPair(binding.Key, stringify(arg))
			continue
		}

		values := make(map[string][]string)
		if err := b.encoder.Encode(arg, values); err != nil {
			return Built{}, errors.ContractViolation("method %q: argument %d (%s) cannot be expanded into query pairs",
				m.Name, binding.Param, binding.Key).
				WithDetail(errors.DetailMethod, m.Name).
				WithCause(err)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range values[k] {
				appendPair(k, v)
			}
		}
	}

	return Built{Method: m.HTTPMethod, URL: sb.String()}, nil
}

// stringify renders an argument the way fmt prints it, honouring fmt.Stringer.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
