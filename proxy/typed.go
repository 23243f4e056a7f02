package proxy

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/declhttp/call"
	"github.com/kbukum/declhttp/descriptor"
	"github.com/kbukum/declhttp/errors"
	"github.com/kbukum/declhttp/stream"
)

// Value invokes a value method and returns its decoded result.
func Value[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	var zero T
	if err := c.expect(method, descriptor.KindValue, reflect.TypeFor[T]()); err != nil {
		return zero, err
	}
	v, err := c.Invoke(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		target := reflect.TypeFor[T]()
		return zero, errors.DecodeFailure(target, fmt.Errorf("delivered %T, want %s", v, target))
	}
	return typed, nil
}

// Call invokes a callback method and returns its unstarted handle.
func Call[T any](ctx context.Context, c *Client, method string, args ...any) (*call.Call[T], error) {
	if err := c.expect(method, descriptor.KindCallback, reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	v, err := c.Invoke(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	h, ok := v.(*call.Call[any])
	if !ok {
		return nil, errors.ContractViolation("method %q returned %T, want a call handle", method, v)
	}
	return call.Retype[T](h), nil
}

// Stream invokes a stream method and returns its cold stream.
func Stream[T any](ctx context.Context, c *Client, method string, args ...any) (*stream.Stream[T], error) {
	if err := c.expect(method, descriptor.KindStream, reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	v, err := c.Invoke(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*stream.Stream[any])
	if !ok {
		return nil, errors.ContractViolation("method %q returned %T, want a stream", method, v)
	}
	return stream.Retype[T](s), nil
}
