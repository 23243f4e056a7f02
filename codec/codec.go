// Package codec decodes response bodies into declared result types.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/kbukum/declhttp/errors"
)

// Codec decodes a raw body into a fresh value of the target type.
//
// The returned value's dynamic type is exactly target. Any failure is a
// DecodeFailure.
type Codec interface {
	Decode(body []byte, target reflect.Type) (any, error)
}

// JSON decodes bodies with encoding/json.
type JSON struct {
	// DisallowUnknownFields rejects objects carrying keys the target lacks.
	DisallowUnknownFields bool
}

var _ Codec = JSON{}

// Decode implements Codec.
func (c JSON) Decode(body []byte, target reflect.Type) (any, error) {
	if target == nil {
		return nil, errors.DecodeFailure(nil, fmt.Errorf("no target type"))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.DecodeFailure(target, io.ErrUnexpectedEOF)
	}

	ptr := reflect.New(target)
	dec := json.NewDecoder(bytes.NewReader(body))
	if c.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, errors.DecodeFailure(target, err)
	}
	if dec.More() {
		return nil, errors.DecodeFailure(target, fmt.Errorf("trailing data after JSON value"))
	}
	return ptr.Elem().Interface(), nil
}

// Func adapts a function to the Codec interface.
type Func func(body []byte, target reflect.Type) (any, error)

// Decode implements Codec.
func (f Func) Decode(body []byte, target reflect.Type) (any, error) {
	return f(body, target)
}
