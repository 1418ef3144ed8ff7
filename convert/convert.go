// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package convert bridges flow Publishers and the standard Go iteration
// forms: channels, iterators, slices and value-returning functions.
//
// ToPublisher wraps a source as a Publisher that honors demand.
// FromPublisher subscribes to a Publisher and exposes it in the requested
// Kind. Both return ErrUnsupported for forms they cannot bridge.
//
//	p, err := convert.ToPublisher[int](ch)
//	if err != nil {
//	    return err
//	}
//	for v, err := range convert.Seq2(ctx, flow.Distinct(p, identity)) {
//	    ...
//	}
package convert

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"code.hybscloud.com/flow"
)

// ErrUnsupported reports a source or target form with no bridge.
var ErrUnsupported = errors.New("convert: unsupported conversion")

// Kind names a bridged form.
type Kind uint8

const (
	// KindChan is <-chan T. ToPublisher also accepts chan T.
	KindChan Kind = iota + 1

	// KindSeq is iter.Seq[T].
	KindSeq

	// KindSeq2 is iter.Seq2[T, error]: values paired with a nil error,
	// then one zero value paired with the terminal error, if any.
	KindSeq2

	// KindSlice is []T.
	KindSlice

	// KindFunc is func() (T, error), a single deferred value.
	// Accepted by ToPublisher only.
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindChan:
		return "chan"
	case KindSeq:
		return "seq"
	case KindSeq2:
		return "seq2"
	case KindSlice:
		return "slice"
	case KindFunc:
		return "func"
	default:
		return "invalid"
	}
}

// Supported returns every Kind ToPublisher accepts. FromPublisher accepts
// all of them except KindFunc.
func Supported() []Kind {
	return []Kind{KindChan, KindSeq, KindSeq2, KindSlice, KindFunc}
}

// ToPublisher wraps source as a Publisher[T].
//
// source may be a flow.Publisher[T] (returned as is), []T, chan T,
// <-chan T, iter.Seq[T], iter.Seq2[T, error] or func() (T, error).
// Anything else returns an error wrapping ErrUnsupported.
func ToPublisher[T any](source any) (flow.Publisher[T], error) {
	switch s := source.(type) {
	case flow.Publisher[T]:
		return s, nil
	case []T:
		return flow.FromSlice(s...), nil
	case <-chan T:
		return fromChan(s), nil
	case chan T:
		return fromChan(s), nil
	case iter.Seq[T]:
		return fromSeq(s), nil
	case func(yield func(T) bool):
		return fromSeq(s), nil
	case iter.Seq2[T, error]:
		return fromSeq2(s), nil
	case func(yield func(T, error) bool):
		return fromSeq2(s), nil
	case func() (T, error):
		return fromFunc(s), nil
	}
	var zero T
	return nil, fmt.Errorf("%w: %T to flow.Publisher[%T]", ErrUnsupported, source, zero)
}

// FromPublisher subscribes to p and returns it as target: a <-chan T, an
// iter.Seq[T], an iter.Seq2[T, error] or a []T.
//
// KindSlice blocks until p terminates or ctx is done and returns p's
// error. KindChan subscribes immediately; KindSeq and KindSeq2 subscribe
// once per range loop. All of them cancel p when ctx is done.
func FromPublisher[T any](ctx context.Context, p flow.Publisher[T], target Kind) (any, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil publisher", ErrUnsupported)
	}
	switch target {
	case KindChan:
		return Chan(ctx, p), nil
	case KindSeq:
		return Seq(ctx, p), nil
	case KindSeq2:
		return Seq2(ctx, p), nil
	case KindSlice:
		return Slice(ctx, p)
	}
	return nil, fmt.Errorf("%w: flow.Publisher to %v", ErrUnsupported, target)
}
