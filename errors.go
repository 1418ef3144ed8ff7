// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Poll: no value is available yet (ASYNC fusion) or the source is
// exhausted (SYNC fusion).
// For Sink.Emit: the queue is full (backpressure).
//
// ErrWouldBlock is a control flow signal, not a failure. It is an alias for
// [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrInvalidDemand is reported to a subscriber that called Request with a
// non-positive count. The delivered error wraps it together with the count.
var ErrInvalidDemand = errors.New("flow: request count must be > 0")

// ErrDuplicateTerminal is passed to the dropped-error hook when a producer
// signals completion to an operator that already terminated.
var ErrDuplicateTerminal = errors.New("flow: terminal signal after termination")

// ErrAlreadySubscribed is delivered to every subscriber of a unicast
// publisher after the first one.
var ErrAlreadySubscribed = errors.New("flow: publisher allows only a single subscriber")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// OperatorError reports a failure raised by a user callback inside an
// operator, tagged with the element that was being processed.
//
// Example:
//
//	var oe *flow.OperatorError
//	if errors.As(err, &oe) {
//	    log.Printf("key extraction failed on %v: %v", oe.Value, oe.Err)
//	}
type OperatorError struct {
	// Value is the element the callback was invoked with.
	Value any
	// Err is the callback failure.
	Err error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("flow: operator failed on %v: %v", e.Value, e.Err)
}

func (e *OperatorError) Unwrap() error {
	return e.Err
}

// NewOperatorError tags err with the element that caused it.
// An err that already is an *OperatorError is returned unchanged.
func NewOperatorError(value any, err error) error {
	var oe *OperatorError
	if errors.As(err, &oe) {
		return err
	}
	return &OperatorError{Value: value, Err: err}
}

// PanicError wraps a value recovered from a panicking user callback.
type PanicError struct {
	Recovered any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("flow: callback panicked: %v", e.Recovered)
}

func invalidDemand(n int64) error {
	return fmt.Errorf("%w (got %d)", ErrInvalidDemand, n)
}

// protect runs fn, converting a panic into a *PanicError.
func protect[R any](fn func() (R, error)) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Recovered: p}
		}
	}()
	return fn()
}
