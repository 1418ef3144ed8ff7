// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import "code.hybscloud.com/atomix"

// ScalarSubscription emits a single value known up front.
//
// The value is delivered at most once, either pushed by Request or pulled
// by Poll after SYNC fusion, never both. A 0/1 guard arbitrates between
// the two paths and Cancel.
type ScalarSubscription[T any] struct {
	actual Subscriber[T]
	value  T
	_      pad
	once   atomix.Int32
	_      pad
}

// NewScalarSubscription creates a subscription that emits value to actual.
func NewScalarSubscription[T any](actual Subscriber[T], value T) *ScalarSubscription[T] {
	return &ScalarSubscription[T]{actual: actual, value: value}
}

// Request emits the value followed by completion, once.
func (s *ScalarSubscription[T]) Request(n int64) {
	if err := ValidateRequest(n); err != nil {
		if s.once.CompareAndSwapAcqRel(0, 1) {
			s.actual.OnError(err)
			return
		}
		OnErrorDropped(err)
		return
	}
	if s.once.CompareAndSwapAcqRel(0, 1) {
		a := s.actual
		a.OnNext(s.value)
		a.OnComplete()
	}
}

// Cancel prevents the value from being emitted.
func (s *ScalarSubscription[T]) Cancel() {
	s.once.StoreRelease(1)
}

// RequestFusion accepts SYNC only.
func (s *ScalarSubscription[T]) RequestFusion(mode FusionMode) FusionMode {
	if mode&FusionSync != 0 {
		return FusionSync
	}
	return FusionNone
}

// Poll returns the value on the first call and ErrWouldBlock afterwards.
func (s *ScalarSubscription[T]) Poll() (T, error) {
	if s.once.LoadAcquire() == 0 && s.once.CompareAndSwapAcqRel(0, 1) {
		return s.value, nil
	}
	var zero T
	return zero, ErrWouldBlock
}

// IsEmpty reports whether the value was already consumed.
func (s *ScalarSubscription[T]) IsEmpty() bool {
	return s.once.LoadAcquire() != 0
}

// Size returns 1 before the value is consumed, 0 after.
func (s *ScalarSubscription[T]) Size() int {
	if s.IsEmpty() {
		return 0
	}
	return 1
}

// Clear discards the value.
func (s *ScalarSubscription[T]) Clear() {
	s.once.StoreRelease(1)
}

// Value returns the held value regardless of emission state.
func (s *ScalarSubscription[T]) Value() T {
	return s.value
}
