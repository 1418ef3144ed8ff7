// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import "code.hybscloud.com/atomix"

// Just emits v then completes.
func Just[T any](v T) Publisher[T] {
	return justPublisher[T]{value: v}
}

type justPublisher[T any] struct {
	value T
}

func (p justPublisher[T]) Subscribe(s Subscriber[T]) {
	s.OnSubscribe(NewScalarSubscription(s, p.value))
}

func (justPublisher[T]) Fuseable() {}

// Empty completes without emitting.
func Empty[T any]() Publisher[T] {
	return emptyPublisher[T]{}
}

type emptyPublisher[T any] struct{}

func (emptyPublisher[T]) Subscribe(s Subscriber[T]) {
	s.OnSubscribe(emptySubscription[T]{})
	s.OnComplete()
}

func (emptyPublisher[T]) Fuseable() {}

// Fail signals err without emitting.
func Fail[T any](err error) Publisher[T] {
	return failPublisher[T]{err: err}
}

type failPublisher[T any] struct {
	err error
}

func (p failPublisher[T]) Subscribe(s Subscriber[T]) {
	s.OnSubscribe(emptySubscription[T]{})
	s.OnError(p.err)
}

func (failPublisher[T]) Fuseable() {}

// emptySubscription is handed to subscribers that terminate immediately.
type emptySubscription[T any] struct{}

func (emptySubscription[T]) Request(int64) {}
func (emptySubscription[T]) Cancel()       {}

func (emptySubscription[T]) RequestFusion(mode FusionMode) FusionMode {
	return mode & FusionAsync
}

func (emptySubscription[T]) Poll() (T, error) {
	var zero T
	return zero, ErrWouldBlock
}

func (emptySubscription[T]) IsEmpty() bool { return true }
func (emptySubscription[T]) Size() int     { return 0 }
func (emptySubscription[T]) Clear()        {}

// FromSlice emits items in order, honoring demand.
//
// The subscription supports SYNC fusion, and offers elements through
// TryOnNext when the subscriber is a ConditionalSubscriber, so rejected
// elements do not consume demand.
func FromSlice[T any](items ...T) Publisher[T] {
	return slicePublisher[T]{items: items}
}

type slicePublisher[T any] struct {
	items []T
}

func (p slicePublisher[T]) Subscribe(s Subscriber[T]) {
	if len(p.items) == 0 {
		emptyPublisher[T]{}.Subscribe(s)
		return
	}
	sub := &sliceSubscription[T]{actual: s, items: p.items}
	if c, ok := s.(ConditionalSubscriber[T]); ok {
		sub.cond = c
	}
	s.OnSubscribe(sub)
}

func (slicePublisher[T]) Fuseable() {}

type sliceSubscription[T any] struct {
	actual Subscriber[T]
	cond   ConditionalSubscriber[T]
	items  []T
	index  int // owned by whoever holds the emission loop, or the poller

	_         pad
	requested atomix.Int64
	_         padShort
	cancelled atomix.Int32
	_         padShort
	badDemand atomix.Int64
	_         padShort
}

func (s *sliceSubscription[T]) Request(n int64) {
	if n <= 0 {
		// Stored as n-1 so that zero keeps meaning "none"; reported by
		// whichever goroutine owns emission.
		s.badDemand.CompareAndSwapAcqRel(0, n-1)
		n = 1
	}
	if AddDemand(&s.requested, n) != 0 {
		return
	}
	if n == Unbounded {
		s.fastPath()
		return
	}
	s.slowPath(n)
}

// checkBadDemand delivers a recorded invalid request as an error.
func (s *sliceSubscription[T]) checkBadDemand() bool {
	bad := s.badDemand.LoadAcquire()
	if bad == 0 {
		return false
	}
	s.cancelled.StoreRelease(1)
	s.actual.OnError(invalidDemand(bad + 1))
	return true
}

func (s *sliceSubscription[T]) fastPath() {
	for s.index < len(s.items) {
		if s.cancelled.LoadAcquire() != 0 || s.checkBadDemand() {
			return
		}
		v := s.items[s.index]
		s.index++
		if s.cond != nil {
			s.cond.TryOnNext(v)
		} else {
			s.actual.OnNext(v)
		}
	}
	if s.cancelled.LoadAcquire() != 0 || s.checkBadDemand() {
		return
	}
	s.cancelled.StoreRelease(1)
	s.actual.OnComplete()
}

func (s *sliceSubscription[T]) slowPath(n int64) {
	var e int64
	for {
		for e != n && s.index < len(s.items) {
			if s.cancelled.LoadAcquire() != 0 || s.checkBadDemand() {
				return
			}
			v := s.items[s.index]
			s.index++
			if s.cond != nil {
				if s.cond.TryOnNext(v) {
					e++
				}
			} else {
				s.actual.OnNext(v)
				e++
			}
		}
		if s.cancelled.LoadAcquire() != 0 || s.checkBadDemand() {
			return
		}
		if s.index == len(s.items) {
			s.cancelled.StoreRelease(1)
			s.actual.OnComplete()
			return
		}
		n = s.requested.LoadAcquire()
		if n == e {
			n = ProduceDemand(&s.requested, e)
			if n == 0 {
				return
			}
			e = 0
		}
	}
}

func (s *sliceSubscription[T]) Cancel() {
	s.cancelled.StoreRelease(1)
}

func (s *sliceSubscription[T]) RequestFusion(mode FusionMode) FusionMode {
	return mode & FusionSync
}

func (s *sliceSubscription[T]) Poll() (T, error) {
	if s.index < len(s.items) {
		v := s.items[s.index]
		s.index++
		return v, nil
	}
	var zero T
	return zero, ErrWouldBlock
}

func (s *sliceSubscription[T]) IsEmpty() bool {
	return s.index >= len(s.items)
}

func (s *sliceSubscription[T]) Size() int {
	return len(s.items) - s.index
}

func (s *sliceSubscription[T]) Clear() {
	s.index = len(s.items)
}
