// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package convert

import (
	"iter"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/flow"
)

// chanPublisher emits the values received from a channel.
//
// Receiving blocks, so each subscription owns one goroutine that receives
// only while demand is outstanding. The goroutine starts on the first
// Request and exits on close of the channel, Cancel or invalid demand.
type chanPublisher[T any] struct {
	src <-chan T
}

func fromChan[T any](src <-chan T) flow.Publisher[T] {
	return chanPublisher[T]{src: src}
}

func (p chanPublisher[T]) Subscribe(s flow.Subscriber[T]) {
	sub := &chanSubscription[T]{
		actual: s,
		src:    p.src,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
	s.OnSubscribe(sub)
}

type chanSubscription[T any] struct {
	actual flow.Subscriber[T]
	src    <-chan T
	wake   chan struct{}
	quit   chan struct{}

	_         pad
	requested atomix.Int64
	_         padShort
	badDemand atomix.Int64
	_         padShort
	started   atomix.Int32
	_         padShort
	cancelled atomix.Int32
	_         padShort
}

func (s *chanSubscription[T]) Request(n int64) {
	if n <= 0 {
		s.badDemand.CompareAndSwapAcqRel(0, n-1)
	} else {
		flow.AddDemand(&s.requested, n)
	}
	if s.started.CompareAndSwapAcqRel(0, 1) {
		go s.loop()
		return
	}
	s.signal()
}

func (s *chanSubscription[T]) Cancel() {
	if s.cancelled.CompareAndSwapAcqRel(0, 1) {
		close(s.quit)
	}
}

func (s *chanSubscription[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *chanSubscription[T]) loop() {
	for {
		if s.cancelled.LoadAcquire() != 0 {
			return
		}
		if bad := s.badDemand.LoadAcquire(); bad != 0 {
			s.cancelled.StoreRelease(1)
			s.actual.OnError(flow.ValidateRequest(bad + 1))
			return
		}
		if s.requested.LoadAcquire() == 0 {
			select {
			case <-s.wake:
			case <-s.quit:
				return
			}
			continue
		}
		select {
		case v, ok := <-s.src:
			if !ok {
				s.cancelled.StoreRelease(1)
				s.actual.OnComplete()
				return
			}
			s.actual.OnNext(v)
			flow.ProduceDemand(&s.requested, 1)
		case <-s.wake:
		case <-s.quit:
			return
		}
	}
}

// seqPublisher pulls values from an iterator as demand arrives.
//
// The emission loop is owned by whichever goroutine moved the demand
// counter off zero, so the pull function is never called concurrently.
// The owner also stops the iterator on any terminal path.
type seqPublisher[T any] struct {
	seq iter.Seq2[T, error]
}

func fromSeq[T any](seq iter.Seq[T]) flow.Publisher[T] {
	return fromSeq2(func(yield func(T, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	})
}

func fromSeq2[T any](seq iter.Seq2[T, error]) flow.Publisher[T] {
	return seqPublisher[T]{seq: seq}
}

func (p seqPublisher[T]) Subscribe(s flow.Subscriber[T]) {
	s.OnSubscribe(&seqSubscription[T]{actual: s, seq: p.seq})
}

type seqSubscription[T any] struct {
	actual flow.Subscriber[T]
	seq    iter.Seq2[T, error]
	next   func() (T, error, bool) // owned by the emission loop
	stop   func()

	_         pad
	requested atomix.Int64
	_         padShort
	badDemand atomix.Int64
	_         padShort
	cancelled atomix.Int32
	_         padShort
}

func (s *seqSubscription[T]) Request(n int64) {
	if n <= 0 {
		s.badDemand.CompareAndSwapAcqRel(0, n-1)
		n = 1
	}
	if flow.AddDemand(&s.requested, n) != 0 {
		return
	}
	s.emit(n)
}

// Cancel stops emission. When no loop is running, the caller takes
// ownership just long enough to stop the iterator.
func (s *seqSubscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwapAcqRel(0, 1) {
		return
	}
	if flow.AddDemand(&s.requested, 1) == 0 {
		s.release()
	}
}

func (s *seqSubscription[T]) emit(n int64) {
	var e int64
	for {
		for e != n {
			if s.terminated() {
				return
			}
			v, err, ok := s.pull()
			if !ok {
				s.finish(nil)
				return
			}
			if err != nil {
				s.finish(err)
				return
			}
			s.actual.OnNext(v)
			e++
		}
		if s.terminated() {
			return
		}
		n = s.requested.LoadAcquire()
		if n == e {
			n = flow.ProduceDemand(&s.requested, e)
			if n == 0 {
				return
			}
			e = 0
		}
	}
}

// pull returns the next pair, converting a panicking iterator into a
// *flow.PanicError.
func (s *seqSubscription[T]) pull() (v T, err error, ok bool) {
	if s.next == nil {
		s.next, s.stop = iter.Pull2(s.seq)
	}
	defer func() {
		if p := recover(); p != nil {
			err, ok = &flow.PanicError{Recovered: p}, true
		}
	}()
	return s.next()
}

func (s *seqSubscription[T]) terminated() bool {
	if s.cancelled.LoadAcquire() != 0 {
		s.release()
		return true
	}
	if bad := s.badDemand.LoadAcquire(); bad != 0 {
		s.cancelled.StoreRelease(1)
		s.release()
		s.actual.OnError(flow.ValidateRequest(bad + 1))
		return true
	}
	return false
}

func (s *seqSubscription[T]) finish(err error) {
	s.cancelled.StoreRelease(1)
	s.release()
	if err != nil {
		s.actual.OnError(err)
		return
	}
	s.actual.OnComplete()
}

func (s *seqSubscription[T]) release() {
	if s.stop != nil {
		s.stop()
	}
}

// funcPublisher calls fn on the first valid Request and emits its result.
type funcPublisher[T any] struct {
	fn func() (T, error)
}

func fromFunc[T any](fn func() (T, error)) flow.Publisher[T] {
	return funcPublisher[T]{fn: fn}
}

func (p funcPublisher[T]) Subscribe(s flow.Subscriber[T]) {
	s.OnSubscribe(&funcSubscription[T]{actual: s, fn: p.fn})
}

type funcSubscription[T any] struct {
	actual flow.Subscriber[T]
	fn     func() (T, error)
	once   atomix.Int32
}

func (s *funcSubscription[T]) Request(n int64) {
	if !s.once.CompareAndSwapAcqRel(0, 1) {
		return
	}
	if err := flow.ValidateRequest(n); err != nil {
		s.actual.OnError(err)
		return
	}
	v, err := s.call()
	if err != nil {
		s.actual.OnError(err)
		return
	}
	s.actual.OnNext(v)
	s.actual.OnComplete()
}

func (s *funcSubscription[T]) call() (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &flow.PanicError{Recovered: p}
		}
	}()
	return s.fn()
}

func (s *funcSubscription[T]) Cancel() {
	s.once.CompareAndSwapAcqRel(0, 1)
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
