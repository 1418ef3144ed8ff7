// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// Subscriber attachment states.
const (
	sinkIdle int32 = iota
	sinkClaimed
	sinkActive
	sinkTerminated
)

// Sink is a unicast Publisher fed by non-blocking Emit calls.
//
// Emitted values are buffered in a bounded lock-free queue until the
// subscriber requests them. A full queue makes Emit return ErrWouldBlock
// so the producer can apply its own backoff:
//
//	s := flow.NewSink[int](1024)
//	s.Subscribe(sub)
//
//	backoff := iox.Backoff{}
//	for _, v := range input {
//	    for s.Emit(v) != nil {
//	        backoff.Wait()
//	    }
//	    backoff.Reset()
//	}
//	s.Complete()
//
// The subscription supports ASYNC fusion: a fused subscriber receives
// OnNext only as a wake-up and pulls values with Poll.
//
// Only one subscriber is accepted; later ones receive ErrAlreadySubscribed.
type Sink[T any] struct {
	_         pad
	wip       atomix.Int32
	_         padShort
	requested atomix.Int64
	_         padShort
	size      atomix.Int64
	_         padShort
	state     atomix.Int32
	_         padShort
	done      atomix.Int32 // 0 open, 1 terminating, 2 terminated
	_         padShort
	cancelled atomix.Int32
	_         padShort
	badDemand atomix.Int64 // n-1 of the first invalid request, 0 if none
	_         pad

	queue       lfq.Queue[T]
	err         error
	actual      Subscriber[T]
	outputFused bool
}

func newSink[T any](q lfq.Queue[T]) *Sink[T] {
	return &Sink[T]{queue: q}
}

// Cap returns the queue capacity.
func (s *Sink[T]) Cap() int {
	return s.queue.Cap()
}

// Emit offers v to the subscriber (non-blocking).
// Returns ErrWouldBlock if the queue is full.
// Values emitted after Complete, Error or Cancel are reported to the
// dropped-signal hook.
func (s *Sink[T]) Emit(v T) error {
	if s.done.LoadAcquire() != 0 || s.cancelled.LoadAcquire() != 0 {
		OnNextDropped(v)
		return nil
	}
	s.size.AddAcqRel(1)
	if err := s.queue.Enqueue(&v); err != nil {
		s.size.AddAcqRel(-1)
		return err
	}
	s.drain()
	return nil
}

// Complete signals that no more values will be emitted.
// Buffered values are still delivered first.
func (s *Sink[T]) Complete() {
	if !s.done.CompareAndSwapAcqRel(0, 1) {
		OnErrorDropped(ErrDuplicateTerminal)
		return
	}
	s.done.StoreRelease(2)
	s.drainQueue()
	s.drain()
}

// Error terminates the sequence with err after buffered values.
func (s *Sink[T]) Error(err error) {
	if !s.done.CompareAndSwapAcqRel(0, 1) {
		OnErrorDropped(err)
		return
	}
	s.err = err
	s.done.StoreRelease(2)
	s.drainQueue()
	s.drain()
}

// Subscribe attaches the single subscriber.
func (s *Sink[T]) Subscribe(a Subscriber[T]) {
	if !s.state.CompareAndSwapAcqRel(sinkIdle, sinkClaimed) {
		a.OnSubscribe(emptySubscription[T]{})
		a.OnError(ErrAlreadySubscribed)
		return
	}
	s.actual = a
	a.OnSubscribe(s)
	s.state.StoreRelease(sinkActive)
	s.drain()
}

func (s *Sink[T]) Fuseable() {}

// Request grants n more elements of demand.
func (s *Sink[T]) Request(n int64) {
	if n <= 0 {
		s.badDemand.CompareAndSwapAcqRel(0, n-1)
	} else {
		AddDemand(&s.requested, n)
	}
	s.drain()
}

// Cancel stops delivery and discards buffered values.
func (s *Sink[T]) Cancel() {
	if s.cancelled.CompareAndSwapAcqRel(0, 1) {
		s.drain()
	}
}

// RequestFusion accepts ASYNC only.
func (s *Sink[T]) RequestFusion(mode FusionMode) FusionMode {
	if mode&FusionAsync != 0 {
		s.outputFused = true
		return FusionAsync
	}
	return FusionNone
}

// Poll dequeues the next buffered value.
func (s *Sink[T]) Poll() (T, error) {
	v, err := s.queue.Dequeue()
	if err == nil {
		s.size.AddAcqRel(-1)
	}
	return v, err
}

// IsEmpty reports whether no value is buffered.
func (s *Sink[T]) IsEmpty() bool {
	return s.size.LoadAcquire() <= 0
}

// Size returns the number of buffered values.
func (s *Sink[T]) Size() int {
	n := s.size.LoadAcquire()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Clear discards buffered values.
func (s *Sink[T]) Clear() {
	for {
		if _, err := s.queue.Dequeue(); err != nil {
			return
		}
		s.size.AddAcqRel(-1)
	}
}

// drainQueue lifts the FAA queues' livelock threshold so that the consumer
// can take every remaining value once producers are done.
func (s *Sink[T]) drainQueue() {
	if d, ok := s.queue.(lfq.Drainer); ok {
		d.Drain()
	}
}

func (s *Sink[T]) drain() {
	if s.wip.AddAcqRel(1) != 1 {
		return
	}
	missed := int32(1)
	for {
		switch s.state.LoadAcquire() {
		case sinkActive:
			if s.outputFused {
				s.drainFused()
			} else {
				s.drainRegular()
			}
		case sinkTerminated:
			if !s.outputFused {
				s.Clear()
			}
		}
		missed = s.wip.AddAcqRel(-missed)
		if missed == 0 {
			return
		}
	}
}

func (s *Sink[T]) drainRegular() {
	a := s.actual
	r := s.requested.LoadAcquire()
	var e int64
	for e != r {
		d := s.done.LoadAcquire() == 2
		v, err := s.queue.Dequeue()
		if err != nil {
			if s.checkTerminated(d, s.IsEmpty(), a) {
				return
			}
			break
		}
		s.size.AddAcqRel(-1)
		if s.checkTerminated(false, false, a) {
			return
		}
		a.OnNext(v)
		e++
	}
	if e == r && s.checkTerminated(s.done.LoadAcquire() == 2, s.IsEmpty(), a) {
		return
	}
	if e != 0 {
		ProduceDemand(&s.requested, e)
	}
}

func (s *Sink[T]) drainFused() {
	a := s.actual
	if s.cancelled.LoadAcquire() != 0 {
		s.state.StoreRelease(sinkTerminated)
		return
	}
	if s.failBadDemand(a) {
		return
	}
	d := s.done.LoadAcquire() == 2
	if s.IsEmpty() && !d {
		return
	}
	var zero T
	a.OnNext(zero)
	if d {
		s.terminate(a)
	}
}

func (s *Sink[T]) checkTerminated(d, empty bool, a Subscriber[T]) bool {
	if s.cancelled.LoadAcquire() != 0 {
		s.state.StoreRelease(sinkTerminated)
		s.Clear()
		return true
	}
	if s.failBadDemand(a) {
		return true
	}
	if d && empty {
		s.terminate(a)
		return true
	}
	return false
}

func (s *Sink[T]) failBadDemand(a Subscriber[T]) bool {
	bad := s.badDemand.LoadAcquire()
	if bad == 0 {
		return false
	}
	s.cancelled.StoreRelease(1)
	s.state.StoreRelease(sinkTerminated)
	if !s.outputFused {
		s.Clear()
	}
	a.OnError(invalidDemand(bad + 1))
	return true
}

func (s *Sink[T]) terminate(a Subscriber[T]) {
	s.state.StoreRelease(sinkTerminated)
	if s.err != nil {
		a.OnError(s.err)
		return
	}
	a.OnComplete()
}
