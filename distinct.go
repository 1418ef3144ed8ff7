// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import "code.hybscloud.com/atomix"

// Distinct forwards each element whose key was not seen before by the same
// subscription, using a map as the store.
//
// A panicking key function terminates the sequence with an *OperatorError
// tagging the element.
//
// Example:
//
//	flow.Distinct(flow.FromSlice(1, 2, 2, 3, 1, 4), func(v int) int { return v })
//	// emits 1, 2, 3, 4
func Distinct[T any, K comparable](source Publisher[T], key func(T) K) Publisher[T] {
	return DistinctWith(source,
		func(v T) (K, error) { return key(v), nil },
		func() (map[K]struct{}, error) { return make(map[K]struct{}), nil },
		func(m map[K]struct{}, k K) (bool, error) {
			if _, ok := m[k]; ok {
				return false, nil
			}
			m[k] = struct{}{}
			return true, nil
		},
		func(m map[K]struct{}) { clear(m) },
	)
}

// DistinctWith is Distinct over a caller-supplied store.
//
//   - newStore creates one store per subscription.
//   - add records key in store and reports whether it was new.
//   - cleanup releases the store. It runs exactly once, when the sequence
//     terminates, before the terminal signal is forwarded. It may be nil.
//
// A non-nil error (or a panic) from key or add terminates the sequence with
// an *OperatorError. A newStore failure is delivered to the subscriber
// without subscribing to source.
func DistinctWith[T, K, C any](
	source Publisher[T],
	key func(T) (K, error),
	newStore func() (C, error),
	add func(store C, key K) (bool, error),
	cleanup func(store C),
) Publisher[T] {
	return &distinctPublisher[T, K, C]{
		source:   source,
		key:      key,
		newStore: newStore,
		add:      add,
		cleanup:  cleanup,
	}
}

type distinctPublisher[T, K, C any] struct {
	source   Publisher[T]
	key      func(T) (K, error)
	newStore func() (C, error)
	add      func(C, K) (bool, error)
	cleanup  func(C)
}

func (p *distinctPublisher[T, K, C]) Subscribe(actual Subscriber[T]) {
	store, err := protect(p.newStore)
	if err != nil {
		Fail[T](err).Subscribe(actual)
		return
	}
	s := &distinctSubscriber[T, K, C]{
		actual:  actual,
		store:   store,
		key:     p.key,
		add:     p.add,
		cleanup: p.cleanup,
	}
	cond, isCond := actual.(ConditionalSubscriber[T])
	switch {
	case isFuseable(p.source):
		s.variant = distinctFused
	case isCond:
		s.variant = distinctConditional
		s.cond = cond
	default:
		s.variant = distinctPlain
	}
	p.source.Subscribe(s)
}

func (p *distinctPublisher[T, K, C]) Fuseable() {}

func isFuseable(p any) bool {
	_, ok := p.(Fuseable)
	return ok
}

// distinctVariant selects one of three forwarding paths, fixed at
// subscribe time.
type distinctVariant uint8

const (
	distinctPlain distinctVariant = iota
	distinctConditional
	distinctFused
)

type distinctSubscriber[T, K, C any] struct {
	variant    distinctVariant
	actual     Subscriber[T]
	cond       ConditionalSubscriber[T]
	upstream   Subscription
	qs         QueueSubscription[T]
	sourceMode FusionMode

	store   C
	key     func(T) (K, error)
	add     func(C, K) (bool, error)
	cleanup func(C)
	done    bool

	_       pad
	cleaned atomix.Int32
	_       pad
}

func (s *distinctSubscriber[T, K, C]) OnSubscribe(sub Subscription) {
	if s.upstream != nil {
		sub.Cancel()
		OnErrorDropped(ErrAlreadySubscribed)
		return
	}
	s.upstream = sub
	if s.variant == distinctFused {
		qs, ok := sub.(QueueSubscription[T])
		if ok {
			s.qs = qs
		} else if cond, isCond := s.actual.(ConditionalSubscriber[T]); isCond {
			s.variant = distinctConditional
			s.cond = cond
		} else {
			s.variant = distinctPlain
		}
	}
	s.actual.OnSubscribe(s)
}

func (s *distinctSubscriber[T, K, C]) OnNext(v T) {
	if s.variant == distinctConditional {
		if s.done {
			OnNextDropped(v)
			return
		}
		ok, err := s.isNew(v)
		if err != nil {
			s.onOperatorError(err)
			return
		}
		if ok {
			s.cond.OnNext(v)
		} else {
			s.upstream.Request(1)
		}
		return
	}
	if !s.TryOnNext(v) {
		s.upstream.Request(1)
	}
}

// TryOnNext reports false for a duplicate, leaving the replacement request
// to the caller.
func (s *distinctSubscriber[T, K, C]) TryOnNext(v T) bool {
	if s.sourceMode == FusionAsync {
		s.actual.OnNext(v)
		return true
	}
	if s.done {
		OnNextDropped(v)
		return true
	}
	ok, err := s.isNew(v)
	if err != nil {
		s.onOperatorError(err)
		return true
	}
	if !ok {
		return false
	}
	if s.variant == distinctConditional {
		return s.cond.TryOnNext(v)
	}
	s.actual.OnNext(v)
	return true
}

func (s *distinctSubscriber[T, K, C]) isNew(v T) (bool, error) {
	k, err := protect(func() (K, error) { return s.key(v) })
	if err != nil {
		return false, NewOperatorError(v, err)
	}
	ok, err := protect(func() (bool, error) { return s.add(s.store, k) })
	if err != nil {
		return false, NewOperatorError(v, err)
	}
	return ok, nil
}

func (s *distinctSubscriber[T, K, C]) onOperatorError(err error) {
	s.upstream.Cancel()
	s.OnError(err)
}

func (s *distinctSubscriber[T, K, C]) OnError(err error) {
	if s.done {
		OnErrorDropped(err)
		return
	}
	s.done = true
	s.release()
	s.actual.OnError(err)
}

func (s *distinctSubscriber[T, K, C]) OnComplete() {
	if s.done {
		OnErrorDropped(ErrDuplicateTerminal)
		return
	}
	s.done = true
	s.release()
	s.actual.OnComplete()
}

// release runs the cleanup callback exactly once.
func (s *distinctSubscriber[T, K, C]) release() {
	if !s.cleaned.CompareAndSwapAcqRel(0, 1) || s.cleanup == nil {
		return
	}
	_, err := protect(func() (struct{}, error) {
		s.cleanup(s.store)
		return struct{}{}, nil
	})
	if err != nil {
		OnErrorDropped(err)
	}
}

func (s *distinctSubscriber[T, K, C]) Request(n int64) {
	s.upstream.Request(n)
}

func (s *distinctSubscriber[T, K, C]) Cancel() {
	s.upstream.Cancel()
}

// RequestFusion passes the negotiation through to a fuseable upstream.
func (s *distinctSubscriber[T, K, C]) RequestFusion(mode FusionMode) FusionMode {
	if s.qs == nil {
		return FusionNone
	}
	m := s.qs.RequestFusion(mode)
	s.sourceMode = m
	return m
}

// Poll pulls from upstream until a novel element turns up or upstream has
// nothing more. In ASYNC mode every skipped duplicate is replaced by a
// Request to upstream, including when the loop ends empty.
func (s *distinctSubscriber[T, K, C]) Poll() (T, error) {
	var zero T
	if s.qs == nil {
		return zero, ErrWouldBlock
	}
	var dropped int64
	for {
		v, err := s.qs.Poll()
		if err != nil {
			if dropped != 0 && IsWouldBlock(err) {
				s.qs.Request(dropped)
			}
			return zero, err
		}
		ok, err := s.isNew(v)
		if err != nil {
			s.release()
			return zero, err
		}
		if ok {
			if dropped != 0 {
				s.qs.Request(dropped)
			}
			return v, nil
		}
		if s.sourceMode == FusionAsync {
			dropped++
		}
	}
}

func (s *distinctSubscriber[T, K, C]) IsEmpty() bool {
	if s.qs == nil {
		return true
	}
	return s.qs.IsEmpty()
}

func (s *distinctSubscriber[T, K, C]) Size() int {
	if s.qs == nil {
		return 0
	}
	return s.qs.Size()
}

// Clear discards upstream values and releases the store.
func (s *distinctSubscriber[T, K, C]) Clear() {
	if s.qs != nil {
		s.qs.Clear()
	}
	s.release()
}
