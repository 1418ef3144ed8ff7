// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Deferred scalar states. A request and a value may arrive in either order;
// whichever arrives second performs the emission.
const (
	noRequestNoValue   int32 = 0
	noRequestHasValue  int32 = 1
	hasRequestNoValue  int32 = 2
	hasRequestHasValue int32 = 3 // also the cancelled state
)

// Output status in ASYNC fused mode.
const (
	outputNotFused int32 = 0
	outputNoValue  int32 = 1
	outputHasValue int32 = 2
	outputComplete int32 = 3
)

// DeferredScalarSubscriber emits a single value that becomes available
// after the downstream subscribed.
//
// It sits between an upstream Publisher and a downstream Subscriber: the
// upstream's OnNext stashes a value, and Complete (or upstream OnComplete)
// hands it to the state machine, which emits it exactly once together
// with completion when demand is present. Errors bypass the state machine.
//
// The stash holds only the most recent upstream value. An upstream that
// emits more than once before completing has its earlier values overwritten.
type DeferredScalarSubscriber[T any] struct {
	_           pad
	state       atomix.Int32
	_           padShort
	outputFused atomix.Int32
	_           padShort

	actual   Subscriber[T]
	upstream Subscription
	value    T
	hasValue bool // producer-side stash flag
	done     bool // producer-side completion guard
}

// NewDeferredScalarSubscriber creates a subscriber that emits to actual.
func NewDeferredScalarSubscriber[T any](actual Subscriber[T]) *DeferredScalarSubscriber[T] {
	return &DeferredScalarSubscriber[T]{actual: actual}
}

// OnSubscribe forwards itself downstream and requests everything from
// upstream.
func (d *DeferredScalarSubscriber[T]) OnSubscribe(s Subscription) {
	if d.upstream != nil {
		s.Cancel()
		OnErrorDropped(ErrAlreadySubscribed)
		return
	}
	d.upstream = s
	d.actual.OnSubscribe(d)
	s.Request(Unbounded)
}

// OnNext stashes v, replacing any previous value.
func (d *DeferredScalarSubscriber[T]) OnNext(v T) {
	if d.done {
		OnNextDropped(v)
		return
	}
	d.value = v
	d.hasValue = true
}

// OnError forwards err downstream immediately.
func (d *DeferredScalarSubscriber[T]) OnError(err error) {
	if d.done {
		OnErrorDropped(err)
		return
	}
	d.done = true
	d.actual.OnError(err)
}

// OnComplete completes with the stashed value, or completes empty when the
// upstream produced nothing.
func (d *DeferredScalarSubscriber[T]) OnComplete() {
	if d.done {
		OnErrorDropped(ErrDuplicateTerminal)
		return
	}
	if d.hasValue {
		d.Complete(d.value)
		return
	}
	d.done = true
	d.actual.OnComplete()
}

// Request records demand, emitting if the value is already present.
func (d *DeferredScalarSubscriber[T]) Request(n int64) {
	if err := ValidateRequest(n); err != nil {
		d.fail(err)
		return
	}
	sw := spin.Wait{}
	for {
		s := d.state.LoadAcquire()
		if s == hasRequestNoValue || s == hasRequestHasValue {
			return
		}
		if s == noRequestHasValue {
			if d.state.CompareAndSwapAcqRel(noRequestHasValue, hasRequestHasValue) {
				if d.outputFused.LoadAcquire() == outputNoValue {
					d.outputFused.StoreRelease(outputHasValue)
				}
				a := d.actual
				a.OnNext(d.value)
				a.OnComplete()
			}
			return
		}
		if d.state.CompareAndSwapAcqRel(noRequestNoValue, hasRequestNoValue) {
			return
		}
		sw.Once()
	}
}

// fail reports invalid demand, unless the value was already handed off.
func (d *DeferredScalarSubscriber[T]) fail(err error) {
	sw := spin.Wait{}
	for {
		s := d.state.LoadAcquire()
		if s == hasRequestHasValue {
			OnErrorDropped(err)
			return
		}
		if d.state.CompareAndSwapAcqRel(s, hasRequestHasValue) {
			if d.upstream != nil {
				d.upstream.Cancel()
			}
			d.actual.OnError(err)
			return
		}
		sw.Once()
	}
}

// Complete offers the final value. Must be called at most once, from the
// producer side.
func (d *DeferredScalarSubscriber[T]) Complete(v T) {
	if d.done {
		OnNextDropped(v)
		return
	}
	d.done = true
	sw := spin.Wait{}
	for {
		s := d.state.LoadAcquire()
		if s == noRequestHasValue || s == hasRequestHasValue {
			return
		}
		if s == hasRequestNoValue {
			if d.outputFused.LoadAcquire() == outputNoValue {
				d.value = v
				d.outputFused.StoreRelease(outputHasValue)
			}
			a := d.actual
			a.OnNext(v)
			if d.state.LoadAcquire() != hasRequestHasValue {
				a.OnComplete()
			}
			return
		}
		d.value = v
		if d.state.CompareAndSwapAcqRel(noRequestNoValue, noRequestHasValue) {
			return
		}
		sw.Once()
	}
}

// Cancel stops emission and cancels the upstream. Idempotent.
func (d *DeferredScalarSubscriber[T]) Cancel() {
	d.state.StoreRelease(hasRequestHasValue)
	if d.upstream != nil {
		d.upstream.Cancel()
	}
}

// IsCancelled reports whether the state machine reached its final state,
// which is the case after Cancel and after emission.
func (d *DeferredScalarSubscriber[T]) IsCancelled() bool {
	return d.state.LoadAcquire() == hasRequestHasValue
}

// RequestFusion accepts ASYNC only.
func (d *DeferredScalarSubscriber[T]) RequestFusion(mode FusionMode) FusionMode {
	if mode&FusionAsync != 0 {
		d.outputFused.StoreRelease(outputNoValue)
		return FusionAsync
	}
	return FusionNone
}

// Poll returns the value once it was announced, then ErrWouldBlock.
func (d *DeferredScalarSubscriber[T]) Poll() (T, error) {
	if d.outputFused.CompareAndSwapAcqRel(outputHasValue, outputComplete) {
		return d.value, nil
	}
	var zero T
	return zero, ErrWouldBlock
}

// IsEmpty reports whether Poll would return ErrWouldBlock.
func (d *DeferredScalarSubscriber[T]) IsEmpty() bool {
	return d.outputFused.LoadAcquire() != outputHasValue
}

// Size returns 1 while an announced value awaits Poll.
func (d *DeferredScalarSubscriber[T]) Size() int {
	if d.IsEmpty() {
		return 0
	}
	return 1
}

// Clear discards the fused value.
func (d *DeferredScalarSubscriber[T]) Clear() {
	d.outputFused.StoreRelease(outputComplete)
}

// Last emits the final element of source, or completes empty.
//
// Example:
//
//	flow.Last(flow.FromSlice(1, 2, 3)).Subscribe(sub) // emits 3
func Last[T any](source Publisher[T]) Publisher[T] {
	return lastPublisher[T]{source: source}
}

type lastPublisher[T any] struct {
	source Publisher[T]
}

func (p lastPublisher[T]) Subscribe(s Subscriber[T]) {
	p.source.Subscribe(NewDeferredScalarSubscriber(s))
}

func (lastPublisher[T]) Fuseable() {}
