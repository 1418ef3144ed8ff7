// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow_test

import (
	"slices"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/flow"
	"code.hybscloud.com/iox"
)

// =============================================================================
// Test Helpers
// =============================================================================

// waitFor polls f until it returns true or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		backoff.Wait()
	}
}

// recorder is a Subscriber that records every signal.
//
// With fusion set, it negotiates that mode on subscribe and pulls values
// with Poll, the way a fused downstream operator would.
type recorder[T any] struct {
	initial int64           // requested on subscribe, 0 for none
	fusion  flow.FusionMode // requested fusion mode

	mu        sync.Mutex
	sub       flow.Subscription
	qs        flow.QueueSubscription[T]
	mode      flow.FusionMode
	values    []T
	err       error
	errs      int
	completes int
	nexts     int // raw OnNext calls, including fused wake-ups
	done      atomix.Bool
}

func newRecorder[T any](initial int64) *recorder[T] {
	return &recorder[T]{initial: initial}
}

func newFusedRecorder[T any](initial int64, mode flow.FusionMode) *recorder[T] {
	return &recorder[T]{initial: initial, fusion: mode}
}

func (r *recorder[T]) OnSubscribe(s flow.Subscription) {
	r.mu.Lock()
	r.sub = s
	if qs, ok := s.(flow.QueueSubscription[T]); ok && r.fusion != flow.FusionNone {
		r.qs = qs
		r.mode = qs.RequestFusion(r.fusion)
	}
	mode := r.mode
	r.mu.Unlock()

	if mode == flow.FusionSync {
		r.pollAll()
		if !r.isDone() {
			r.mu.Lock()
			r.completes++
			r.mu.Unlock()
			r.done.Store(true)
		}
		return
	}
	if r.initial > 0 {
		s.Request(r.initial)
	}
}

// pollAll drains the fused subscription until it reports ErrWouldBlock.
func (r *recorder[T]) pollAll() {
	for {
		v, err := r.qs.Poll()
		if err != nil {
			if !flow.IsWouldBlock(err) {
				r.qs.Cancel()
				r.mu.Lock()
				r.err = err
				r.errs++
				r.mu.Unlock()
				r.done.Store(true)
			}
			return
		}
		r.mu.Lock()
		r.values = append(r.values, v)
		r.mu.Unlock()
	}
}

func (r *recorder[T]) isDone() bool {
	return r.done.Load()
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	r.nexts++
	async := r.mode == flow.FusionAsync
	if !async {
		r.values = append(r.values, v)
	}
	r.mu.Unlock()
	if async && !r.isDone() {
		r.pollAll()
	}
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.errs++
	r.mu.Unlock()
	r.done.Store(true)
}

func (r *recorder[T]) OnComplete() {
	r.mu.Lock()
	async := r.mode == flow.FusionAsync
	r.mu.Unlock()
	if async && !r.isDone() {
		r.pollAll()
		if r.isDone() {
			return
		}
	}
	r.mu.Lock()
	r.completes++
	r.mu.Unlock()
	r.done.Store(true)
}

func (r *recorder[T]) request(n int64) {
	r.mu.Lock()
	s := r.sub
	r.mu.Unlock()
	s.Request(n)
}

func (r *recorder[T]) cancel() {
	r.mu.Lock()
	s := r.sub
	r.mu.Unlock()
	s.Cancel()
}

func (r *recorder[T]) snapshot() (values []T, err error, errs, completes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values), r.err, r.errs, r.completes
}

// wakeups returns the raw OnNext count.
func (r *recorder[T]) wakeups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nexts
}

func (r *recorder[T]) negotiated() flow.FusionMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// assertValues fails the test unless r received exactly want, followed by
// completions successful completions and no error.
func assertValues[T comparable](t *testing.T, r *recorder[T], want []T, completes int) {
	t.Helper()
	got, err, errs, c := r.snapshot()
	if !slices.Equal(got, want) {
		t.Fatalf("values: got %v, want %v", got, want)
	}
	if errs != 0 {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != completes {
		t.Fatalf("completions: got %d, want %d", c, completes)
	}
}

// condRecorder is a ConditionalSubscriber accepting elements that match.
type condRecorder[T any] struct {
	*recorder[T]
	accept   func(T) bool
	rejected []T
}

func (c *condRecorder[T]) TryOnNext(v T) bool {
	if c.accept != nil && !c.accept(v) {
		c.mu.Lock()
		c.rejected = append(c.rejected, v)
		c.mu.Unlock()
		return false
	}
	c.OnNext(v)
	return true
}

// opaque hides every optional capability of a publisher: the result is not
// Fuseable, and neither its subscriptions nor its subscribers expose
// fusion or conditional delivery.
func opaque[T any](p flow.Publisher[T]) flow.Publisher[T] {
	return opaquePublisher[T]{p}
}

type opaquePublisher[T any] struct {
	p flow.Publisher[T]
}

func (o opaquePublisher[T]) Subscribe(s flow.Subscriber[T]) {
	o.p.Subscribe(&opaqueSubscriber[T]{actual: s})
}

type opaqueSubscriber[T any] struct {
	actual   flow.Subscriber[T]
	upstream flow.Subscription
}

func (o *opaqueSubscriber[T]) OnSubscribe(s flow.Subscription) {
	o.upstream = s
	o.actual.OnSubscribe(o)
}

func (o *opaqueSubscriber[T]) OnNext(v T)        { o.actual.OnNext(v) }
func (o *opaqueSubscriber[T]) OnError(err error) { o.actual.OnError(err) }
func (o *opaqueSubscriber[T]) OnComplete()       { o.actual.OnComplete() }
func (o *opaqueSubscriber[T]) Request(n int64)   { o.upstream.Request(n) }
func (o *opaqueSubscriber[T]) Cancel()           { o.upstream.Cancel() }

// dropCapture installs drop hooks for the duration of the test.
type dropCapture struct {
	mu     sync.Mutex
	values []any
	errs   []error
}

func captureDrops(t *testing.T) *dropCapture {
	t.Helper()
	c := &dropCapture{}
	flow.SetDropHooks(flow.Hooks{
		NextDropped: func(v any) {
			c.mu.Lock()
			c.values = append(c.values, v)
			c.mu.Unlock()
		},
		ErrorDropped: func(err error) {
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
		},
	})
	t.Cleanup(flow.ResetDropHooks)
	return c
}

func (c *dropCapture) snapshot() ([]any, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.values), slices.Clone(c.errs)
}
