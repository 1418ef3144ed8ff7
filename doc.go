// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package flow provides the concurrency substrate for reactive streams.
//
// The package covers:
//
//   - Protocol: Publisher, Subscriber, Subscription with demand accounting
//   - Fusion: QueueSubscription for pull-based SYNC and ASYNC delivery
//   - Scalars: ScalarSubscription and DeferredScalarSubscriber
//   - Operators: Distinct, Last
//   - Sources: Just, Empty, Fail, FromSlice, Sink
//   - Sequence: a cache-line padded atomic counter
//
// Schedulers live in [code.hybscloud.com/flow/sched]. Bridges to channels,
// iterators and slices live in [code.hybscloud.com/flow/convert].
//
// # Quick Start
//
//	sub := &collector[int]{}
//	flow.Distinct(flow.FromSlice(1, 2, 2, 3, 1, 4), func(v int) int { return v }).
//	    Subscribe(sub)
//	// sub received 1, 2, 3, 4 then OnComplete
//
// # Signal Protocol
//
// A Publisher delivers to each Subscriber:
//
//	OnSubscribe (OnNext)* (OnError | OnComplete)?
//
// Signals are never concurrent with each other. The subscriber drives the
// rate with Subscription.Request; a producer never emits more OnNext than
// the demand it was granted. Demand accumulates and saturates at
// [Unbounded].
//
// Request and Cancel may be called from any goroutine, concurrently with
// signals. Every stateful type in this package reconciles that with
// compare-and-swap retry loops; no operation takes a lock or blocks.
//
// A Request with n <= 0 is a protocol violation. The producer reports an
// error wrapping [ErrInvalidDemand] to its subscriber instead of counting
// the request.
//
// # Fusion
//
// When both sides agree, values travel through Poll instead of OnNext:
//
//	qs, ok := s.(flow.QueueSubscription[T])
//	if ok {
//	    switch qs.RequestFusion(flow.FusionAny) {
//	    case flow.FusionSync:
//	        // everything is available now: poll until ErrWouldBlock,
//	        // which marks completion. No OnNext will arrive.
//	    case flow.FusionAsync:
//	        // OnNext(zero) announces readiness: poll until ErrWouldBlock,
//	        // then wait for the next announcement or a terminal signal.
//	    }
//	}
//
// Producers may refuse fusion by returning [FusionNone].
//
// # Dropped Signals
//
// A signal arriving after termination or cancellation is never delivered.
// It goes to the process-wide hooks installed with [SetDropHooks]. The
// default hooks log through [Logger] (a logiface logger, stumpy JSON to
// stderr at warning level), rate limited per signal kind.
//
//	flow.SetDropHooks(flow.Hooks{
//	    NextDropped:  func(v any) { metrics.Dropped.Inc() },
//	    ErrorDropped: func(err error) { log.Print(err) },
//	})
//
// # Error Handling
//
// Poll and Sink.Emit return [ErrWouldBlock] when they cannot proceed. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
// User callbacks that fail (return an error or panic) inside an operator
// terminate it with an [*OperatorError] naming the element:
//
//	var oe *flow.OperatorError
//	if errors.As(err, &oe) {
//	    fmt.Println("failed on", oe.Value)
//	}
//
// # Sink
//
// Sink bridges imperative producers into the protocol. It buffers values
// in an [code.hybscloud.com/lfq] queue selected by the builder:
//
//	s := flow.Build[Event](flow.New(1024).SingleProducer()) // lfq SPSC
//	s := flow.Build[Event](flow.New(1024))                  // lfq MPSC
//
// # Race Detection
//
// Several types publish plain fields through acquire-release pairs on a
// separate atomic. The race detector cannot follow that and may report
// false positives; concurrent tests check [RaceEnabled] and skip.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CAS retry loops,
// [code.hybscloud.com/iox] for semantic errors and
// [github.com/joeycumines/logiface] for diagnostics.
package flow
