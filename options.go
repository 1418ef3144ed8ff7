// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import "code.hybscloud.com/lfq"

// Options configures Sink creation and queue selection.
type Options struct {
	// Producer constraint (determines queue type)
	singleProducer bool

	// Performance hints
	compact bool // Effort to save slots

	// Capacity (rounds up to next power of 2)
	capacity int
}

// Builder creates Sinks with fluent configuration.
//
// The backing queue is chosen from the producer constraint. The consumer
// side is always single: only the Sink's drain loop, or the one fused
// subscriber, dequeues.
//
// Example:
//
//	// One goroutine calls Emit
//	s := flow.Build[Event](flow.New(1024).SingleProducer())
//
//	// Any number of goroutines call Emit
//	s := flow.Build[Event](flow.New(1024))
type Builder struct {
	opts Options
}

// New creates a Sink builder with the given capacity.
//
// Capacity rounds up to the next power of 2.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("flow: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will call Emit.
// Selects a Lamport ring buffer (lfq SPSC).
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// Compact selects a CAS-based multi-producer queue with n physical slots
// instead of the FAA-based queue with 2n slots.
//
// SingleProducer ignores Compact.
func (b *Builder) Compact() *Builder {
	b.opts.compact = true
	return b
}

// Build creates a Sink with automatic queue selection.
//
//	SingleProducer → lfq SPSC
//	default        → lfq MPSC (FAA, or CAS if Compact)
func Build[T any](b *Builder) *Sink[T] {
	qb := lfq.New(b.opts.capacity).SingleConsumer()
	if b.opts.singleProducer {
		qb = qb.SingleProducer()
	} else if b.opts.compact {
		qb = qb.Compact()
	}
	return newSink(lfq.Build[T](qb))
}

// NewSink creates a multi-producer Sink.
// Shorthand for Build[T](New(capacity)).
func NewSink[T any](capacity int) *Sink[T] {
	return Build[T](New(capacity))
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
