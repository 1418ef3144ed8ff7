// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"strconv"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// InitialSequenceValue is the value of a Sequence created by NewSequence
// without an explicit start.
const InitialSequenceValue int64 = -1

// Sequence is a padded 64-bit counter for lock-free progress tracking.
//
// The value occupies its own cache line: a full line of padding sits on
// either side, so adjacent Sequences (or a Sequence next to other hot
// fields) never invalidate each other under concurrent update.
//
// Typical use is a ring-buffer cursor advanced by one goroutine and
// observed by others:
//
//	cursor := flow.NewSequence(flow.InitialSequenceValue)
//
//	// producer
//	cursor.Set(next)
//
//	// consumers
//	for cursor.Get() < want {
//	    backoff.Wait()
//	}
//
// The zero value is a valid Sequence starting at 0.
type Sequence struct {
	_     pad
	value atomix.Int64
	_     pad
}

// NewSequence creates a Sequence holding initial.
func NewSequence(initial int64) *Sequence {
	s := &Sequence{}
	s.value.StoreRelease(initial)
	return s
}

// Get returns the current value with acquire ordering.
func (s *Sequence) Get() int64 {
	return s.value.LoadAcquire()
}

// Set performs an ordered store: it is not reordered with prior writes of
// the calling goroutine, and becomes visible to other goroutines without a
// full fence.
func (s *Sequence) Set(v int64) {
	s.value.StoreRelease(v)
}

// SetVolatile performs a sequentially consistent store, visible to every
// subsequent load on any goroutine.
func (s *Sequence) SetVolatile(v int64) {
	s.value.Store(v)
}

// CompareAndSet atomically replaces expected with v.
// Reports whether the swap happened.
func (s *Sequence) CompareAndSet(expected, v int64) bool {
	return s.value.CompareAndSwapAcqRel(expected, v)
}

// IncrementAndGet adds one and returns the new value.
func (s *Sequence) IncrementAndGet() int64 {
	return s.AddAndGet(1)
}

// AddAndGet adds delta and returns the new value.
// Built from a compare-and-swap retry loop.
func (s *Sequence) AddAndGet(delta int64) int64 {
	sw := spin.Wait{}
	for {
		cur := s.value.LoadAcquire()
		next := cur + delta
		if s.value.CompareAndSwapAcqRel(cur, next) {
			return next
		}
		sw.Once()
	}
}

func (s *Sequence) String() string {
	return strconv.FormatInt(s.Get(), 10)
}
