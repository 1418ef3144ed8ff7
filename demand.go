// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"math"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Unbounded is the demand value meaning "no limit". Accumulated demand
// saturates at Unbounded and is never decremented once it gets there.
const Unbounded int64 = math.MaxInt64

// ValidateRequest returns nil for a positive n, or an error wrapping
// ErrInvalidDemand.
func ValidateRequest(n int64) error {
	if n <= 0 {
		return invalidDemand(n)
	}
	return nil
}

// AddCap returns a+b, saturating at Unbounded. Both operands must be
// non-negative.
func AddCap(a, b int64) int64 {
	r := a + b
	if r < 0 {
		return Unbounded
	}
	return r
}

// AddDemand adds n to the demand counter d with saturation and returns the
// previous value. A previous value of zero means the caller now owns the
// emission loop.
func AddDemand(d *atomix.Int64, n int64) int64 {
	sw := spin.Wait{}
	for {
		cur := d.LoadAcquire()
		if cur == Unbounded {
			return Unbounded
		}
		if d.CompareAndSwapAcqRel(cur, AddCap(cur, n)) {
			return cur
		}
		sw.Once()
	}
}

// ProduceDemand subtracts n emitted elements from d and returns the
// remaining demand. Unbounded demand is left untouched.
func ProduceDemand(d *atomix.Int64, n int64) int64 {
	sw := spin.Wait{}
	for {
		cur := d.LoadAcquire()
		if cur == Unbounded {
			return Unbounded
		}
		next := cur - n
		if next < 0 {
			panic("flow: more produced than requested")
		}
		if d.CompareAndSwapAcqRel(cur, next) {
			return next
		}
		sw.Once()
	}
}
