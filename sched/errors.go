// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is returned by Schedule when the task queue is full.
// It is an alias for [iox.ErrWouldBlock].
var ErrWouldBlock = iox.ErrWouldBlock

// ErrRejected is returned by Schedule on a disposed Worker or a Scheduler
// that is shut down.
var ErrRejected = errors.New("sched: task rejected")

// ErrComputationReplaced is returned by NewRegistry when the computation
// factory is replaced more than once.
var ErrComputationReplaced = errors.New("sched: computation factory already replaced")

// ErrInvalidPeriod is returned by SchedulePeriodically for a non-positive
// period.
var ErrInvalidPeriod = errors.New("sched: period must be > 0")

// IsWouldBlock reports whether err indicates a full task queue.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}
