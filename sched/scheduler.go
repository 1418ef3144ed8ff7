// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"time"

	"code.hybscloud.com/atomix"
)

// Task is a unit of work run by a Scheduler or a Worker.
type Task func()

// Disposable cancels a scheduled task or releases a resource.
// Dispose is idempotent.
type Disposable interface {
	Dispose()
}

// Worker is a sequential execution context.
//
// Tasks scheduled on one Worker run one at a time, in submission order.
// Disposing a Worker drops its pending tasks and does not affect the
// Scheduler that created it.
type Worker interface {
	// Schedule queues task for execution.
	// Returns ErrRejected once the Worker is disposed, or ErrWouldBlock if
	// the task queue is full.
	Schedule(task Task) (Disposable, error)

	// Dispose cancels pending tasks and releases the Worker.
	Dispose()

	// IsDisposed reports whether the Worker accepts no more tasks, either
	// because it was disposed or because its Scheduler shut down.
	IsDisposed() bool
}

// Scheduler decides where work runs.
type Scheduler interface {
	// Schedule runs task on one of the Scheduler's workers.
	Schedule(task Task) (Disposable, error)

	// CreateWorker returns a new Worker. A Scheduler that is shut down
	// returns a Worker that is already disposed.
	CreateWorker() Worker

	// Start (re)allocates resources after Shutdown, where supported.
	Start()

	// Shutdown releases every resource and disposes outstanding Workers.
	Shutdown()
}

// TimedWorker is a Worker that also runs tasks later or repeatedly.
type TimedWorker interface {
	Worker

	// ScheduleDelayed runs task once after delay.
	ScheduleDelayed(task Task, delay time.Duration) (Disposable, error)

	// SchedulePeriodically runs task after initialDelay, then at a fixed
	// rate of period until disposed. A panicking run ends the schedule.
	SchedulePeriodically(task Task, initialDelay, period time.Duration) (Disposable, error)
}

// TimedScheduler is a Scheduler with delayed and periodic scheduling.
type TimedScheduler interface {
	Scheduler

	// ScheduleDelayed runs task once after delay.
	ScheduleDelayed(task Task, delay time.Duration) (Disposable, error)

	// SchedulePeriodically runs task after initialDelay, then at a fixed
	// rate of period until disposed.
	SchedulePeriodically(task Task, initialDelay, period time.Duration) (Disposable, error)

	// CreateTimedWorker returns a new TimedWorker.
	CreateTimedWorker() TimedWorker

	// Now returns the Scheduler's notion of the current time.
	Now() time.Time
}

// Disposed is a Disposable with nothing left to cancel.
var Disposed Disposable = disposedHandle{}

type disposedHandle struct{}

func (disposedHandle) Dispose() {}

// scheduledTask is the queue element of an executor.
//
// A one-shot task runs at most once. A periodic task is resubmitted by its
// timer and runs until disposed.
type scheduledTask struct {
	fn        Task
	owner     *worker // nil for tasks scheduled directly on a Scheduler
	periodic  bool
	onDispose func()

	_        pad
	disposed atomix.Int32
	_        padShort
	ran      atomix.Int32
	_        padShort
}

func newTask(fn Task, owner *worker) *scheduledTask {
	return &scheduledTask{fn: fn, owner: owner}
}

// Dispose prevents any further run of the task.
func (t *scheduledTask) Dispose() {
	if t.disposed.CompareAndSwapAcqRel(0, 1) && t.onDispose != nil {
		t.onDispose()
	}
}

func (t *scheduledTask) isDisposed() bool {
	if t.disposed.LoadAcquire() != 0 {
		return true
	}
	return t.owner != nil && t.owner.disposed.LoadAcquire() != 0
}

// run executes the task unless it was disposed or already ran.
func (t *scheduledTask) run() {
	if t.isDisposed() {
		return
	}
	if !t.periodic && !t.ran.CompareAndSwapAcqRel(0, 1) {
		return
	}
	t.fn()
}
