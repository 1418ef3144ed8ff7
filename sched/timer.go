// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"time"

	"code.hybscloud.com/atomix"
)

// TimerScheduler runs every task on a single goroutine and supports
// delayed and periodic scheduling.
//
// Delays are tracked by runtime timers; when one fires, its task is queued
// on the goroutine like any other, so tasks never overlap.
type TimerScheduler struct {
	naming     *ThreadNaming
	bufferSize int
	exec       atomix.Pointer[executor]
}

// NewTimer creates a TimerScheduler.
func NewTimer(naming *ThreadNaming) *TimerScheduler {
	return newTimer(DefaultBufferSize, naming)
}

func newTimer(bufferSize int, naming *ThreadNaming) *TimerScheduler {
	s := &TimerScheduler{naming: naming, bufferSize: bufferSize}
	s.Start()
	return s
}

// Start starts a fresh goroutine if the scheduler is shut down.
// Tasks scheduled before the shutdown stay cancelled.
func (s *TimerScheduler) Start() {
	for {
		cur := s.exec.LoadAcquire()
		if cur != nil && !cur.isShutdown() {
			return
		}
		e := newExecutor(s.naming, s.bufferSize)
		if s.exec.CompareAndSwapAcqRel(cur, e) {
			e.start()
			return
		}
	}
}

// Shutdown stops the goroutine. Pending and periodic tasks are cancelled.
func (s *TimerScheduler) Shutdown() {
	s.exec.LoadAcquire().shutdown()
}

// Now returns the current time.
func (s *TimerScheduler) Now() time.Time {
	return time.Now()
}

// Schedule queues task for immediate execution.
func (s *TimerScheduler) Schedule(task Task) (Disposable, error) {
	t := newTask(task, nil)
	if err := s.exec.LoadAcquire().submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ScheduleDelayed runs task once after delay.
func (s *TimerScheduler) ScheduleDelayed(task Task, delay time.Duration) (Disposable, error) {
	return scheduleDelayed(s.exec.LoadAcquire(), nil, task, delay)
}

// SchedulePeriodically runs task after initialDelay, then every period.
func (s *TimerScheduler) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Disposable, error) {
	return schedulePeriodically(s.exec.LoadAcquire(), nil, task, initialDelay, period)
}

// CreateWorker returns a TimedWorker as a Worker.
func (s *TimerScheduler) CreateWorker() Worker {
	return s.CreateTimedWorker()
}

// CreateTimedWorker returns a TimedWorker. Disposing it cancels its
// delayed and periodic tasks.
func (s *TimerScheduler) CreateTimedWorker() TimedWorker {
	return &timedWorker{worker: worker{exec: s.exec.LoadAcquire()}}
}

type timedWorker struct {
	worker
}

func (w *timedWorker) ScheduleDelayed(task Task, delay time.Duration) (Disposable, error) {
	if w.IsDisposed() {
		return nil, ErrRejected
	}
	return scheduleDelayed(w.exec, &w.worker, task, delay)
}

func (w *timedWorker) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Disposable, error) {
	if w.IsDisposed() {
		return nil, ErrRejected
	}
	return schedulePeriodically(w.exec, &w.worker, task, initialDelay, period)
}

// timedTask queues its scheduledTask on exec each time its timer fires.
type timedTask struct {
	scheduledTask
	exec   *executor
	user   Task
	period time.Duration
	next   atomix.Int64 // unix nanoseconds of the next period
	timer  atomix.Pointer[time.Timer]
}

func scheduleDelayed(exec *executor, owner *worker, task Task, delay time.Duration) (Disposable, error) {
	if exec.isShutdown() {
		return nil, ErrRejected
	}
	t := &timedTask{exec: exec}
	t.fn = task
	t.owner = owner
	t.onDispose = t.stop
	t.arm(delay)
	return t, nil
}

func schedulePeriodically(exec *executor, owner *worker, task Task, initialDelay, period time.Duration) (Disposable, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if exec.isShutdown() {
		return nil, ErrRejected
	}
	t := &timedTask{exec: exec, user: task, period: period}
	t.fn = t.tick
	t.owner = owner
	t.periodic = true
	t.onDispose = t.stop
	t.next.StoreRelease(time.Now().Add(initialDelay).UnixNano())
	t.arm(initialDelay)
	return t, nil
}

func (t *timedTask) arm(d time.Duration) {
	t.timer.StoreRelease(time.AfterFunc(d, t.fire))
	// Dispose may have loaded the previous timer.
	if t.isDisposed() {
		t.stop()
	}
}

func (t *timedTask) fire() {
	if t.isDisposed() || t.exec.isShutdown() {
		return
	}
	err := t.exec.submit(&t.scheduledTask)
	if err == nil {
		return
	}
	if t.periodic && IsWouldBlock(err) {
		// Skip this period; the schedule continues with the next one.
		t.exec.logger.Debug().
			Str("worker", t.exec.name).
			Log("period skipped")
		t.rearm()
		return
	}
	t.exec.logger.Warning().
		Str("worker", t.exec.name).
		Err(err).
		Log("timed task dropped")
}

// tick runs one period and arms the timer for the next, at a fixed rate.
func (t *timedTask) tick() {
	t.user()
	if t.isDisposed() || t.exec.isShutdown() {
		return
	}
	t.rearm()
}

// rearm advances the schedule by one period and arms the timer for it.
func (t *timedTask) rearm() {
	next := time.Unix(0, t.next.AddAcqRel(int64(t.period)))
	t.arm(max(time.Until(next), 0))
}

func (t *timedTask) stop() {
	if tm := t.timer.LoadAcquire(); tm != nil {
		tm.Stop()
	}
}
