// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/flow/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerScheduleDelayed(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer"))
	defer s.Shutdown()

	const delay = 20 * time.Millisecond
	start := s.Now()
	fired := make(chan time.Time, 1)
	_, err := s.ScheduleDelayed(func() { fired <- time.Now() }, delay)
	require.NoError(t, err)

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), delay)
	case <-time.After(waitTimeout):
		t.Fatal("delayed task did not run")
	}
}

func TestTimerDisposeBeforeFire(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-dispose"))
	defer s.Shutdown()

	var ran atomix.Int32
	d, err := s.ScheduleDelayed(func() { ran.Store(1) }, 20*time.Millisecond)
	require.NoError(t, err)
	d.Dispose()

	time.Sleep(60 * time.Millisecond)
	runAndWait(t, s.Schedule)
	assert.Zero(t, ran.Load())
}

func TestTimerSchedulePeriodically(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-periodic"))
	defer s.Shutdown()

	const period = 5 * time.Millisecond
	var runs atomix.Int32
	d, err := s.SchedulePeriodically(func() { runs.Add(1) }, 0, period)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, waitTimeout, waitTick)

	d.Dispose()
	runAndWait(t, s.Schedule)
	stopped := runs.Load()
	time.Sleep(5 * period)
	runAndWait(t, s.Schedule)
	assert.Equal(t, stopped, runs.Load(), "periodic task ran after dispose")
}

func TestTimerPeriodicSurvivesFullQueue(t *testing.T) {
	reg := sched.MustNewRegistry(sched.WithBufferSize(2))
	defer reg.Close()
	s := reg.Timer()

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := s.Schedule(func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	for i := 0; ; i++ {
		require.Less(t, i, 64, "queue never filled")
		if _, err = s.Schedule(func() {}); err != nil {
			break
		}
	}
	require.True(t, sched.IsWouldBlock(err))

	var runs atomix.Int32
	d, err := s.SchedulePeriodically(func() { runs.Add(1) }, 0, time.Millisecond)
	require.NoError(t, err)
	defer d.Dispose()

	// Every firing meets a full queue until the blocker returns.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, runs.Load())
	close(release)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, waitTimeout, waitTick)
}

func TestTimerPeriodicPanicEndsSchedule(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-panic"))
	defer s.Shutdown()

	var runs atomix.Int32
	_, err := s.SchedulePeriodically(func() {
		runs.Add(1)
		panic("tick")
	}, 0, time.Millisecond)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitTimeout, waitTick)

	time.Sleep(20 * time.Millisecond)
	runAndWait(t, s.Schedule)
	assert.Equal(t, int32(1), runs.Load())
}

func TestTimedWorkerDisposeCancelsTimers(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-worker"))
	defer s.Shutdown()

	w := s.CreateTimedWorker()
	var periodic, delayed atomix.Int32
	_, err := w.SchedulePeriodically(func() { periodic.Add(1) }, 0, 2*time.Millisecond)
	require.NoError(t, err)
	_, err = w.ScheduleDelayed(func() { delayed.Store(1) }, time.Hour)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return periodic.Load() >= 2 }, waitTimeout, waitTick)

	w.Dispose()
	runAndWait(t, s.Schedule)
	stopped := periodic.Load()
	time.Sleep(20 * time.Millisecond)
	runAndWait(t, s.Schedule)
	assert.Equal(t, stopped, periodic.Load())
	assert.Zero(t, delayed.Load())

	_, err = w.ScheduleDelayed(func() {}, 0)
	assert.ErrorIs(t, err, sched.ErrRejected)
	_, err = w.SchedulePeriodically(func() {}, 0, time.Millisecond)
	assert.ErrorIs(t, err, sched.ErrRejected)
}

func TestTimerInvalidPeriod(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-period"))
	defer s.Shutdown()

	_, err := s.SchedulePeriodically(func() {}, 0, 0)
	assert.ErrorIs(t, err, sched.ErrInvalidPeriod)
	_, err = s.CreateTimedWorker().SchedulePeriodically(func() {}, 0, -time.Second)
	assert.ErrorIs(t, err, sched.ErrInvalidPeriod)
}

func TestTimerShutdownAndRestart(t *testing.T) {
	s := sched.NewTimer(sched.NewThreadNaming("timer-restart"))

	var ran atomix.Int32
	_, err := s.ScheduleDelayed(func() { ran.Store(1) }, 10*time.Millisecond)
	require.NoError(t, err)
	s.Shutdown()

	_, err = s.ScheduleDelayed(func() {}, 0)
	assert.ErrorIs(t, err, sched.ErrRejected)
	_, err = s.Schedule(func() {})
	assert.ErrorIs(t, err, sched.ErrRejected)
	assert.True(t, s.CreateWorker().IsDisposed())

	s.Start()
	defer s.Shutdown()
	time.Sleep(30 * time.Millisecond)
	runAndWait(t, s.Schedule)
	assert.Zero(t, ran.Load(), "task scheduled before shutdown ran")
}

func TestImmediate(t *testing.T) {
	s := sched.Immediate()
	s.Start()
	defer s.Shutdown()

	ran := false
	d, err := s.Schedule(func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran, "task did not run before Schedule returned")
	assert.Equal(t, sched.Disposed, d)
	d.Dispose()

	w := s.CreateWorker()
	var order []int
	for i := range 3 {
		_, err := w.Schedule(func() { order = append(order, i) })
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 2}, order)

	w.Dispose()
	assert.True(t, w.IsDisposed())
	_, err = w.Schedule(func() {})
	assert.ErrorIs(t, err, sched.ErrRejected)
}
