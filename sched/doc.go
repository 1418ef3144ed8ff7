// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched provides the execution contexts flow operators run on.
//
// A [Scheduler] decides where a [Task] runs. A [Worker] is a sequential
// slice of a Scheduler: its tasks run one at a time, in order.
//
// # Roles
//
//	Role         Scheduler         Goroutines
//	computation  PoolScheduler     (parallelism+1)/2
//	parallel     PoolScheduler     parallelism
//	single       PoolScheduler     1
//	elastic      ElasticScheduler  on demand, idle ones evicted after a TTL
//	timer        TimerScheduler    1, with delayed and periodic tasks
//	immediate    Immediate()       none: runs on the caller
//
// Every goroutine is named by a [ThreadNaming] (role-1, role-2, ...) and
// carries the name as the pprof label "flow.worker".
//
// # Registry
//
// A [Registry] creates one scheduler per role on first use and hands the
// same [CachedScheduler] to every later caller:
//
//	reg := sched.MustNewRegistry(
//	    sched.WithParallelism(8),
//	    sched.WithLogger(logger),
//	)
//	defer reg.Close()
//
//	w := reg.Single().CreateWorker()
//	defer w.Dispose()
//	w.Schedule(func() { ... })
//
// Concurrent first callers race to install their scheduler; the losers
// shut theirs down. CachedScheduler.Shutdown does nothing, so only
// [Registry.ShutdownNow] (or Close) stops shared schedulers. The next call
// for a role after ShutdownNow creates a fresh scheduler.
//
// The computation role may be replaced once, with [WithComputationFactory]
// or [WithComputationResolver].
//
// # Backpressure
//
// Task queues are bounded lock-free queues from code.hybscloud.com/lfq.
// Schedule never blocks: a full queue returns [ErrWouldBlock].
//
//	backoff := iox.Backoff{}
//	for {
//	    _, err := w.Schedule(task)
//	    if !sched.IsWouldBlock(err) {
//	        break
//	    }
//	    backoff.Wait()
//	}
//
// # Panics
//
// A panicking task is recovered and logged at error level; the goroutine
// keeps serving later tasks. A panicking periodic task is not rescheduled.
package sched
