// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"context"
	"runtime/pprof"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"github.com/joeycumines/logiface"
)

// Executor states.
const (
	execIdle int32 = iota
	execRunning
	execShutdown
)

// executor runs tasks on one goroutine, in the order they were queued.
//
// Producers enqueue into a bounded CAS-based MPSC queue and signal wake;
// the goroutine parks on wake only after the queue reports empty.
type executor struct {
	name   string
	queue  lfq.Queue[*scheduledTask]
	wake   chan struct{}
	quit   chan struct{}
	logger *logiface.Logger[logiface.Event]

	_     pad
	state atomix.Int32
	_     pad
}

func newExecutor(naming *ThreadNaming, bufferSize int) *executor {
	return &executor{
		name:   naming.Next(),
		queue:  lfq.Build[*scheduledTask](lfq.New(bufferSize).SingleConsumer().Compact()),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		logger: naming.Logger(),
	}
}

func (e *executor) start() {
	if !e.state.CompareAndSwapAcqRel(execIdle, execRunning) {
		return
	}
	labels := pprof.Labels("flow.worker", e.name)
	go pprof.Do(context.Background(), labels, func(context.Context) {
		e.loop()
	})
}

// submit queues t (non-blocking).
// Returns ErrRejected after shutdown, ErrWouldBlock if the queue is full.
func (e *executor) submit(t *scheduledTask) error {
	if e.isShutdown() {
		return ErrRejected
	}
	if err := e.queue.Enqueue(&t); err != nil {
		return err
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

func (e *executor) shutdown() {
	for {
		s := e.state.LoadAcquire()
		if s == execShutdown {
			return
		}
		if e.state.CompareAndSwapAcqRel(s, execShutdown) {
			close(e.quit)
			return
		}
	}
}

func (e *executor) isShutdown() bool {
	return e.state.LoadAcquire() == execShutdown
}

func (e *executor) loop() {
	for !e.isShutdown() {
		t, err := e.queue.Dequeue()
		if err == nil {
			e.run(t)
			continue
		}
		select {
		case <-e.wake:
		case <-e.quit:
		}
	}
	e.logger.Debug().Str("worker", e.name).Log("worker stopped")
}

func (e *executor) run(t *scheduledTask) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Err().
				Str("worker", e.name).
				Interface("panic", p).
				Log("task panicked")
		}
	}()
	t.run()
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
