// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "code.hybscloud.com/atomix"

// PoolScheduler runs tasks on a fixed set of goroutines.
//
// Schedule and CreateWorker pick a goroutine round-robin. Every task queue
// is bounded by the buffer size: Schedule returns ErrWouldBlock instead of
// blocking when the picked queue is full.
//
// The computation, parallel and single roles are PoolSchedulers that
// differ only in size.
type PoolScheduler struct {
	naming      *ThreadNaming
	parallelism int
	bufferSize  int
	execs       atomix.Pointer[[]*executor]

	_    pad
	next atomix.Uint64
	_    pad
}

// NewComputation creates a PoolScheduler for short, non-blocking tasks.
// It is the default ComputationFactory.
func NewComputation(parallelism, bufferSize int, naming *ThreadNaming) Scheduler {
	return newPool(parallelism, bufferSize, naming)
}

// NewParallel creates a PoolScheduler with parallelism goroutines.
//
// Panics if parallelism < 1.
func NewParallel(parallelism int, naming *ThreadNaming) *PoolScheduler {
	return newPool(parallelism, DefaultBufferSize, naming)
}

// NewSingle creates a PoolScheduler with exactly one goroutine, so every
// task runs in submission order.
func NewSingle(naming *ThreadNaming) *PoolScheduler {
	return newPool(1, DefaultBufferSize, naming)
}

func newPool(parallelism, bufferSize int, naming *ThreadNaming) *PoolScheduler {
	if parallelism < 1 {
		panic("sched: parallelism must be >= 1")
	}
	p := &PoolScheduler{
		naming:      naming,
		parallelism: parallelism,
		bufferSize:  bufferSize,
	}
	p.Start()
	return p
}

// Parallelism returns the number of goroutines.
func (p *PoolScheduler) Parallelism() int {
	return p.parallelism
}

// Start starts a fresh set of goroutines if the scheduler is shut down.
func (p *PoolScheduler) Start() {
	for {
		cur := p.execs.LoadAcquire()
		if cur != nil && !(*cur)[0].isShutdown() {
			return
		}
		fresh := make([]*executor, p.parallelism)
		for i := range fresh {
			fresh[i] = newExecutor(p.naming, p.bufferSize)
		}
		if p.execs.CompareAndSwapAcqRel(cur, &fresh) {
			for _, e := range fresh {
				e.start()
			}
			p.naming.Logger().Debug().
				Str("scheduler", p.naming.Prefix()).
				Int("parallelism", p.parallelism).
				Log("scheduler started")
			return
		}
	}
}

// Shutdown stops every goroutine. Pending tasks are dropped and Workers
// report IsDisposed.
func (p *PoolScheduler) Shutdown() {
	cur := p.execs.LoadAcquire()
	if cur == nil {
		return
	}
	for _, e := range *cur {
		e.shutdown()
	}
}

func (p *PoolScheduler) pick() *executor {
	execs := *p.execs.LoadAcquire()
	i := p.next.AddAcqRel(1) - 1
	return execs[i%uint64(len(execs))]
}

// Schedule runs task on the next goroutine.
func (p *PoolScheduler) Schedule(task Task) (Disposable, error) {
	t := newTask(task, nil)
	if err := p.pick().submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateWorker returns a Worker bound to the next goroutine.
func (p *PoolScheduler) CreateWorker() Worker {
	return &worker{exec: p.pick()}
}

// worker serializes its tasks on one executor.
type worker struct {
	exec      *executor
	onDispose func()

	_        pad
	disposed atomix.Int32
	_        pad
}

func (w *worker) Schedule(task Task) (Disposable, error) {
	if w.IsDisposed() {
		return nil, ErrRejected
	}
	t := newTask(task, w)
	if err := w.exec.submit(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (w *worker) Dispose() {
	if w.disposed.CompareAndSwapAcqRel(0, 1) && w.onDispose != nil {
		w.onDispose()
	}
}

func (w *worker) IsDisposed() bool {
	return w.disposed.LoadAcquire() != 0 || w.exec.isShutdown()
}
