// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// ElasticScheduler creates goroutines on demand and caches released ones
// for reuse. A cached goroutine idle for longer than the TTL is stopped.
//
// Unlike PoolScheduler, an ElasticScheduler cannot be restarted: after
// Shutdown, Start does nothing and Schedule returns ErrRejected.
type ElasticScheduler struct {
	naming     *ThreadNaming
	ttl        time.Duration
	bufferSize int
	idle       lfq.Queue[*elasticEntry]
	all        sync.Map // *executor → struct{}
	stop       chan struct{}

	_         pad
	shut      atomix.Int32
	_         padShort
	idleCount atomix.Int64
	_         padShort
}

type elasticEntry struct {
	exec   *executor
	expiry time.Time
}

// NewElastic creates an ElasticScheduler whose cached goroutines live for
// ttl after their last Worker is disposed.
//
// Panics if ttl <= 0.
func NewElastic(ttl time.Duration, naming *ThreadNaming) *ElasticScheduler {
	return newElastic(ttl, DefaultBufferSize, naming)
}

func newElastic(ttl time.Duration, bufferSize int, naming *ThreadNaming) *ElasticScheduler {
	if ttl <= 0 {
		panic("sched: elastic ttl must be > 0")
	}
	s := &ElasticScheduler{
		naming:     naming,
		ttl:        ttl,
		bufferSize: bufferSize,
		idle:       lfq.Build[*elasticEntry](lfq.New(bufferSize).Compact()),
		stop:       make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// TTL returns the idle time-to-live.
func (s *ElasticScheduler) TTL() time.Duration {
	return s.ttl
}

// Idle returns the number of cached goroutines awaiting reuse.
func (s *ElasticScheduler) Idle() int {
	return int(s.idleCount.LoadAcquire())
}

// Start does nothing: an ElasticScheduler is started on creation and is
// not restartable.
func (s *ElasticScheduler) Start() {}

// Shutdown stops every goroutine, cached or in use.
func (s *ElasticScheduler) Shutdown() {
	if !s.shut.CompareAndSwapAcqRel(0, 1) {
		return
	}
	close(s.stop)
	s.all.Range(func(k, _ any) bool {
		k.(*executor).shutdown()
		s.all.Delete(k)
		return true
	})
	for {
		if _, err := s.idle.Dequeue(); err != nil {
			break
		}
		s.idleCount.AddAcqRel(-1)
	}
}

func (s *ElasticScheduler) isShutdown() bool {
	return s.shut.LoadAcquire() != 0
}

// Schedule runs task on a cached or new goroutine, which is released when
// task returns. Disposing the result before task starts cancels it.
func (s *ElasticScheduler) Schedule(task Task) (Disposable, error) {
	w := s.CreateWorker()
	if _, err := w.Schedule(func() {
		defer w.Dispose()
		task()
	}); err != nil {
		w.Dispose()
		return nil, err
	}
	return w, nil
}

// CreateWorker returns a Worker on a cached goroutine, starting a new one
// if none is idle. Disposing the Worker returns the goroutine to the cache.
func (s *ElasticScheduler) CreateWorker() Worker {
	if s.isShutdown() {
		return rejectedWorker()
	}
	e := s.acquire()
	w := &worker{exec: e}
	w.onDispose = func() { s.release(e) }
	return w
}

func (s *ElasticScheduler) acquire() *executor {
	for {
		entry, err := s.idle.Dequeue()
		if err != nil {
			break
		}
		s.idleCount.AddAcqRel(-1)
		if !entry.exec.isShutdown() {
			return entry.exec
		}
	}
	e := newExecutor(s.naming, s.bufferSize)
	s.all.Store(e, struct{}{})
	e.start()
	// Shutdown may have ranged over all before the Store above.
	if s.isShutdown() {
		e.shutdown()
		s.all.Delete(e)
	}
	return e
}

func (s *ElasticScheduler) release(e *executor) {
	if s.isShutdown() || e.isShutdown() {
		e.shutdown()
		s.all.Delete(e)
		return
	}
	entry := &elasticEntry{exec: e, expiry: time.Now().Add(s.ttl)}
	if err := s.idle.Enqueue(&entry); err != nil {
		e.shutdown()
		s.all.Delete(e)
		return
	}
	s.idleCount.AddAcqRel(1)
}

func (s *ElasticScheduler) evictLoop() {
	t := time.NewTicker(s.ttl)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			s.evict(now)
		case <-s.stop:
			return
		}
	}
}

// evict stops cached goroutines whose TTL expired by now.
func (s *ElasticScheduler) evict(now time.Time) {
	n := s.Idle()
	for range n {
		entry, err := s.idle.Dequeue()
		if err != nil {
			break
		}
		s.idleCount.AddAcqRel(-1)
		if entry.expiry.After(now) && !entry.exec.isShutdown() {
			if s.idle.Enqueue(&entry) == nil {
				s.idleCount.AddAcqRel(1)
				continue
			}
		}
		entry.exec.shutdown()
		s.all.Delete(entry.exec)
		s.naming.Logger().Debug().
			Str("worker", entry.exec.name).
			Dur("idle", now.Sub(entry.expiry)+s.ttl).
			Log("idle worker evicted")
	}
}

// rejectedWorker returns a Worker that is already disposed.
func rejectedWorker() Worker {
	e := &executor{}
	e.state.StoreRelease(execShutdown)
	w := &worker{exec: e}
	w.disposed.StoreRelease(1)
	return w
}
