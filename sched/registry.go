// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/joeycumines/logiface"
	"go.uber.org/automaxprocs/maxprocs"
)

// Scheduler roles cached by a Registry.
const (
	RoleComputation = "computation"
	RoleParallel    = "parallel"
	RoleSingle      = "single"
	RoleElastic     = "elastic"
	RoleTimer       = "timer"
)

// Registry lazily creates one scheduler per role and shares it with every
// caller until ShutdownNow.
//
// Example:
//
//	reg, err := sched.NewRegistry(sched.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
//
//	reg.Computation().Schedule(task)
type Registry struct {
	cfg     config
	cache   sync.Map // role → *CachedScheduler
	undo    func()
	logger  *logiface.Logger[logiface.Event]
	namings sync.Map // role → *ThreadNaming

	_      pad
	closed atomix.Int32
	_      pad
}

// NewRegistry creates a Registry.
//
// Returns ErrComputationReplaced if the computation factory is replaced
// more than once, or the error of a failed computation resolver or
// automaxprocs adjustment.
func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.replacements > 1 {
		return nil, ErrComputationReplaced
	}
	if cfg.resolver != nil {
		f, err := cfg.resolver()
		if err != nil {
			return nil, fmt.Errorf("sched: resolve computation factory: %w", err)
		}
		if f == nil {
			return nil, errors.New("sched: computation resolver returned nil factory")
		}
		cfg.factory = f
	}
	if cfg.elasticTTL <= 0 {
		return nil, fmt.Errorf("sched: elastic ttl must be > 0 (got %v)", cfg.elasticTTL)
	}

	r := &Registry{cfg: cfg, logger: cfg.logger}
	if cfg.automaxprocs {
		undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			r.logger.Info().Logf(format, args...)
		}))
		if err != nil {
			return nil, fmt.Errorf("sched: automaxprocs: %w", err)
		}
		r.undo = undo
	}
	if r.cfg.parallelism <= 0 {
		r.cfg.parallelism = runtime.GOMAXPROCS(0)
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error.
func MustNewRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Parallelism returns the size of the parallel role.
func (r *Registry) Parallelism() int {
	return r.cfg.parallelism
}

// naming returns the ThreadNaming shared by every instance of role, so
// names keep counting up across ShutdownNow.
func (r *Registry) naming(role string) *ThreadNaming {
	if n, ok := r.namings.Load(role); ok {
		return n.(*ThreadNaming)
	}
	n, _ := r.namings.LoadOrStore(role, NewThreadNaming(role).WithLogger(r.logger))
	return n.(*ThreadNaming)
}

// Computation returns the scheduler for short, non-blocking tasks, sized
// to half the parallelism, rounded up.
func (r *Registry) Computation() *CachedScheduler {
	return r.cached(RoleComputation, func() Scheduler {
		return r.cfg.factory((r.cfg.parallelism+1)/2, r.cfg.bufferSize, r.naming(RoleComputation))
	})
}

// Parallel returns the scheduler sized to the full parallelism.
func (r *Registry) Parallel() *CachedScheduler {
	return r.cached(RoleParallel, func() Scheduler {
		return newPool(r.cfg.parallelism, r.cfg.bufferSize, r.naming(RoleParallel))
	})
}

// Single returns the scheduler with one goroutine.
func (r *Registry) Single() *CachedScheduler {
	return r.cached(RoleSingle, func() Scheduler {
		return newPool(1, r.cfg.bufferSize, r.naming(RoleSingle))
	})
}

// Elastic returns the scheduler that grows on demand and evicts idle
// goroutines after the elastic TTL.
func (r *Registry) Elastic() *CachedScheduler {
	return r.cached(RoleElastic, func() Scheduler {
		return newElastic(r.cfg.elasticTTL, r.cfg.bufferSize, r.naming(RoleElastic))
	})
}

// Timer returns the single-goroutine scheduler with delayed and periodic
// scheduling.
func (r *Registry) Timer() *CachedTimedScheduler {
	return r.cached(RoleTimer, func() Scheduler {
		return newTimer(r.cfg.bufferSize, r.naming(RoleTimer))
	}).timed
}

// Immediate returns the scheduler that runs tasks on the caller's
// goroutine. It holds no resources and is not cached.
func (r *Registry) Immediate() Scheduler {
	return Immediate()
}

// Lookup returns the cached scheduler for role, if one exists.
func (r *Registry) Lookup(role string) (*CachedScheduler, bool) {
	v, ok := r.cache.Load(role)
	if !ok {
		return nil, false
	}
	return v.(*CachedScheduler), true
}

// Roles returns the roles currently cached, sorted.
func (r *Registry) Roles() []string {
	var roles []string
	r.cache.Range(func(k, _ any) bool {
		roles = append(roles, k.(string))
		return true
	})
	slices.Sort(roles)
	return roles
}

func (r *Registry) cached(role string, create func() Scheduler) *CachedScheduler {
	if v, ok := r.cache.Load(role); ok {
		return v.(*CachedScheduler)
	}
	c := newCachedScheduler(role, create())
	v, loaded := r.cache.LoadOrStore(role, c)
	if loaded {
		r.logger.Debug().Str("role", role).Log("discarding redundant scheduler")
		c.shutdownNow()
		return v.(*CachedScheduler)
	}
	r.logger.Debug().Str("role", role).Log("scheduler created")
	return c
}

// ShutdownNow removes and shuts down every cached scheduler. Entries added
// concurrently are removed too: the cache is empty when it returns.
// Later calls for a role create a fresh scheduler.
func (r *Registry) ShutdownNow() {
	sw := spin.Wait{}
	for round := 1; ; round++ {
		var n int
		r.cache.Range(func(k, v any) bool {
			if r.cache.CompareAndDelete(k, v) {
				v.(*CachedScheduler).shutdownNow()
				n++
			}
			return true
		})
		r.logger.Debug().Int("round", round).Int("schedulers", n).Log("shutdown")
		if r.empty() {
			return
		}
		sw.Once()
	}
}

func (r *Registry) empty() bool {
	empty := true
	r.cache.Range(func(any, any) bool {
		empty = false
		return false
	})
	return empty
}

// Close shuts down every cached scheduler and restores GOMAXPROCS if
// WithAutomaxprocs changed it. Close is idempotent.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwapAcqRel(0, 1) {
		return nil
	}
	r.ShutdownNow()
	if r.undo != nil {
		r.undo()
	}
	return nil
}

// CachedScheduler is the shared handle for a role.
//
// Its Shutdown does nothing, so callers holding the handle cannot stop a
// scheduler other callers use. Only Registry.ShutdownNow stops it.
type CachedScheduler struct {
	role   string
	cached Scheduler
	timed  *CachedTimedScheduler
}

func newCachedScheduler(role string, s Scheduler) *CachedScheduler {
	c := &CachedScheduler{role: role, cached: s}
	if ts, ok := s.(TimedScheduler); ok {
		c.timed = &CachedTimedScheduler{CachedScheduler: c, scheduler: ts}
	}
	return c
}

// Role returns the role name.
func (c *CachedScheduler) Role() string {
	return c.role
}

// Unwrap returns the underlying scheduler.
func (c *CachedScheduler) Unwrap() Scheduler {
	return c.cached
}

func (c *CachedScheduler) Schedule(task Task) (Disposable, error) {
	return c.cached.Schedule(task)
}

func (c *CachedScheduler) CreateWorker() Worker {
	return c.cached.CreateWorker()
}

func (c *CachedScheduler) Start() {
	c.cached.Start()
}

// Shutdown does nothing. See Registry.ShutdownNow.
func (c *CachedScheduler) Shutdown() {}

func (c *CachedScheduler) shutdownNow() {
	c.cached.Shutdown()
}

// CachedTimedScheduler is the shared handle for the timer role.
type CachedTimedScheduler struct {
	*CachedScheduler
	scheduler TimedScheduler
}

func (c *CachedTimedScheduler) ScheduleDelayed(task Task, delay time.Duration) (Disposable, error) {
	return c.scheduler.ScheduleDelayed(task, delay)
}

func (c *CachedTimedScheduler) SchedulePeriodically(task Task, initialDelay, period time.Duration) (Disposable, error) {
	return c.scheduler.SchedulePeriodically(task, initialDelay, period)
}

func (c *CachedTimedScheduler) CreateTimedWorker() TimedWorker {
	return c.scheduler.CreateTimedWorker()
}

func (c *CachedTimedScheduler) Now() time.Time {
	return c.scheduler.Now()
}
