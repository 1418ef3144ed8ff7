// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultBufferSize is the per-goroutine task queue capacity.
	DefaultBufferSize = 1024

	// DefaultElasticTTL is how long an idle elastic goroutine is kept.
	DefaultElasticTTL = 60 * time.Second
)

// ComputationFactory builds the scheduler for the computation role.
//
// naming carries the role's goroutine names and the registry logger.
type ComputationFactory func(parallelism, bufferSize int, naming *ThreadNaming) Scheduler

// Option configures a Registry.
type Option func(*config)

type config struct {
	parallelism  int
	bufferSize   int
	elasticTTL   time.Duration
	logger       *logiface.Logger[logiface.Event]
	factory      ComputationFactory
	resolver     func() (ComputationFactory, error)
	replacements int
	automaxprocs bool
}

func defaultConfig() config {
	return config{
		bufferSize: DefaultBufferSize,
		elasticTTL: DefaultElasticTTL,
		factory:    NewComputation,
	}
}

// WithParallelism sets the size of the parallel role. The computation
// role gets (n+1)/2. Defaults to GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// WithBufferSize sets the task queue capacity of every goroutine.
// Rounds up to the next power of 2; values below 2 become 2.
func WithBufferSize(n int) Option {
	return func(c *config) {
		c.bufferSize = max(n, 2)
	}
}

// WithElasticTTL sets the idle time-to-live of the elastic role.
func WithElasticTTL(d time.Duration) Option {
	return func(c *config) {
		c.elasticTTL = d
	}
}

// WithLogger sets the logger for the registry and its schedulers.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithComputationFactory replaces the computation scheduler constructor.
// The constructor may be replaced once per registry, by this option or by
// WithComputationResolver.
func WithComputationFactory(f ComputationFactory) Option {
	return func(c *config) {
		c.replacements++
		c.factory = f
	}
}

// WithComputationResolver replaces the computation scheduler constructor
// with the one returned by resolve, called once by NewRegistry. A resolve
// error fails NewRegistry.
func WithComputationResolver(resolve func() (ComputationFactory, error)) Option {
	return func(c *config) {
		c.replacements++
		c.resolver = resolve
	}
}

// WithAutomaxprocs sets GOMAXPROCS from the container CPU quota before
// sizing the pools. Registry.Close restores the previous value.
func WithAutomaxprocs() Option {
	return func(c *config) {
		c.automaxprocs = true
	}
}
