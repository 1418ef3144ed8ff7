// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"strconv"

	"code.hybscloud.com/atomix"
	"github.com/joeycumines/logiface"
)

// ThreadNaming names the goroutines a Scheduler starts: prefix-1,
// prefix-2, and so on.
//
// Each name is attached to its goroutine as the pprof label
// "flow.worker", so CPU and goroutine profiles group work by worker.
// Panics recovered from tasks are logged through the ThreadNaming's logger.
type ThreadNaming struct {
	prefix string
	logger *logiface.Logger[logiface.Event]

	_       pad
	counter atomix.Int64
	_       pad
}

// NewThreadNaming creates a ThreadNaming with the given prefix.
func NewThreadNaming(prefix string) *ThreadNaming {
	return &ThreadNaming{prefix: prefix}
}

// WithLogger sets the logger handed to workers and returns n.
func (n *ThreadNaming) WithLogger(l *logiface.Logger[logiface.Event]) *ThreadNaming {
	n.logger = l
	return n
}

// Prefix returns the name prefix.
func (n *ThreadNaming) Prefix() string {
	return n.prefix
}

// Next returns the next goroutine name.
func (n *ThreadNaming) Next() string {
	return n.prefix + "-" + strconv.FormatInt(n.counter.AddAcqRel(1), 10)
}

// Logger returns the logger handed to workers. It may be nil.
func (n *ThreadNaming) Logger() *logiface.Logger[logiface.Event] {
	return n.logger
}
