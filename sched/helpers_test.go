// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/flow/sched"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = time.Millisecond
)

// logBuffer collects log output from concurrent goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(level logiface.Level) (*logiface.Logger[logiface.Event], *logBuffer) {
	buf := &logBuffer{}
	l := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(level),
	).Logger()
	return l, buf
}

// recorded is a mutex-guarded list of ints appended by tasks.
type recorded struct {
	mu     sync.Mutex
	values []int
}

func (r *recorded) add(v int) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorded) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func (r *recorded) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// runAndWait schedules a marker task on s and waits for it to run. On a
// single-goroutine scheduler this waits for every earlier task.
func runAndWait(t *testing.T, schedule func(sched.Task) (sched.Disposable, error)) {
	t.Helper()
	done := make(chan struct{})
	_, err := schedule(func() { close(done) })
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("marker task did not run")
	}
}
