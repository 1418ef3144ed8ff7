// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "code.hybscloud.com/atomix"

// Immediate returns the Scheduler that runs every task on the calling
// goroutine before Schedule returns. Start and Shutdown do nothing.
func Immediate() Scheduler {
	return immediate
}

var immediate Scheduler = immediateScheduler{}

type immediateScheduler struct{}

func (immediateScheduler) Schedule(task Task) (Disposable, error) {
	task()
	return Disposed, nil
}

func (immediateScheduler) CreateWorker() Worker {
	return &immediateWorker{}
}

func (immediateScheduler) Start()    {}
func (immediateScheduler) Shutdown() {}

type immediateWorker struct {
	disposed atomix.Int32
}

func (w *immediateWorker) Schedule(task Task) (Disposable, error) {
	if w.IsDisposed() {
		return nil, ErrRejected
	}
	task()
	return Disposed, nil
}

func (w *immediateWorker) Dispose() {
	w.disposed.StoreRelease(1)
}

func (w *immediateWorker) IsDisposed() bool {
	return w.disposed.LoadAcquire() != 0
}
