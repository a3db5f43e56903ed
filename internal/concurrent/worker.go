// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package concurrent

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lindb/jdbcsticky/pkg/logger"
)

// Worker is a single-goroutine execution context locked to one OS thread
// for its entire lifetime. It is exclusively owned by a Pool; callers only
// ever see one through Pool.Acquire/Pool.Release.
type Worker struct {
	id          uint64
	jobs        chan func()
	stopCh      chan struct{}
	idleTimeout time.Duration
	idled       atomic.Bool

	stopOnce sync.Once
	log      *logger.Logger
}

func newWorker(id uint64, idleTimeout time.Duration, log *logger.Logger) *Worker {
	w := &Worker{
		id:          id,
		jobs:        make(chan func()),
		stopCh:      make(chan struct{}),
		idleTimeout: idleTimeout,
		log:         log,
	}
	go w.run()
	return w
}

// ID returns the worker's stable identity; it survives idle-timeout
// respawns (the pool hands out a fresh goroutine under the same id).
func (w *Worker) ID() uint64 { return w.id }

// idle reports whether the worker's goroutine has already exited because it
// sat without a job for longer than idleTimeout.
func (w *Worker) idle() bool { return w.idled.Load() }

// Do runs fn on this worker's OS thread and blocks until it returns. The
// caller must hold this worker (acquired from a Pool and not yet released).
// A panic inside fn is recovered on the worker's goroutine (so the worker
// itself survives) and re-raised here on the calling goroutine once Do
// returns, so callers see the panic exactly as if fn had run inline.
func (w *Worker) Do(fn func()) {
	done := make(chan struct{})
	var recovered any
	w.jobs <- func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				recovered = r
			}
		}()
		fn()
	}
	<-done
	if recovered != nil {
		panic(recovered)
	}
}

// stop terminates the worker's goroutine. Idempotent: calling it on a
// worker that already exited from idleness is a no-op.
func (w *Worker) stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

func (w *Worker) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timer := time.NewTimer(w.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case job := <-w.jobs:
			if !timer.Stop() {
				<-timer.C
			}
			job()
			timer.Reset(w.idleTimeout)
		case <-w.stopCh:
			return
		case <-timer.C:
			w.idled.Store(true)
			w.log.Debug("worker exiting after idle timeout",
				logger.Uint64("workerID", w.id), logger.Any("idleTimeout", w.idleTimeout))
			return
		}
	}
}
