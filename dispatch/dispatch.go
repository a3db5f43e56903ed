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

// Package dispatch implements thread-sticky scheduling: once a goroutine
// tree is pinned to a worker through Dispatcher.Run, every nested Run call
// from the same call chain reuses that worker instead of touching the pool
// again. This is what lets a blocking SQL driver's BEGIN/.../COMMIT sequence
// run on a single OS thread even when the caller suspends between calls.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lindb/jdbcsticky/dberr"
	"github.com/lindb/jdbcsticky/internal/concurrent"
	"github.com/lindb/jdbcsticky/pkg/logger"
)

//go:generate mockgen -source=./dispatch.go -destination=./dispatch_mock.go -package=dispatch

// ErrAcquireTimeout is returned by Run when AcquireTimeout elapses before a
// worker becomes available. The underlying context error is always
// available via errors.Unwrap.
type ErrAcquireTimeout struct {
	Timeout time.Duration
	Cause   error
}

func (e *ErrAcquireTimeout) Error() string {
	return fmt.Sprintf("dispatch: acquire timed out after %s", e.Timeout)
}

func (e *ErrAcquireTimeout) Unwrap() error { return e.Cause }

// Dispatcher runs blocks of work with thread affinity: the first Run call in
// a goroutine's call chain acquires a worker from the pool and pins it;
// every nested Run call (traced through ctx) reuses that worker without
// touching the pool.
type Dispatcher interface {
	// Run invokes fn, ensuring it executes on a single worker's OS thread
	// for the lifetime of the outermost Run in the current call chain.
	Run(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
	// Close shuts down the underlying worker pool. Safe to call more than
	// once.
	Close()
}

type affinity struct {
	worker *concurrent.Worker
	depth  int
}

type affinityKey struct{}

// WorkerID returns the id of the worker ctx is currently pinned to, and
// whether ctx is pinned at all. Exposed for tests that assert affinity
// preservation across nested Run calls.
func WorkerID(ctx context.Context) (uint64, bool) {
	a, ok := ctx.Value(affinityKey{}).(*affinity)
	if !ok || a.worker == nil {
		return 0, false
	}
	return a.worker.ID(), true
}

type dispatcher struct {
	pool      *concurrent.Pool
	acquireTO time.Duration
	threshold *time.Duration
	listeners []Listener

	log *logger.Logger
}

// NewDispatcher builds a Dispatcher backed by a freshly created worker pool
// sized and tuned per cfg. Call Close when the dispatcher is no longer
// needed; nothing in this module closes it on the host's behalf.
func NewDispatcher(cfg Config) Dispatcher {
	cfg = cfg.withDefaults()
	pool := concurrent.NewPool(concurrent.Config{
		Name:        cfg.Name,
		Size:        cfg.PoolSize,
		IdleTimeout: cfg.IdleTimeout,
		Discipline:  concurrent.Discipline(cfg.Discipline),
	})
	listeners := cfg.Listeners
	if cfg.AcquireThreshold != nil && len(listeners) == 0 {
		listeners = []Listener{LoggingListener{Name: cfg.Name}}
	}
	return &dispatcher{
		pool:      pool,
		acquireTO: cfg.AcquireTimeout,
		threshold: cfg.AcquireThreshold,
		listeners: listeners,
		log:       logger.GetLogger("Dispatch", cfg.Name),
	}
}

func (d *dispatcher) Run(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if a, ok := ctx.Value(affinityKey{}).(*affinity); ok {
		a.depth++
		defer func() { a.depth-- }()
		return fn(ctx)
	}

	w, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Release(w)

	a := &affinity{worker: w, depth: 1}
	pinned := context.WithValue(ctx, affinityKey{}, a)

	var (
		result any
		fnErr  error
	)
	// w.Do recovers a panic from fn on the worker goroutine and re-raises it
	// here on return, after this defer has already been registered, so the
	// worker is always released back to the pool even if fn panics.
	w.Do(func() {
		result, fnErr = fn(pinned)
	})

	return result, fnErr
}

func (d *dispatcher) acquire(ctx context.Context) (*concurrent.Worker, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, d.acquireTO)
	defer cancel()

	start := time.Now()
	w, err := d.pool.Acquire(acquireCtx)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, concurrent.ErrPoolClosed) {
			return nil, &dberr.DataAccessError{Msg: "pool closed"}
		}
		if ctx.Err() != nil && acquireCtx.Err() == ctx.Err() {
			// The caller's own context was cancelled, not our timeout.
			return nil, ctx.Err()
		}
		d.notify(TimeoutEvent{Timeout: d.acquireTO})
		return nil, &ErrAcquireTimeout{Timeout: d.acquireTO, Cause: err}
	}

	if d.threshold != nil && elapsed > *d.threshold {
		d.notify(ThresholdExceeded{Elapsed: elapsed, Threshold: *d.threshold})
	}
	return w, nil
}

func (d *dispatcher) notify(event any) {
	for _, l := range d.listeners {
		d.safeNotify(l, event)
	}
}

// safeNotify isolates a single listener invocation so a panicking or
// misbehaving listener can never escape into the caller's acquire path.
func (d *dispatcher) safeNotify(l Listener, event any) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("listener panicked", logger.Any("recovered", r), logger.Stack())
		}
	}()
	switch e := event.(type) {
	case TimeoutEvent:
		l.OnTimeout(e)
	case ThresholdExceeded:
		l.OnThresholdExceeded(e)
	}
}

func (d *dispatcher) Close() {
	d.pool.Close()
}
