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

// Package concurrent provides a bounded pool of workers, each permanently
// bound to a single OS thread for the lifetime of the worker. Callers
// acquire a worker, submit closures onto it, and release it back to the
// pool. It is the primitive that the dispatch package builds thread-affinity
// on top of.
package concurrent

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/lindb/jdbcsticky/pkg/logger"
)

//go:generate mockgen -source=./pool.go -destination=./pool_mock.go -package=concurrent

// Discipline selects the ordering in which released workers are handed back
// out by Acquire.
type Discipline int

const (
	// LIFO favors the most recently released worker, for OS-cache/thread
	// warmth. This is the default.
	LIFO Discipline = iota
	// FIFO rotates workers evenly, which pairs well with IdleTimeout culling
	// since every worker gets reused on a predictable cadence.
	FIFO
)

var (
	// ErrPoolClosed is returned by Acquire/TryAcquire once Close has been
	// called and the pool has no more tokens to hand out.
	ErrPoolClosed = errors.New("concurrent: pool closed")
	// ErrWouldBlock is returned by TryAcquire when no token is currently
	// available.
	ErrWouldBlock = errors.New("concurrent: acquire would block")
)

// Config configures a Pool.
type Config struct {
	// Name identifies the pool in logs.
	Name string
	// Size is the fixed number of workers in the pool.
	Size int
	// IdleTimeout is how long a worker waits for a job before its goroutine
	// exits; it is recreated lazily the next time it is dispatched to.
	IdleTimeout time.Duration
	// Discipline controls LIFO vs FIFO hand-out order.
	Discipline Discipline
}

// Pool is a bounded multiset of Workers of a fixed capacity. The sum of
// workers currently held by callers and workers available in the pool is
// always equal to Config.Size, except transiently during Close.
//
// Internally a Pool is split into a token channel of capacity Size and a
// deque of worker handles: receiving a token and then popping a handle is
// Acquire; pushing a handle and then sending a token is Release. The split
// exists because no single Go primitive gives both bounded blocking and
// deque ordering cheaply.
type Pool struct {
	name        string
	idleTimeout time.Duration
	discipline  Discipline

	tokens chan struct{}

	mu      sync.Mutex
	handles []*Worker
	closed  bool

	nextID    atomic.Uint64
	closeOnce sync.Once

	log *logger.Logger
}

// NewPool creates a Pool and eagerly starts Config.Size worker goroutines,
// each locked to its own OS thread.
func NewPool(cfg Config) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	p := &Pool{
		name:        cfg.Name,
		idleTimeout: cfg.IdleTimeout,
		discipline:  cfg.Discipline,
		tokens:      make(chan struct{}, cfg.Size),
		handles:     make([]*Worker, 0, cfg.Size),
		log:         logger.GetLogger("Concurrent", "Pool["+cfg.Name+"]"),
	}
	for i := 0; i < cfg.Size; i++ {
		p.handles = append(p.handles, p.newWorker())
		p.tokens <- struct{}{}
	}
	return p
}

func (p *Pool) newWorker() *Worker {
	id := p.nextID.Inc()
	return newWorker(id, p.idleTimeout, p.log)
}

// TryAcquire is the non-blocking variant of Acquire. It returns
// ErrWouldBlock if no token is immediately available, or ErrPoolClosed once
// the pool has been closed and fully drained.
func (p *Pool) TryAcquire() (*Worker, error) {
	select {
	case _, ok := <-p.tokens:
		if !ok {
			return nil, ErrPoolClosed
		}
		return p.take()
	default:
		return nil, ErrWouldBlock
	}
}

// Acquire blocks until a token is available, ctx is done, or the pool is
// closed. On success it returns a live worker (respawning it first if its
// goroutine had exited from idleness). It never returns a worker without
// having consumed a token, and it never consumes a token without returning
// either a worker or ErrPoolClosed.
func (p *Pool) Acquire(ctx context.Context) (*Worker, error) {
	select {
	case _, ok := <-p.tokens:
		if !ok {
			return nil, ErrPoolClosed
		}
		return p.take()
	case <-ctx.Done():
		// No token was consumed: nothing to release.
		return nil, ctx.Err()
	}
}

// take pops a handle from the deque per the configured discipline and
// respawns it if its goroutine has exited from idleness. Must only be
// called immediately after a token has been received. The token received
// from a just-closed pool may be one of the stale tokens Close leaves
// buffered for in-flight receivers; take re-checks closed under the same
// lock that guards the deque so that race can never index an already
// drained (or still-shrinking) handles slice.
func (p *Pool) take() (*Worker, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	w := p.handles[0]
	p.handles = p.handles[1:]
	p.mu.Unlock()

	if w.idle() {
		w = newWorker(w.id, p.idleTimeout, p.log)
	}
	return w, nil
}

// Release returns w to the pool. It is safe to call from any goroutine and
// is a no-op once the pool has been closed (the worker's goroutine is
// stopped instead of being handed back).
func (p *Pool) Release(w *Worker) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		w.stop()
		return
	}
	switch p.discipline {
	case FIFO:
		p.handles = append(p.handles, w)
	default: // LIFO
		p.handles = append([]*Worker{w}, p.handles...)
	}
	p.tokens <- struct{}{}
	p.mu.Unlock()
}

// Close closes the pool. Every Acquire currently blocked wakes with
// ErrPoolClosed; every worker sitting idle in the deque is stopped exactly
// once. Workers currently checked out by a caller are stopped when their
// Release is eventually called, rather than here. Close is idempotent and
// returns once every idle worker has been stopped.
//
// The handles are drained under mu before the token channel is closed, and
// take() re-checks closed under the same lock after receiving a token, so a
// concurrent Acquire that races in on one of the stale buffered tokens can
// never see a handle Close already took (and never index an empty slice).
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		idle := p.handles
		p.handles = nil
		p.mu.Unlock()

		close(p.tokens)

		for _, w := range idle {
			w.stop()
		}
	})
}
