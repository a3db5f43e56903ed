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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(size int) *Pool {
	return NewPool(Config{
		Name:        "test",
		Size:        size,
		IdleTimeout: time.Hour,
	})
}

func TestPool_AcquireRelease(t *testing.T) {
	p := newTestPool(2)
	defer p.Close()

	w1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, w1)

	w2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, w2)
	assert.NotEqual(t, w1.ID(), w2.ID())

	p.Release(w1)
	p.Release(w2)
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const n = 4
	p := newTestPool(n)
	defer p.Close()

	var inFlight, maxInFlight int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	observe := func(delta int32) {
		mu.Lock()
		defer mu.Unlock()
		inFlight += delta
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
	}

	for i := 0; i < n*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := p.Acquire(context.Background())
			require.NoError(t, err)
			observe(1)
			w.Do(func() { time.Sleep(10 * time.Millisecond) })
			observe(-1)
			p.Release(w)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(maxInFlight), n)
}

func TestPool_TryAcquireWouldBlock(t *testing.T) {
	p := newTestPool(1)
	defer p.Close()

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.TryAcquire()
	assert.ErrorIs(t, err, ErrWouldBlock)

	p.Release(w)

	w2, err := p.TryAcquire()
	require.NoError(t, err)
	assert.NotNil(t, w2)
}

func TestPool_AcquireTimesOutOnContext(t *testing.T) {
	p := newTestPool(1)
	defer p.Close()

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(w)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = p.Acquire(ctx)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestPool_CancelDoesNotConsumeToken(t *testing.T) {
	p := newTestPool(1)
	defer p.Close()

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The token was not consumed by the cancelled acquire, so a fresh
	// acquire must still succeed immediately.
	w2, err := p.TryAcquire()
	require.NoError(t, err)
	assert.NotNil(t, w2)
	p.Release(w2)
}

func TestPool_CloseWakesWaiters(t *testing.T) {
	p := newTestPool(1)

	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		done <- err
	}()

	// Give the second Acquire time to start blocking on the token channel.
	time.Sleep(20 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("acquire did not wake up after Close")
	}

	// Release after Close is a no-op with respect to the pool.
	p.Release(w)
}

func TestPool_ReleaseAfterCloseIsNoOp(t *testing.T) {
	p := newTestPool(1)
	w, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Close()
	p.Release(w) // must not panic or block

	_, err = p.TryAcquire()
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_IdleWorkerIsRespawnedOnNextAcquire(t *testing.T) {
	p := NewPool(Config{Name: "idle", Size: 1, IdleTimeout: 10 * time.Millisecond})
	defer p.Close()

	w1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	id1 := w1.ID()
	p.Release(w1)

	// Let the worker's goroutine exit from idleness.
	time.Sleep(100 * time.Millisecond)

	w2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id1, w2.ID(), "respawned worker keeps its stable identity")

	var ran bool
	w2.Do(func() { ran = true })
	assert.True(t, ran)
	p.Release(w2)
}
