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

package dispatch

import "time"

// Discipline mirrors concurrent.Discipline without importing callers into
// the internal package's type.
type Discipline int

const (
	// LIFO hands out the most recently released worker first.
	LIFO Discipline = iota
	// FIFO rotates workers evenly.
	FIFO
)

// Config is the immutable configuration of a Dispatcher.
type Config struct {
	// Name identifies this dispatcher's pool in logs and metrics.
	Name string
	// PoolSize is the number of workers. Zero or negative defaults to 10;
	// NewDispatcher does not call poolmeta.Derive itself. A size derived
	// from a connection pool reaches here only through the caller, e.g. the
	// poolSizeFromMeta argument of config.Dispatcher.ToDispatchConfig.
	PoolSize int
	// IdleTimeout is how long an idle worker waits before its goroutine
	// exits. Zero defaults to one minute.
	IdleTimeout time.Duration
	// AcquireTimeout bounds how long Run waits for a worker. Zero defaults
	// to 30 seconds.
	AcquireTimeout time.Duration
	// AcquireThreshold, when set, causes a ThresholdExceeded event whenever
	// an acquire takes longer than this without failing outright. Nil
	// disables threshold events.
	AcquireThreshold *time.Duration
	// Discipline selects LIFO or FIFO worker hand-out order.
	Discipline Discipline
	// Listeners receive TimeoutEvent/ThresholdExceeded notifications. If
	// empty and AcquireThreshold is set, a default LoggingListener is
	// installed.
	Listeners []Listener
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = time.Minute
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 30 * time.Second
	}
	return c
}
