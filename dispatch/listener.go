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

import (
	"time"

	"github.com/lindb/jdbcsticky/pkg/logger"
)

// TimeoutEvent is emitted when an acquire fails to complete within
// AcquireTimeout.
type TimeoutEvent struct {
	Timeout time.Duration
}

// ThresholdExceeded is emitted when an acquire succeeds but took longer than
// the configured AcquireThreshold. It is purely observational: the acquire
// still succeeds.
type ThresholdExceeded struct {
	Elapsed   time.Duration
	Threshold time.Duration
}

// Listener observes acquisition events. Implementations must not block or
// panic; Dispatcher isolates each call but a slow listener still delays the
// acquire that triggered it, since notification happens-before the acquire
// returns to its caller.
type Listener interface {
	OnTimeout(TimeoutEvent)
	OnThresholdExceeded(ThresholdExceeded)
}

// LoggingListener is the default listener installed when AcquireThreshold is
// set without an explicit listener.
type LoggingListener struct {
	Name string
}

func (l LoggingListener) OnTimeout(e TimeoutEvent) {
	logger.GetLogger("Dispatch", l.Name).Warn("acquire timed out",
		logger.Duration("timeout", e.Timeout))
}

func (l LoggingListener) OnThresholdExceeded(e ThresholdExceeded) {
	logger.GetLogger("Dispatch", l.Name).Warn("acquire exceeded threshold",
		logger.Duration("elapsed", e.Elapsed), logger.Duration("threshold", e.Threshold))
}
