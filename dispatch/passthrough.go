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
	"context"
	"sync"

	"github.com/lindb/jdbcsticky/pkg/logger"
)

// passthrough is the conforming Dispatcher used when no pool is configured
// (config.Dispatcher.Enabled == false, as the demo CLI wires it). It runs fn
// directly on the caller's goroutine under a single,
// process-wide shared affinity value, so nested Run calls still behave as
// "already pinned" even though there is no pool to avoid touching.
type passthrough struct {
	warnOnce sync.Once
	log      *logger.Logger
}

// NewPassthrough returns a Dispatcher that never pools or pins goroutines to
// OS threads; it exists for hosts that have chosen not to configure a
// dispatcher pool and rely on the caller's own thread discipline.
func NewPassthrough() Dispatcher {
	return &passthrough{log: logger.GetLogger("Dispatch", "passthrough")}
}

var passthroughAffinity = &affinity{depth: 1}

func (p *passthrough) Run(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	p.warnOnce.Do(func() {
		p.log.Warn("dispatcher pool disabled; running without thread affinity")
	})
	if _, ok := ctx.Value(affinityKey{}).(*affinity); ok {
		return fn(ctx)
	}
	return fn(context.WithValue(ctx, affinityKey{}, passthroughAffinity))
}

func (p *passthrough) Close() {}
