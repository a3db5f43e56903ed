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

// Package config holds the TOML/env-bound configuration surface hosts use
// to construct a dispatch.Dispatcher, and the load/default helpers built on
// BurntSushi/toml and caarlos0/env.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v7"

	"github.com/lindb/jdbcsticky/dispatch"
	"github.com/lindb/jdbcsticky/pkg/ltoml"
)

// Dispatcher is the TOML/env-bindable surface for dispatch.Config.
// AcquireThreshold is a pointer so "unset" (threshold events disabled) is
// distinguishable from an explicit zero.
type Dispatcher struct {
	Enabled          bool            `env:"ENABLED" toml:"enabled"`
	PoolSize         int             `env:"POOL_SIZE" toml:"pool-size"`
	IdleTimeout      ltoml.Duration  `env:"IDLE_TIMEOUT" toml:"idle-timeout"`
	AcquireTimeout   ltoml.Duration  `env:"ACQUIRE_TIMEOUT" toml:"acquire-timeout"`
	AcquireThreshold *ltoml.Duration `env:"ACQUIRE_THRESHOLD" toml:"acquire-threshold"`
}

// TOML returns Dispatcher's toml config string, in the same inline-doc style
// the rest of this host's configuration uses.
func (d *Dispatcher) TOML() string {
	thresholdLine := "# acquire-threshold = \"5s\"  # commented out: unset disables threshold events"
	if d.AcquireThreshold != nil {
		thresholdLine = fmt.Sprintf(`acquire-threshold = "%s"`, d.AcquireThreshold.String())
	}
	return fmt.Sprintf(`
## Thread-affinity dispatcher pool for the blocking SQL driver.
[dispatcher]
## whether the sticky dispatcher is enabled; disabling runs every
## transaction on the calling goroutine with no pooling (see
## dispatch.NewPassthrough).
## Default: %t
## Env: LINDB_DISPATCHER_ENABLED
enabled = %t
## number of workers, each pinned to one OS thread. Zero derives this
## from poolmeta.Derive against the configured connection pool, falling
## back to 10 if none is available.
## Default: %d
## Env: LINDB_DISPATCHER_POOL_SIZE
pool-size = %d
## how long an idle worker waits before its goroutine exits.
## Default: %s
## Env: LINDB_DISPATCHER_IDLE_TIMEOUT
idle-timeout = "%s"
## how long Run waits for a worker before failing with acquire-timeout.
## Default: %s
## Env: LINDB_DISPATCHER_ACQUIRE_TIMEOUT
acquire-timeout = "%s"
## when set, emits a ThresholdExceeded event for any acquire slower than
## this, without failing the acquire. Unset disables threshold events.
## Env: LINDB_DISPATCHER_ACQUIRE_THRESHOLD
%s`,
		d.Enabled, d.Enabled,
		d.PoolSize, d.PoolSize,
		d.IdleTimeout.String(), d.IdleTimeout.String(),
		d.AcquireTimeout.String(), d.AcquireTimeout.String(),
		thresholdLine,
	)
}

// NewDefaultDispatcher returns the default Dispatcher configuration.
func NewDefaultDispatcher() *Dispatcher {
	return &Dispatcher{
		Enabled:        true,
		PoolSize:       0,
		IdleTimeout:    ltoml.Duration(time.Minute),
		AcquireTimeout: ltoml.Duration(30 * time.Second),
	}
}

// LoadDispatcherFromTOML reads and decodes a Dispatcher from the
// "[dispatcher]" table of a TOML file at path, then applies environment
// variable overrides with the LINDB_DISPATCHER_ prefix.
func LoadDispatcherFromTOML(path string) (*Dispatcher, error) {
	wrapper := struct {
		Dispatcher Dispatcher `toml:"dispatcher"`
	}{Dispatcher: *NewDefaultDispatcher()}

	if _, err := toml.DecodeFile(path, &wrapper); err != nil {
		return nil, fmt.Errorf("config: failed decoding dispatcher toml: %w", err)
	}
	cfg := &wrapper.Dispatcher
	if err := env.Parse(cfg, env.Options{Prefix: "LINDB_DISPATCHER_"}); err != nil {
		return nil, fmt.Errorf("config: failed applying dispatcher env overrides: %w", err)
	}
	return cfg, nil
}

// ToDispatchConfig converts this TOML/env-bound surface into the
// dispatch.Config NewDispatcher expects, applying the "derive pool size
// from poolmeta if unset, else 10" rule documented on dispatch.Config.
func (d *Dispatcher) ToDispatchConfig(name string, poolSizeFromMeta int) dispatch.Config {
	size := d.PoolSize
	if size <= 0 {
		size = poolSizeFromMeta
	}
	cfg := dispatch.Config{
		Name:           name,
		PoolSize:       size,
		IdleTimeout:    time.Duration(d.IdleTimeout),
		AcquireTimeout: time.Duration(d.AcquireTimeout),
	}
	if d.AcquireThreshold != nil {
		t := time.Duration(*d.AcquireThreshold)
		cfg.AcquireThreshold = &t
	}
	return cfg
}

// WriteDefaultTOML writes a starter config file containing the default
// Dispatcher section, for hosts bootstrapping a new deployment.
func WriteDefaultTOML(path string) error {
	return os.WriteFile(path, []byte(NewDefaultDispatcher().TOML()), 0o644)
}
