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

package sqlfacade

import "github.com/lindb/jdbcsticky/dberr"

// Unwrap strips the bare *DataAccessError wrappers the reactive/blocking
// bridge inserts ("Rollback caused", "Exception when blocking on
// publisher"), exposing the original cause to callers. It stops unwrapping
// once it reaches a concrete driver error (anything that isn't one of those
// two bare sentinels) or a nil cause. If unwrapping would otherwise yield
// nil, it re-raises a fresh sentinel wrapping the original error instead of
// returning nil.
func Unwrap(err error) error {
	if err == nil {
		return nil
	}
	original := err
	for {
		dae, ok := err.(*dberr.DataAccessError) //nolint:errorlint // intentional: only our own bare wrappers participate in this chain
		if !ok || !dae.IsSentinel() {
			return err
		}
		if dae.Cause == nil {
			return &dberr.DataAccessError{Msg: "Rollback caused", Cause: original}
		}
		err = dae.Cause
	}
}
