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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/jdbcsticky/dberr"
)

func TestUnwrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Unwrap(nil))
}

func TestUnwrap_PassesThroughConcreteDriverError(t *testing.T) {
	driverErr := &dberr.DataAccessError{Msg: "duplicate key value violates unique constraint", Cause: errors.New("pg: 23505")}
	assert.Same(t, driverErr, Unwrap(driverErr))
}

func TestUnwrap_PassesThroughNonDataAccessErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, Unwrap(plain))
}

func TestUnwrap_StripsDoubleSentinelWrapping(t *testing.T) {
	driverErr := errors.New("duplicate key value violates unique constraint \"users_pkey\"")
	wrapped := &dberr.DataAccessError{
		Msg: "Rollback caused",
		Cause: &dberr.DataAccessError{
			Msg:   "Exception when blocking on publisher",
			Cause: driverErr,
		},
	}
	assert.Same(t, driverErr, Unwrap(wrapped))
}

func TestUnwrap_BareSentinelWithNoCauseReraisesRollbackCaused(t *testing.T) {
	bare := &dberr.DataAccessError{Msg: "Rollback caused"}
	got := Unwrap(bare)

	var dae *dberr.DataAccessError
	if assert.ErrorAs(t, got, &dae) {
		assert.Equal(t, "Rollback caused", dae.Msg)
		assert.Same(t, bare, dae.Cause)
	}
}

func TestUnwrap_StopsAtConcreteDataAccessSubtype(t *testing.T) {
	inner := &dberr.DataAccessError{Msg: "duplicate key value violates unique constraint", Cause: errors.New("pg: 23505")}
	outer := &dberr.DataAccessError{Msg: "Exception when blocking on publisher", Cause: inner}
	assert.Same(t, inner, Unwrap(outer))
}
