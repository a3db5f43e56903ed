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
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/lindb/jdbcsticky/dberr"
	"github.com/lindb/jdbcsticky/dispatch"
)

type blockingSource struct {
	db *sqlx.DB
}

func (s blockingSource) Mode() Mode                          { return Blocking }
func (s blockingSource) DB() *sqlx.DB                         { return s.db }
func (s blockingSource) ReactivePublisher() ReactivePublisher { return nil }

func newBlockingSource(t *testing.T) (blockingSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return blockingSource{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestTransaction_BlockingCommitsOnSuccess(t *testing.T) {
	src, mock := newBlockingSource(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := dispatch.NewDispatcher(dispatch.Config{Name: "tx-commit", PoolSize: 2})
	t.Cleanup(d.Close)

	result, err := Transaction(context.Background(), d, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_BlockingRollsBackOnBodyError(t *testing.T) {
	src, mock := newBlockingSource(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := dispatch.NewDispatcher(dispatch.Config{Name: "tx-rollback", PoolSize: 2})
	t.Cleanup(d.Close)

	bodyErr := errors.New("boom")
	_, err := Transaction(context.Background(), d, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			return nil, bodyErr
		})
	require.ErrorIs(t, err, bodyErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_BlockingRollbackOnlyReturnsResultWithoutError(t *testing.T) {
	src, mock := newBlockingSource(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	d := dispatch.NewDispatcher(dispatch.Config{Name: "tx-rollback-only", PoolSize: 2})
	t.Cleanup(d.Close)

	result, err := Transaction(context.Background(), d, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			return "partial", ErrRollbackOnly
		})
	require.NoError(t, err)
	require.Equal(t, "partial", result)
}

func TestTransaction_BlockingRunsOnDispatcherPinnedWorker(t *testing.T) {
	src, mock := newBlockingSource(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	d := dispatch.NewDispatcher(dispatch.Config{Name: "tx-pinned", PoolSize: 1})
	t.Cleanup(d.Close)

	var sawWorker bool
	_, err := Transaction(context.Background(), d, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			_, sawWorker = dispatch.WorkerID(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	require.True(t, sawWorker)
}

type fakeReactivePublisher struct {
	result any
	err    error
	called bool
	opts   TxOptions
}

func (p *fakeReactivePublisher) Transaction(ctx context.Context, opts TxOptions,
	body func(ctx context.Context) (any, error)) (any, error) {
	p.called = true
	p.opts = opts
	if p.err != nil {
		return nil, p.err
	}
	return body(ctx)
}

type reactiveSource struct {
	pub *fakeReactivePublisher
}

func (s reactiveSource) Mode() Mode                          { return Reactive }
func (s reactiveSource) DB() *sqlx.DB                         { return nil }
func (s reactiveSource) ReactivePublisher() ReactivePublisher { return s.pub }

func TestTransaction_ReactiveBypassesDispatcherEntirely(t *testing.T) {
	pub := &fakeReactivePublisher{}
	src := reactiveSource{pub: pub}

	result, err := Transaction(context.Background(), nil, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			require.Nil(t, tx)
			return "reactive-ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "reactive-ok", result)
	require.True(t, pub.called)
}

func TestTransaction_ReactiveUnwrapsSentinelChain(t *testing.T) {
	driverErr := errors.New("duplicate key")
	sentinelChain := &dberr.DataAccessError{
		Msg: "Rollback caused",
		Cause: &dberr.DataAccessError{
			Msg:   "Exception when blocking on publisher",
			Cause: driverErr,
		},
	}
	pub := &fakeReactivePublisher{err: sentinelChain}
	src := reactiveSource{pub: pub}

	_, err := Transaction(context.Background(), nil, src, TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			return nil, nil
		})
	require.Same(t, driverErr, err)
}
