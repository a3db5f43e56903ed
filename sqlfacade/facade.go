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

// Package sqlfacade is the suspension-friendly facade over a blocking or
// reactive SQL source: transaction begin/commit/rollback, record helpers,
// result-shape adaptors, and error-cause unwrapping across the
// reactive/blocking bridge.
package sqlfacade

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/lindb/jdbcsticky/dberr"
	"github.com/lindb/jdbcsticky/dispatch"
	"github.com/lindb/jdbcsticky/pkg/logger"
)

//go:generate mockgen -source=./facade.go -destination=./facade_mock.go -package=sqlfacade

// Mode distinguishes a blocking-mode query source (a synchronous driver
// requiring the calling OS thread to hold the connection for the
// transaction's lifetime) from a reactive-mode one (whose transaction
// primitive is a single-value publisher).
type Mode int

const (
	Blocking Mode = iota
	Reactive
)

// Source is the BlockingQuerySource/ReactivePublisher collaborator contract
// the facade consumes. A concrete Source reports its own Mode; the facade
// never guesses from the connection string.
type Source interface {
	Mode() Mode
	// DB is valid when Mode() == Blocking.
	DB() *sqlx.DB
	// ReactivePublisher is valid when Mode() == Reactive.
	ReactivePublisher() ReactivePublisher
}

// ReactivePublisher is the single-value transaction publisher a reactive
// Source exposes. The sticky dispatcher is never invoked on this path.
type ReactivePublisher interface {
	Transaction(ctx context.Context, opts TxOptions,
		body func(ctx context.Context) (any, error)) (any, error)
}

// TxOptions configures a transaction's isolation level and read-only flag.
type TxOptions struct {
	Isolation IsolationLevel
	ReadOnly  bool
}

// ErrRollbackOnly is an internal sentinel: a transaction body that returns
// it requests a rollback without the rollback surfacing as an error to
// Transaction's caller. Its own return value is preserved.
var ErrRollbackOnly = errors.New("sqlfacade: rollback requested")

var facadeLog = logger.GetLogger("SQLFacade", "transaction")

// Transaction begins a transaction and runs body against it, committing on
// success and rolling back on error (or on ErrRollbackOnly) on every exit
// path. In blocking mode, d.Run pins the whole transaction to one worker's
// OS thread; in reactive mode, d is not used at all — the source's own
// reactive transaction primitive is delegated to directly.
func Transaction(ctx context.Context, d dispatch.Dispatcher, src Source, opts TxOptions,
	body func(ctx context.Context, tx *sqlx.Tx) (any, error)) (any, error) {
	var (
		result any
		err    error
	)
	if src.Mode() == Reactive {
		result, err = transactionReactive(ctx, src, opts, body)
	} else {
		result, err = d.Run(ctx, func(ctx context.Context) (any, error) {
			return transactionBlocking(ctx, src.DB(), opts, body)
		})
	}
	return result, Unwrap(err)
}

func transactionBlocking(ctx context.Context, db *sqlx.DB, opts TxOptions,
	body func(ctx context.Context, tx *sqlx.Tx) (any, error)) (any, error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: opts.Isolation.native(),
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return nil, &dberr.DataAccessError{Msg: "begin transaction failed", Cause: err}
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	result, bodyErr := body(ctx, tx)
	if bodyErr != nil {
		_ = tx.Rollback()
		if errors.Is(bodyErr, ErrRollbackOnly) {
			return result, nil
		}
		return nil, bodyErr
	}
	if err := tx.Commit(); err != nil {
		return nil, &dberr.DataAccessError{Msg: "commit failed", Cause: err}
	}
	return result, nil
}

func transactionReactive(ctx context.Context, src Source, opts TxOptions,
	body func(ctx context.Context, tx *sqlx.Tx) (any, error)) (any, error) {
	if opts.ReadOnly {
		facadeLog.Warn("read-only is not supported on the reactive transaction path; ignoring")
	}
	return src.ReactivePublisher().Transaction(ctx, opts, func(ctx context.Context) (any, error) {
		return body(ctx, nil)
	})
}
