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

package sqldriver

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lindb/jdbcsticky/sqlfacade"
)

// sqliteSource is a blocking-mode sqlfacade.Source over mattn/go-sqlite3.
// Used by the integration test suite: SQLite's own single-writer locking
// makes the thread-affinity invariant easy to observe, since a connection
// held across a suspension point is trivially distinguishable from one
// returned to the pool.
type sqliteSource struct {
	db *sqlx.DB
}

// NewSQLite opens dsn (e.g. "file::memory:?cache=shared" or a file path)
// with mattn/go-sqlite3 and returns a blocking-mode Source. SQLite permits
// only one writer at a time, so maxOpenConns above 1 only helps concurrent
// readers.
func NewSQLite(dsn string, maxOpenConns int) (sqlfacade.Source, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: open sqlite3 failed: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	return &sqliteSource{db: db}, nil
}

func (s *sqliteSource) Mode() sqlfacade.Mode                          { return sqlfacade.Blocking }
func (s *sqliteSource) DB() *sqlx.DB                                   { return s.db }
func (s *sqliteSource) ReactivePublisher() sqlfacade.ReactivePublisher { return nil }

// Close releases the underlying connection pool.
func (s *sqliteSource) Close() error {
	return s.db.Close()
}
