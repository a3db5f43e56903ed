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

// Package sqldriver provides reference sqlfacade.Source implementations
// over real drivers, so the dispatcher and facade can be exercised
// end-to-end without every consumer writing their own connector.
package sqldriver

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/lindb/jdbcsticky/sqlfacade"
)

// PostgresConfig configures a blocking-mode Postgres Source built on
// pgx/v5's database/sql-compatible stdlib driver.
type PostgresConfig struct {
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectTimeout time.Duration
}

func (c PostgresConfig) withDefaults() PostgresConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return c
}

// postgresSource is a blocking-mode sqlfacade.Source over *sql.DB via the
// pgx stdlib driver.
type postgresSource struct {
	db *sqlx.DB
}

// NewPostgres opens a connection pool against cfg.DSN using pgx/v5's stdlib
// driver and returns a blocking-mode Source. ctx bounds the initial ping.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (sqlfacade.Source, error) {
	cfg = cfg.withDefaults()

	connConfig, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: invalid postgres DSN: %w", err)
	}

	sqlDB := stdlib.OpenDB(*connConfig)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqldriver: postgres ping failed: %w", err)
	}

	return &postgresSource{db: sqlx.NewDb(sqlDB, "pgx")}, nil
}

func (s *postgresSource) Mode() sqlfacade.Mode                          { return sqlfacade.Blocking }
func (s *postgresSource) DB() *sqlx.DB                                  { return s.db }
func (s *postgresSource) ReactivePublisher() sqlfacade.ReactivePublisher { return nil }

// Close releases the underlying connection pool.
func (s *postgresSource) Close() error {
	return s.db.Close()
}
