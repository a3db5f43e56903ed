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

// Package poolmeta derives pool sizing defaults (worker count, idle
// timeout, acquire timeout) from whatever connection-pool object a host
// already constructed, so a Dispatcher can be sized to match the
// database's own pool instead of requiring the caller to duplicate the
// number in two places.
//
// pgxpool pools are matched by their exact reflected type name
// ("*pgxpool.Pool") rather than a type switch on a concrete imported type,
// so this package never
// takes a hard dependency on every connection-pool library it recognizes
// (notably jackc/pgx/v5/pgxpool): only the struct/method shape is read,
// through reflection, once a name match is found.
package poolmeta

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/lindb/jdbcsticky/dberr"
)

const (
	defaultSQLIdleTimeout    = time.Minute
	defaultSQLAcquireTimeout = 30 * time.Second
)

// dbcpLikePool models the shape of a DBCP/Tomcat/UCP-style connection pool:
// capacity and timeouts read back through accessor methods rather than
// struct fields or a Config() snapshot.
type dbcpLikePool interface {
	MaxTotal() int
	IdleTimeout() time.Duration
	AcquireTimeout() time.Duration
}

// Derive inspects pool and returns the size/idle-timeout/acquire-timeout it
// reports. An unrecognized type yields dberr.ErrUnknownPoolType.
func Derive(pool any) (size int, idleTimeout, acquireTimeout time.Duration, err error) {
	if p, ok := pool.(dbcpLikePool); ok {
		return p.MaxTotal(), p.IdleTimeout(), p.AcquireTimeout(), nil
	}
	if db, ok := pool.(*sql.DB); ok {
		return deriveFromSQLDB(db)
	}
	if typeName(pool) == "*pgxpool.Pool" {
		return deriveFromPgxPool(pool)
	}
	return 0, 0, 0, dberr.ErrUnknownPoolType{TypeName: typeName(pool)}
}

func typeName(pool any) string {
	t := reflect.TypeOf(pool)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// deriveFromPgxPool reads pgxpool.Pool.Config().MaxConns /
// .MaxConnIdleTime / .ConnConfig.ConnectTimeout purely through reflection,
// matching the shape of github.com/jackc/pgx/v5/pgxpool without importing
// it.
func deriveFromPgxPool(pool any) (int, time.Duration, time.Duration, error) {
	v := reflect.ValueOf(pool)
	cfg := v.MethodByName("Config").Call(nil)[0]
	if cfg.Kind() == reflect.Ptr {
		cfg = cfg.Elem()
	}

	maxConns := cfg.FieldByName("MaxConns").Int()
	idleTimeout, _ := cfg.FieldByName("MaxConnIdleTime").Interface().(time.Duration)

	connConfig := cfg.FieldByName("ConnConfig")
	if connConfig.Kind() == reflect.Ptr {
		connConfig = connConfig.Elem()
	}
	var connectTimeout time.Duration
	if field := connConfig.FieldByName("ConnectTimeout"); field.IsValid() {
		connectTimeout, _ = field.Interface().(time.Duration)
	}

	return int(maxConns), idleTimeout, connectTimeout, nil
}

func deriveFromSQLDB(db *sql.DB) (int, time.Duration, time.Duration, error) {
	stats := db.Stats()
	return stats.MaxOpenConnections, defaultSQLIdleTimeout, defaultSQLAcquireTimeout, nil
}
