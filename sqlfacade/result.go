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
	"github.com/jmoiron/sqlx"

	"github.com/lindb/jdbcsticky/dberr"
)

// ToList scans every row of rows into a []T using sqlx's struct-scan
// (column-to-field mapping via `db` tags), closing rows on every exit path.
func ToList[T any](rows *sqlx.Rows) ([]T, error) {
	defer rows.Close()
	var result []T
	for rows.Next() {
		var item T
		if err := rows.StructScan(&item); err != nil {
			return nil, wrapDriverErr(err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverErr(err)
	}
	return result, nil
}

// FirstOrNull returns the first row, or nil if rows produced none. Any rows
// beyond the first are ignored (unlike SingleOrNull).
func FirstOrNull[T any](rows *sqlx.Rows) (*T, error) {
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var item T
	if err := rows.StructScan(&item); err != nil {
		return nil, wrapDriverErr(err)
	}
	return &item, nil
}

// First returns the first row, or ErrNoSuchElement if rows produced none.
func First[T any](rows *sqlx.Rows) (T, error) {
	var zero T
	item, err := FirstOrNull[T](rows)
	if err != nil {
		return zero, err
	}
	if item == nil {
		return zero, dberr.ErrNoSuchElement{}
	}
	return *item, nil
}

// SingleOrNull returns nil if rows produced none, the one row if rows
// produced exactly one, or ErrMoreThanOneRecord if rows produced more than
// one.
func SingleOrNull[T any](rows *sqlx.Rows) (*T, error) {
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var item T
	if err := rows.StructScan(&item); err != nil {
		return nil, wrapDriverErr(err)
	}
	if rows.Next() {
		return nil, dberr.ErrMoreThanOneRecord{}
	}
	return &item, nil
}

// Single returns the one row rows produced, ErrNoSuchElement if it produced
// none, or ErrMoreThanOneRecord if it produced more than one.
func Single[T any](rows *sqlx.Rows) (T, error) {
	var zero T
	item, err := SingleOrNull[T](rows)
	if err != nil {
		return zero, err
	}
	if item == nil {
		return zero, dberr.ErrNoSuchElement{}
	}
	return *item, nil
}

// ToMap scans every row into a map keyed by keyFn(row). Later rows with a
// colliding key overwrite earlier ones, matching how a Kotlin
// associateBy-style collector behaves.
func ToMap[T any, K comparable](rows *sqlx.Rows, keyFn func(T) K) (map[K]T, error) {
	items, err := ToList[T](rows)
	if err != nil {
		return nil, err
	}
	result := make(map[K]T, len(items))
	for _, item := range items {
		result[keyFn(item)] = item
	}
	return result, nil
}

// ToSet scans every row into a set keyed by the row value itself.
func ToSet[T comparable](rows *sqlx.Rows) (map[T]struct{}, error) {
	items, err := ToList[T](rows)
	if err != nil {
		return nil, err
	}
	result := make(map[T]struct{}, len(items))
	for _, item := range items {
		result[item] = struct{}{}
	}
	return result, nil
}

func wrapDriverErr(err error) error {
	if err == nil {
		return nil
	}
	return &dberr.DataAccessError{Msg: err.Error(), Cause: err}
}
