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
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/lindb/jdbcsticky/dberr"
)

// Record is implemented by generated or hand-written row types. It gives the
// record-operation helpers (Insert, Update, Store, Delete, ...) everything
// they need without reflecting over arbitrary structs: the record itself
// knows its table, its primary key, which fields are dirty, and how to
// read a returned row back into itself.
type Record interface {
	// TableName is the unqualified or schema-qualified SQL table name.
	TableName() string
	// PrimaryKeyColumns lists the primary key columns, in declared order.
	PrimaryKeyColumns() []string
	// PrimaryKeyValues returns the record's current primary key values, in
	// the same order as PrimaryKeyColumns.
	PrimaryKeyValues() []any
	// Changed returns the column->value pairs that have been mutated since
	// the last ClearChanged call (or since construction).
	Changed() map[string]any
	// ClearChanged marks every field as clean.
	ClearChanged()
	// NeedsInsert reports whether Store should behave as Insert: true when
	// any primary-key field is changed, or is null while its column is
	// declared non-nullable.
	NeedsInsert() bool
	// ScanRow copies a single returned row back into the record (including
	// server-generated values such as sequences or defaults).
	ScanRow(rows *sqlx.Rows) error
}

func sortedColumns(changed map[string]any) []string {
	cols := make([]string, 0, len(changed))
	for c := range changed {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Insert inserts r if it has any changed field, copies the returned row
// back into r, clears its changed flags, and returns 1. A record with no
// changed fields is left untouched and 0 is returned.
func Insert(ctx context.Context, tx *sqlx.Tx, r Record) (int, error) {
	changed := r.Changed()
	if len(changed) == 0 {
		return 0, nil
	}
	cols := sortedColumns(changed)
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = ":" + c
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		r.TableName(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	rows, err := tx.NamedQuery(query, changed)
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	if err := r.ScanRow(rows); err != nil {
		return 0, err
	}
	r.ClearChanged()
	return 1, nil
}

// InsertAll batches every changed record in records into one multi-row
// INSERT ... RETURNING, copying returned rows back positionally. Records
// with no changed fields are skipped. Returns the number of rows inserted.
func InsertAll(ctx context.Context, tx *sqlx.Tx, records []Record) (int, error) {
	toInsert := make([]Record, 0, len(records))
	for _, r := range records {
		if len(r.Changed()) > 0 {
			toInsert = append(toInsert, r)
		}
	}
	if len(toInsert) == 0 {
		return 0, nil
	}

	cols := sortedColumns(toInsert[0].Changed())
	args := make(map[string]any, len(cols)*len(toInsert))
	rowPlaceholders := make([]string, len(toInsert))
	for i, r := range toInsert {
		changed := r.Changed()
		placeholders := make([]string, len(cols))
		for j, c := range cols {
			key := fmt.Sprintf("%s_%d", c, i)
			args[key] = changed[c]
			placeholders[j] = ":" + key
		}
		rowPlaceholders[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING *",
		toInsert[0].TableName(), strings.Join(cols, ", "), strings.Join(rowPlaceholders, ", "))

	rows, err := tx.NamedQuery(query, args)
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	defer rows.Close()

	count := 0
	for _, r := range toInsert {
		if !rows.Next() {
			break
		}
		if err := r.ScanRow(rows); err != nil {
			return count, err
		}
		r.ClearChanged()
		count++
	}
	return count, rows.Err()
}

// Update builds its WHERE clause from r's current primary-key values (in
// declared order) and sets every changed column. A record with no changed
// fields is left untouched and 0 is returned.
func Update(ctx context.Context, tx *sqlx.Tx, r Record) (int, error) {
	changed := r.Changed()
	if len(changed) == 0 {
		return 0, nil
	}
	cols := sortedColumns(changed)
	args := make(map[string]any, len(cols)+len(r.PrimaryKeyColumns()))
	setClauses := make([]string, len(cols))
	for i, c := range cols {
		key := "set__" + c
		setClauses[i] = fmt.Sprintf("%s = :%s", c, key)
		args[key] = changed[c]
	}
	whereClauses := primaryKeyWhere(r, args, "pk__")

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		r.TableName(), strings.Join(setClauses, ", "), strings.Join(whereClauses, " AND "))

	res, err := tx.NamedExec(query, args)
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	if n > 0 {
		r.ClearChanged()
	}
	return int(n), nil
}

// Store behaves as Insert when r.NeedsInsert() reports true, else as
// Update.
func Store(ctx context.Context, tx *sqlx.Tx, r Record) (int, error) {
	if r.NeedsInsert() {
		return Insert(ctx, tx, r)
	}
	return Update(ctx, tx, r)
}

// Delete removes the single row matching r's primary key.
func Delete(ctx context.Context, tx *sqlx.Tx, r Record) (int, error) {
	return DeleteAll(ctx, tx, []Record{r})
}

// DeleteAll removes every row matching any of records' primary keys: the
// WHERE clause is the OR of each record's primary-key AND-conjunction. An
// empty slice is a no-op returning 0.
func DeleteAll(ctx context.Context, tx *sqlx.Tx, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	args := make(map[string]any)
	orClauses := make([]string, len(records))
	for i, r := range records {
		andClauses := primaryKeyWhere(r, args, fmt.Sprintf("row%d__", i))
		orClauses[i] = "(" + strings.Join(andClauses, " AND ") + ")"
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", records[0].TableName(), strings.Join(orClauses, " OR "))

	res, err := tx.NamedExec(query, args)
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	return int(n), nil
}

// InsertOnConflictDoNothing is Insert with ON CONFLICT DO NOTHING; it
// returns 0, rather than an error, when the INSERT did not emit a RETURNING
// row (i.e. the conflict was hit).
func InsertOnConflictDoNothing(ctx context.Context, tx *sqlx.Tx, r Record) (int, error) {
	changed := r.Changed()
	if len(changed) == 0 {
		return 0, nil
	}
	cols := sortedColumns(changed)
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = ":" + c
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING RETURNING *",
		r.TableName(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	rows, err := tx.NamedQuery(query, changed)
	if err != nil {
		return 0, wrapDriverErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	if err := r.ScanRow(rows); err != nil {
		return 0, err
	}
	r.ClearChanged()
	return 1, nil
}

// Count runs SELECT groupBy..., COUNT(*) FROM table WHERE where GROUP BY
// groupBy and returns a map from the (single-column) group key to its
// count. A NULL group-by value raises ErrUnexpectedNullField.
func Count(ctx context.Context, tx *sqlx.Tx, table, where string, whereArgs map[string]any, groupBy string) (map[string]int64, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s", groupBy, table)
	if where != "" {
		query += " WHERE " + where
	}
	query += " GROUP BY " + groupBy

	rows, err := tx.NamedQuery(query, whereArgs)
	if err != nil {
		return nil, wrapDriverErr(err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			key   *string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, wrapDriverErr(err)
		}
		if key == nil {
			return nil, dberr.ErrUnexpectedNullField{Field: groupBy}
		}
		result[*key] = count
	}
	return result, rows.Err()
}

func primaryKeyWhere(r Record, args map[string]any, prefix string) []string {
	cols := r.PrimaryKeyColumns()
	values := r.PrimaryKeyValues()
	clauses := make([]string, len(cols))
	for i, c := range cols {
		key := prefix + c
		args[key] = values[i]
		clauses[i] = fmt.Sprintf("%s = :%s", c, key)
	}
	return clauses
}
