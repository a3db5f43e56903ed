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

// Package dberr holds the error taxonomy shared by dispatch and sqlfacade,
// so callers can errors.As/errors.Is against one stable set of types
// regardless of which layer raised them.
package dberr

// DataAccessError wraps a driver-level failure, or an internal sentinel
// message pending unwrap (see sqlfacade.Unwrap). Cause is nil when there is
// nothing further to unwrap to: a bare sentinel, or an error raised by this
// module itself such as dispatch's "pool closed".
type DataAccessError struct {
	Msg   string
	Cause error
}

func (e *DataAccessError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "data access error"
}

func (e *DataAccessError) Unwrap() error { return e.Cause }

// IsSentinel reports whether this DataAccessError is one of the two bare
// wrapper messages the reactive/blocking bridge produces, as opposed to a
// concrete driver error that happens to also be a *DataAccessError.
func (e *DataAccessError) IsSentinel() bool {
	return e.Msg == "Rollback caused" || e.Msg == "Exception when blocking on publisher"
}

// ErrMoreThanOneRecord is raised by Single/SingleOrNull when a second row is
// observed where at most one was expected.
type ErrMoreThanOneRecord struct{}

func (ErrMoreThanOneRecord) Error() string { return "More than one record match the condition" }

// ErrNoSuchElement is raised by Single and First when zero rows are produced.
type ErrNoSuchElement struct{}

func (ErrNoSuchElement) Error() string { return "No records match the condition" }

// ErrUnexpectedNullField is raised by Count and any helper asserting
// non-nullability of a field value.
type ErrUnexpectedNullField struct {
	Field string
}

func (e ErrUnexpectedNullField) Error() string {
	return "unexpected null field: " + e.Field
}

// ErrUnknownPoolType is raised by poolmeta.Derive for an unrecognized
// connection-pool object.
type ErrUnknownPoolType struct {
	TypeName string
}

func (e ErrUnknownPoolType) Error() string {
	return "poolmeta: unknown pool type: " + e.TypeName
}
