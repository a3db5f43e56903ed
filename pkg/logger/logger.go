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

// Package logger provides named, structured loggers on top of zap, in the
// same GetLogger(module, component) shape used throughout this codebase.
package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named structured logger.
type Logger = zap.Logger

// Field is a structured log attribute.
type Field = zap.Field

var root = mustBuild()

func mustBuild() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// GetLogger returns a logger named "module.component", matching every
// other call site in this repository.
func GetLogger(module, component string) *Logger {
	return root.Named(module).Named(component)
}

// SetLevel replaces the root logger with a production logger at level.
// Loggers already returned by GetLogger keep their previous level; only
// later GetLogger calls see the new one.
func SetLevel(level zapcore.Level) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	if l, err := cfg.Build(zap.AddCallerSkip(1)); err == nil {
		root = l
	}
}

// Error wraps err as a structured field.
func Error(err error) Field { return zap.Error(err) }

// Stack captures the current goroutine's stack trace under the key "stack".
func Stack() Field { return zap.Stack("stack") }

// String wraps a string value as a structured field.
func String(key, value string) Field { return zap.String(key, value) }

// Uint64 wraps a uint64 value as a structured field.
func Uint64(key string, value uint64) Field { return zap.Uint64(key, value) }

// Int wraps an int value as a structured field.
func Int(key string, value int) Field { return zap.Int(key, value) }

// Duration wraps a time.Duration value as a structured field.
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Any wraps an arbitrary value as a structured field.
func Any(key string, value any) Field { return zap.Any(key, value) }
