// Copyright (C) 2024-2026 Kestrel VM Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

// Package log provides the process-global structured logger.
//
// The runtime's transition fast paths never log; only lifecycle events
// (thread registration, safepoint begin/end, protocol aborts) go through
// this package.
package log

import (
	"context"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global     atomic.Pointer[zap.Logger]
	levelValue zap.AtomicLevel
)

type ctxLogKeyType struct{}

var ctxLogKey ctxLogKeyType

func init() {
	levelValue = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = levelValue
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	global.Store(logger)
}

// L returns the global logger.
func L() *zap.Logger {
	return global.Load()
}

// ReplaceGlobal swaps the global logger, returning a func restoring the
// previous one. Used by tests and by embedders that bring their own logger.
func ReplaceGlobal(logger *zap.Logger) func() {
	prev := global.Swap(logger)
	return func() { global.Store(prev) }
}

// SetLevel changes the global log level at runtime.
func SetLevel(level zapcore.Level) {
	levelValue.SetLevel(level)
}

// GetLevel returns the current global log level.
func GetLevel() zapcore.Level {
	return levelValue.Level()
}

// WithContext returns a context carrying the given logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxLogKey, logger)
}

// Ctx returns the logger bound to ctx, or the global logger.
func Ctx(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLogKey).(*zap.Logger); ok {
			return logger
		}
	}
	return L()
}

// With creates a child of the global logger with the given fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
}
