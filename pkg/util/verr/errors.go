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

// Package verr defines the error taxonomy of the Kestrel runtime.
//
// These are the recoverable errors. Protocol violations (illegal thread
// state transitions, lock misuse) are NOT errors; they abort via panic in
// the package that detects them because the stop-the-world safety argument
// no longer holds once one occurs.
package verr

import (
	"github.com/cockroachdb/errors"
)

const (
	retryableFlag       = 1 << 16
	CanceledCode  int32 = 10000
	TimeoutCode   int32 = 10001
)

// Define leaf errors here,
// WARN: check whether an error below fits before adding a new one.
// Name: Err + related prefix + error name
var (
	// Safepoint related
	ErrSafepointActive       = newKestrelError("safepoint already in progress", 1, true)
	ErrSafepointWaitCanceled = newKestrelError("safepoint wait canceled", 2, false)

	// Thread related
	ErrThreadInterrupted       = newKestrelError("thread interrupted", 100, false)
	ErrThreadNotRegistered     = newKestrelError("thread not registered", 101, false)
	ErrThreadAlreadyRegistered = newKestrelError("thread already registered", 102, false)
	ErrThreadInterruptOverflow = newKestrelError("interrupt queue full", 103, false)

	// Parameter related
	ErrParameterInvalid = newKestrelError("invalid parameter", 200, false)

	// Worker pool related
	ErrPoolInternal = newKestrelError("worker pool internal error", 300, false)

	// Do NOT export this,
	// keep it only for converting unknown errors to kestrelError
	errUnexpected = newKestrelError("unexpected error", (1<<16)-1, false)
)

type kestrelError struct {
	msg     string
	errCode int32
}

func newKestrelError(msg string, code int32, retriable bool) kestrelError {
	if retriable {
		code |= retryableFlag
	}
	return kestrelError{
		msg:     msg,
		errCode: code,
	}
}

func (e kestrelError) code() int32 {
	return e.errCode
}

func (e kestrelError) Error() string {
	return e.msg
}

func (e kestrelError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(kestrelError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// the cause of multi errors is defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}
