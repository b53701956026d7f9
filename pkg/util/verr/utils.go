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

package verr

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Code returns the error code of the given error,
// WARN: DO NOT use this for nil error
// this returns Success for nil
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch cause := cause.(type) {
	case kestrelError:
		return cause.code()
	default:
		if errors.Is(cause, context.Canceled) {
			return CanceledCode
		} else if errors.Is(cause, context.DeadlineExceeded) {
			return TimeoutCode
		}
		return errUnexpected.code()
	}
}

// IsRetryable reports whether the error carries the retryable flag.
func IsRetryable(err error) bool {
	return Code(err)&retryableFlag != 0
}

// Combine combines errors into one error, nil entries are ignored.
func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return multiErrors{errs}
}

func wrapWithField(err error, name string, value any) error {
	return errors.Wrapf(err, "%s=%v", name, value)
}

func appendMsg(err error, msg []string) error {
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Safepoint related

func WrapErrSafepointActive(coordinator string, msg ...string) error {
	return appendMsg(wrapWithField(ErrSafepointActive, "coordinator", coordinator), msg)
}

func WrapErrSafepointWaitCanceled(cause error, msg ...string) error {
	err := errors.Mark(errors.Wrapf(ErrSafepointWaitCanceled, "cause=%v", cause), cause)
	return appendMsg(err, msg)
}

// Thread related

func WrapErrThreadInterrupted(thread string, msg ...string) error {
	return appendMsg(wrapWithField(ErrThreadInterrupted, "thread", thread), msg)
}

func WrapErrThreadNotRegistered(thread string, msg ...string) error {
	return appendMsg(wrapWithField(ErrThreadNotRegistered, "thread", thread), msg)
}

func WrapErrThreadAlreadyRegistered(thread string, msg ...string) error {
	return appendMsg(wrapWithField(ErrThreadAlreadyRegistered, "thread", thread), msg)
}

func WrapErrThreadInterruptOverflow(thread string, limit int, msg ...string) error {
	err := errors.Wrapf(ErrThreadInterruptOverflow, "thread=%s, limit=%d", thread, limit)
	return appendMsg(err, msg)
}

// Parameter related

func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := errors.Wrapf(ErrParameterInvalid, "expected=%v, actual=%v", expected, actual)
	return appendMsg(err, msg)
}

func WrapErrParameterInvalidMsg(fmtMsg string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmtMsg, args...)
}

// Worker pool related

func WrapErrPoolInternal(cause error, msg ...string) error {
	err := errors.Mark(errors.Wrapf(ErrPoolInternal, "cause=%v", cause), cause)
	return appendMsg(err, msg)
}
