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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrThreadNotRegistered("mutator-1")
	err = errors.Wrap(err, "failed to stop thread")
	s.ErrorIs(err, ErrThreadNotRegistered)
	s.Equal(Code(ErrThreadNotRegistered), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newKestrelError("new error", ErrThreadNotRegistered.errCode, false)
	s.True(sameCodeErr.Is(ErrThreadNotRegistered))
}

func (s *ErrSuite) TestWrap() {
	// Safepoint related
	s.ErrorIs(WrapErrSafepointActive("coordinator", "begin rejected"), ErrSafepointActive)
	s.ErrorIs(WrapErrSafepointWaitCanceled(context.Canceled), ErrSafepointWaitCanceled)
	s.ErrorIs(WrapErrSafepointWaitCanceled(context.Canceled), context.Canceled)

	// Thread related
	s.ErrorIs(WrapErrThreadInterrupted("mutator-1", "delivered at managed entry"), ErrThreadInterrupted)
	s.ErrorIs(WrapErrThreadNotRegistered("mutator-1"), ErrThreadNotRegistered)
	s.ErrorIs(WrapErrThreadAlreadyRegistered("mutator-1"), ErrThreadAlreadyRegistered)
	s.ErrorIs(WrapErrThreadInterruptOverflow("mutator-1", 64), ErrThreadInterruptOverflow)

	// Parameter related
	s.ErrorIs(WrapErrParameterInvalid("positive interval", "-1ms"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad key %s", "runtime.safepoint"), ErrParameterInvalid)

	// Worker pool related
	s.ErrorIs(WrapErrPoolInternal(errors.New("submit failed")), ErrPoolInternal)
}

func (s *ErrSuite) TestRetryable() {
	s.True(IsRetryable(ErrSafepointActive))
	s.False(IsRetryable(ErrThreadInterrupted))
	s.False(IsRetryable(nil))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
	)

	err := Combine(errFirst, nil, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.Contains(err.Error(), "first")
	s.Contains(err.Error(), "second")

	s.NoError(Combine(nil, nil))
	s.ErrorIs(Combine(nil, errFirst), errFirst)
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
