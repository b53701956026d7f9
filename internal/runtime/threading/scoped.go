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

package threading

import "github.com/kestrelvm/kestrel/pkg/util/verr"

// ScopedTransition pairs an entry transition with its guaranteed reverse.
// Enter* performs the into transition; Exit must run on every exit path,
// so callers defer it immediately:
//
//	st := threading.EnterRuntimeFromManaged(t)
//	defer st.Exit()
//
// The deferred Exit runs even when the protected region panics, so the
// coordinator never observes a thread abandoned in an unsafe state.
type ScopedTransition struct {
	thread *Thread

	// reverse transition performed by Exit
	exitFrom State
	exitTo   State

	// deliver one queued interrupt when Exit re-enters managed code
	allowAsync bool

	// noop guards constructed by the unknown-context helper over a thread
	// already in the target state
	noop bool

	exited bool
}

// Exit performs the reverse transition. It returns the asynchronous
// interrupt delivered at the managed-entry checkpoint, nil otherwise.
// Exiting twice is a protocol violation.
func (st *ScopedTransition) Exit() error {
	if st.noop {
		return nil
	}
	if st.exited {
		violationf("scoped transition on thread %s exited twice", st.thread.name)
	}
	st.exited = true

	Transition(st.thread, st.exitFrom, st.exitTo, st.allowAsync)
	if st.allowAsync && st.exitTo == StateInManaged {
		return st.thread.TakeDeliveredInterrupt()
	}
	return nil
}

// EnterRuntimeFromManaged guards a managed-code call into the runtime.
// Exit re-enters managed code and may deliver a queued asynchronous
// interrupt.
func EnterRuntimeFromManaged(t *Thread) *ScopedTransition {
	Transition(t, StateInManaged, StateInRuntime, false)
	return &ScopedTransition{
		thread:     t,
		exitFrom:   StateInRuntime,
		exitTo:     StateInManaged,
		allowAsync: true,
	}
}

// EnterRuntimeFromManagedNoAsync is EnterRuntimeFromManaged with interrupt
// delivery suppressed, for regions where raising one would be unsafe, e.g.
// resource cleanup.
func EnterRuntimeFromManagedNoAsync(t *Thread) *ScopedTransition {
	Transition(t, StateInManaged, StateInRuntime, false)
	return &ScopedTransition{
		thread:   t,
		exitFrom: StateInRuntime,
		exitTo:   StateInManaged,
	}
}

// EnterRuntimeFromNative guards externally-called native code re-entering
// the runtime.
func EnterRuntimeFromNative(t *Thread) *ScopedTransition {
	Transition(t, StateInNative, StateInRuntime, false)
	return &ScopedTransition{
		thread:   t,
		exitFrom: StateInRuntime,
		exitTo:   StateInNative,
	}
}

// EnterNativeFromRuntime guards runtime code calling out to native code.
func EnterNativeFromRuntime(t *Thread) *ScopedTransition {
	Transition(t, StateInRuntime, StateInNative, false)
	return &ScopedTransition{
		thread:   t,
		exitFrom: StateInNative,
		exitTo:   StateInRuntime,
	}
}

// EnterBlockedFromRuntime guards runtime code voluntarily parking. The exit
// transition re-checks for a pending stop request and waits again if one
// arrived while the thread was parked, closing that race. The thread must
// not hold runtime locks the coordinator may need; see
// EnterBlockedWithDeadlockCheck for that case.
func EnterBlockedFromRuntime(t *Thread) *ScopedTransition {
	Transition(t, StateInRuntime, StateBlocked, false)
	return &ScopedTransition{
		thread:   t,
		exitFrom: StateBlocked,
		exitTo:   StateInRuntime,
	}
}

// EnterRuntimeFromUnknown guards callbacks that do not know their caller's
// state. Already in runtime code it does nothing; in native code it
// performs the transition and reverses it on Exit. Any other state is a
// contract breach.
func EnterRuntimeFromUnknown(t *Thread) *ScopedTransition {
	switch s := t.State(); s {
	case StateInRuntime:
		return &ScopedTransition{thread: t, noop: true}
	case StateInNative:
		return EnterRuntimeFromNative(t)
	default:
		violationf("unknown-context guard on thread %s in state %s", t.name, s)
		return nil
	}
}

// RunInRuntimeFromManaged runs body with t in runtime state and restores
// the managed state on every exit path. The returned error combines the
// body's error with any interrupt delivered on re-entry.
func RunInRuntimeFromManaged(t *Thread, body func() error) (err error) {
	st := EnterRuntimeFromManaged(t)
	defer func() {
		err = verr.Combine(err, st.Exit())
	}()
	return body()
}

// RunInRuntimeFromNative runs body with t in runtime state, entered from
// native code.
func RunInRuntimeFromNative(t *Thread, body func() error) (err error) {
	st := EnterRuntimeFromNative(t)
	defer func() {
		err = verr.Combine(err, st.Exit())
	}()
	return body()
}

// RunBlocked parks t around body, typically a wait on some resource.
func RunBlocked(t *Thread, body func() error) (err error) {
	st := EnterBlockedFromRuntime(t)
	defer func() {
		err = verr.Combine(err, st.Exit())
	}()
	return body()
}
