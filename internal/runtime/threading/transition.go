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

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrelvm/kestrel/pkg/log"
	"github.com/kestrelvm/kestrel/pkg/metrics"
)

// ProtocolViolation is the fatal fault raised when a caller breaks the
// transition contract. It must never be recovered: once a thread's state
// cannot be trusted, the stop-the-world safety argument holds for no
// thread.
type ProtocolViolation struct {
	msg string
}

func (v *ProtocolViolation) Error() string {
	return v.msg
}

func violationf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error("thread-state protocol violation, aborting",
		log.FieldModule("threading"), zap.String("reason", msg))
	panic(&ProtocolViolation{msg: msg})
}

// Abortf raises a fatal protocol violation. For collaborators (locking
// primitives, call-site glue) whose invariants are part of the same safety
// argument; never for recoverable conditions.
func Abortf(format string, args ...any) {
	violationf(format, args...)
}

func verifyState(t *Thread, expected State) {
	if cur := t.State(); cur != expected {
		violationf("thread %s is in state %s, expected %s", t.name, cur, expected)
	}
}

// Transition performs one guarded state change on t. The calling goroutine
// must own t. Illegal (from, to) pairs abort the process; they are caller
// bugs, never recoverable conditions.
//
// allowAsync only matters when to is StateInManaged: it permits delivery of
// one queued asynchronous interrupt at the managed-entry checkpoint.
func Transition(t *Thread, from, to State, allowAsync bool) {
	if !IsLegal(from, to) {
		violationf("illegal thread state transition %s -> %s on thread %s", from, to, t.name)
	}

	switch {
	case to == StateInManaged:
		enterManaged(t, from, allowAsync)
	case from.Unsafe():
		leaveUnsafe(t, from, to)
	case to == StateInRuntime:
		enterRuntime(t, from)
	default:
		violationf("unroutable thread state transition %s -> %s on thread %s", from, to, t.name)
	}

	metrics.ThreadStateTransitionTotal.WithLabelValues(from.String(), to.String()).Inc()
}

// enterRuntime moves a thread from a safe state into runtime code. The
// shadow publish is a sequentially-consistent store, so a coordinator that
// observes it also observes everything the transition depended on; the
// poll below may park the thread until a pending stop request completes.
func enterRuntime(t *Thread, from State) {
	verifyState(t, from)

	t.setState(StateInRuntimeTrans)
	t.sync.ProcessIfRequested(t, false)
	t.setState(StateInRuntime)
}

// enterManaged moves a thread back into managed code. Order matters:
// guard pages re-arm first, the shadow state publishes with full ordering,
// the safepoint poll may block, interrupts deliver only if allowed, and
// the stack stops being walkable strictly before the settled state becomes
// visible.
func enterManaged(t *Thread, from State, allowAsync bool) {
	verifyState(t, from)

	if !t.guardPage.Enabled() {
		t.guardPage.Enable()
	}

	t.setState(StateInManagedTrans)
	t.sync.ProcessIfRequested(t, allowAsync)
	if allowAsync {
		t.deliverPendingInterrupt()
	}
	t.anchor.clearWalkable()
	t.setState(StateInManaged)
}

// leaveUnsafe moves a thread out of managed or runtime code into a state
// the coordinator treats as stopped. No poll happens in this direction; the
// thread is becoming safer, not less safe. Leaving managed code publishes
// the stack anchor before the state store, so an observer that sees the new
// state is guaranteed a walkable stack.
func leaveUnsafe(t *Thread, from, to State) {
	verifyState(t, from)

	if from == StateInManaged {
		t.anchor.makeWalkable()
	} else if !t.anchor.Walkable() {
		violationf("thread %s leaving %s with unwalkable stack", t.name, from)
	}

	t.setState(to)
}
