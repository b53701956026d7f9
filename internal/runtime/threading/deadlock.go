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

import "github.com/kestrelvm/kestrel/pkg/metrics"

// DeadlockAvoidingBlock parks a runtime thread that is blocking while it
// holds, or is mid-acquisition of, a runtime lock the coordinator itself
// may need. Plain blocking there is a proven deadlock: the coordinator
// waits on the lock this thread holds while this thread waits on the
// coordinator. The guard breaks the cycle by surrendering the lock in the
// caller-supplied slot before waiting; a nil slot value afterwards is the
// single authoritative signal that the lock was released on the caller's
// behalf.
type DeadlockAvoidingBlock struct {
	thread *Thread
	slot   *Lock
	exited bool
}

// EnterBlockedWithDeadlockCheck publishes the blocked state without
// polling, then re-checks for a pending stop request; if one is pending the
// in-flight lock is released before the thread actually waits. slot must
// point at the caller's own lock pointer; it may hold nil when nothing has
// been acquired yet.
func EnterBlockedWithDeadlockCheck(t *Thread, slot *Lock) *DeadlockAvoidingBlock {
	if slot == nil {
		violationf("deadlock-avoiding block on thread %s without a lock slot", t.name)
	}
	verifyState(t, StateInRuntime)

	// publish only; the poll is deferred until the in-flight lock can be
	// surrendered
	t.setState(StateBlocked)

	d := &DeadlockAvoidingBlock{thread: t, slot: slot}
	if t.sync.ShouldProcess(t) {
		d.releaseInFlight()
		t.sync.ProcessIfRequested(t, false)
	}
	return d
}

// releaseInFlight surrenders the lock in the slot, at most once: the nulled
// slot makes a second call a no-op.
func (d *DeadlockAvoidingBlock) releaseInFlight() {
	if held := *d.slot; held != nil {
		*d.slot = nil
		held.ReleaseForSafepoint()
		metrics.SafepointLockReleaseTotal.Inc()
	}
}

// Exit transitions back to runtime code. The shadow publish is fenced so
// the coordinator sees the wakeup; if a stop request arrived while the
// thread was parked, the in-flight lock is surrendered before waiting it
// out.
func (d *DeadlockAvoidingBlock) Exit() {
	if d.exited {
		violationf("deadlock-avoiding block on thread %s exited twice", d.thread.name)
	}
	d.exited = true

	t := d.thread
	verifyState(t, StateBlocked)

	t.setState(StateInRuntimeTrans)
	if t.sync.ShouldProcess(t) {
		d.releaseInFlight()
		t.sync.ProcessIfRequested(t, false)
	}
	t.setState(StateInRuntime)

	metrics.ThreadStateTransitionTotal.WithLabelValues(StateBlocked.String(), StateInRuntime.String()).Inc()
}
