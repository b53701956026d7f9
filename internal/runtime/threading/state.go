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

// Package threading implements the cooperative thread-state protocol the
// runtime uses to bring every mutator thread to a stoppable point without a
// suspend signal.
//
// Each mutator carries an explicit State, single-writer (the owning
// goroutine) and multi-reader (the coordinator). Crossing the
// managed/runtime/native/blocked boundaries goes through a guarded
// transition that publishes the new state and, on the interruptible
// directions, polls for a pending stop request. The guards here are the
// only writers of the state field.
package threading

// State is the externally visible scheduling state of a mutator thread.
//
// InNative and Blocked are safe: the coordinator may treat a thread in
// either as already quiesced, since native code never touches managed
// memory and blocked threads are parked. InManaged and InRuntime are
// unsafe: the thread itself must cooperate before it can be considered
// stopped. The Trans shadows mark the window between "decided to
// transition" and "fully transitioned" so an observing coordinator can tell
// an in-flight change from a settled state.
type State int32

const (
	// StateNew is a thread object that has not started running.
	StateNew State = iota
	// StateInNative is externally-called native code, safe to stop.
	StateInNative
	// StateBlocked is a voluntarily parked thread, safe to stop.
	StateBlocked
	// StateInRuntime is runtime-internal code run on behalf of managed
	// code; may hold runtime locks.
	StateInRuntime
	// StateInRuntimeTrans is the in-flight shadow of StateInRuntime.
	StateInRuntimeTrans
	// StateInManaged is interpreted or compiled program code; the stack may
	// be mid-mutation and is not walkable.
	StateInManaged
	// StateInManagedTrans is the in-flight shadow of StateInManaged.
	StateInManagedTrans

	stateCount
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateInNative:
		return "InNative"
	case StateBlocked:
		return "Blocked"
	case StateInRuntime:
		return "InRuntime"
	case StateInRuntimeTrans:
		return "InRuntimeTrans"
	case StateInManaged:
		return "InManaged"
	case StateInManagedTrans:
		return "InManagedTrans"
	}
	return "Unknown"
}

// Transitional reports whether s is a shadow published while a transition
// is still in flight.
func (s State) Transitional() bool {
	return s == StateInRuntimeTrans || s == StateInManagedTrans
}

// Settled resolves a transitional shadow to its destination state.
func (s State) Settled() State {
	if s.Transitional() {
		return s - 1
	}
	return s
}

// transitionalOf returns the shadow for a settled unsafe state.
func transitionalOf(s State) State {
	switch s {
	case StateInRuntime:
		return StateInRuntimeTrans
	case StateInManaged:
		return StateInManagedTrans
	}
	return s
}

// Safe reports whether the coordinator may treat a thread settled in s as
// already quiesced. Transitional shadows are never safe: the observer must
// wait for the transition to settle.
func (s State) Safe() bool {
	return s == StateNew || s == StateInNative || s == StateBlocked
}

// Unsafe is the complement of Safe.
func (s State) Unsafe() bool {
	return !s.Safe()
}

// legalTransitions enumerates every allowed (from, to) pair over settled
// states. Anything outside this table is a caller bug and aborts; there is
// no permissive fallback. Blocked never re-enters managed code directly, an
// intermediate InRuntime step is required.
var legalTransitions = [stateCount][stateCount]bool{
	StateNew: {
		StateInRuntime: true,
	},
	StateInManaged: {
		StateInRuntime: true,
		StateInNative:  true,
	},
	StateInRuntime: {
		StateInManaged: true,
		StateInNative:  true,
		StateBlocked:   true,
	},
	StateInNative: {
		StateInManaged: true,
		StateInRuntime: true,
	},
	StateBlocked: {
		StateInRuntime: true,
	},
}

// IsLegal reports whether a direct (from, to) transition is allowed.
// Transitional shadows are internal and never legal endpoints.
func IsLegal(from, to State) bool {
	if from < 0 || from >= stateCount || to < 0 || to >= stateCount {
		return false
	}
	if from.Transitional() || to.Transitional() {
		return false
	}
	return legalTransitions[from][to]
}
