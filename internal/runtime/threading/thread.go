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
	"sync"

	"go.uber.org/atomic"

	"github.com/kestrelvm/kestrel/pkg/metrics"
	"github.com/kestrelvm/kestrel/pkg/util/paramtable"
	"github.com/kestrelvm/kestrel/pkg/util/verr"
)

// Synchronizer is the safepoint mechanism side consumed by transitions.
// ProcessIfRequested may block the calling thread until the coordinator
// finishes its global operation.
type Synchronizer interface {
	ShouldProcess(t *Thread) bool
	ProcessIfRequested(t *Thread, allowAsync bool)
}

// Lock is the slice of the runtime-lock surface this protocol needs: the
// ability to surrender a partially acquired lock to a pending stop request.
type Lock interface {
	ReleaseForSafepoint()
}

var nextThreadID atomic.Int64

// Thread is the per-mutator control block the protocol mutates. The state
// field is written only by the owning goroutine, through the transition
// guards, and read by any thread.
type Thread struct {
	id   int64
	name string

	state atomic.Int32

	// parked is set by the synchronizer while this thread waits inside
	// ProcessIfRequested, letting the coordinator count a waiting
	// unsafe-state thread as stopped.
	parked atomic.Bool

	anchor    StackAnchor
	guardPage GuardPage

	sync Synchronizer

	interruptMu    sync.Mutex
	interrupts     []error
	interruptLimit int
	delivered      error
}

// NewThread returns a control block in StateNew bound to the given
// synchronizer. The thread enters the protocol via Attach.
func NewThread(name string, sync Synchronizer) *Thread {
	paramtable.Init()
	t := &Thread{
		id:             nextThreadID.Inc(),
		name:           name,
		sync:           sync,
		interruptLimit: paramtable.Get().RuntimeCfg.InterruptQueueLimit.GetAsInt(),
	}
	t.state.Store(int32(StateNew))
	t.guardPage.zoneSize = paramtable.Get().RuntimeCfg.GuardZoneSize.GetAsInt64()
	t.guardPage.enabled.Store(true)
	t.anchor.walkable.Store(true)
	return t
}

func (t *Thread) ID() int64 {
	return t.id
}

func (t *Thread) Name() string {
	return t.name
}

// State returns the last published state. Go atomics give the
// sequentially-consistent ordering the protocol's fenced publishes need.
func (t *Thread) State() State {
	return State(t.state.Load())
}

// setState publishes a new state. Only transition guards call this.
func (t *Thread) setState(s State) {
	t.state.Store(int32(s))
}

// Anchor exposes the stack-walkability metadata.
func (t *Thread) Anchor() *StackAnchor {
	return &t.anchor
}

// GuardPage exposes the stack-overflow guard zone.
func (t *Thread) GuardPage() *GuardPage {
	return &t.guardPage
}

// SetSafepointParked marks t as waiting inside the safepoint mechanism.
// Only the synchronizer calls this, from the owning goroutine.
func (t *Thread) SetSafepointParked(parked bool) {
	t.parked.Store(parked)
}

// SafepointParked reports whether t currently waits inside the mechanism.
func (t *Thread) SafepointParked() bool {
	return t.parked.Load()
}

// Stopped reports whether the coordinator may treat t as quiesced: parked
// at a safepoint, or settled in a safe state. A transitional shadow means
// the observation is torn and the coordinator must re-poll.
func (t *Thread) Stopped() bool {
	if t.parked.Load() {
		return true
	}
	s := t.State()
	return !s.Transitional() && s.Safe()
}

// Attach moves a new thread into the protocol. Every thread starts in
// runtime code before it can run managed code.
func (t *Thread) Attach() {
	Transition(t, StateNew, StateInRuntime, false)
}

// PostInterrupt queues err for asynchronous delivery at the next
// managed-entry checkpoint that allows it. Any thread may post.
func (t *Thread) PostInterrupt(err error) error {
	if err == nil {
		return verr.WrapErrParameterInvalidMsg("nil interrupt posted to thread %s", t.name)
	}
	t.interruptMu.Lock()
	defer t.interruptMu.Unlock()
	if len(t.interrupts) >= t.interruptLimit {
		return verr.WrapErrThreadInterruptOverflow(t.name, t.interruptLimit)
	}
	t.interrupts = append(t.interrupts, err)
	metrics.ThreadInterruptPostedTotal.Inc()
	return nil
}

// PendingInterrupts returns the number of queued interrupts.
func (t *Thread) PendingInterrupts() int {
	t.interruptMu.Lock()
	defer t.interruptMu.Unlock()
	return len(t.interrupts)
}

// deliverPendingInterrupt moves at most one queued interrupt to the
// delivered slot. Runs only at the managed-entry checkpoint.
func (t *Thread) deliverPendingInterrupt() {
	t.interruptMu.Lock()
	defer t.interruptMu.Unlock()
	if t.delivered != nil || len(t.interrupts) == 0 {
		return
	}
	t.delivered = t.interrupts[0]
	t.interrupts = t.interrupts[1:]
}

// TakeDeliveredInterrupt returns and clears the interrupt delivered by the
// last managed entry, nil if none.
func (t *Thread) TakeDeliveredInterrupt() error {
	t.interruptMu.Lock()
	defer t.interruptMu.Unlock()
	err := t.delivered
	t.delivered = nil
	if err == nil {
		return nil
	}
	return verr.WrapErrThreadInterrupted(t.name, err.Error())
}
