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

// Package safepoint implements the global synchronization side of the
// thread-state protocol: a Mechanism mutator threads poll and park on, and
// a Coordinator that posts stop-the-world requests over the live thread
// set.
package safepoint

import (
	"context"

	"go.uber.org/atomic"

	"github.com/kestrelvm/kestrel/internal/runtime/threading"
	"github.com/kestrelvm/kestrel/pkg/util/paramtable"
	"github.com/kestrelvm/kestrel/pkg/util/syncutil"
)

// Mechanism is the synchronizer mutator threads consult at every guarded
// transition. A single pending flag covers all threads; the versioned
// notifier wakes parked mutators when the request completes.
type Mechanism struct {
	pending  atomic.Bool
	notifier *syncutil.VersionedNotifier

	spinIterations int
}

var _ threading.Synchronizer = (*Mechanism)(nil)

func NewMechanism() *Mechanism {
	paramtable.Init()
	return &Mechanism{
		notifier:       syncutil.NewVersionedNotifier(),
		spinIterations: paramtable.Get().RuntimeCfg.SafepointSpinIterations.GetAsInt(),
	}
}

// ShouldProcess is the non-blocking poll.
func (m *Mechanism) ShouldProcess(t *threading.Thread) bool {
	return m.pending.Load()
}

// ProcessIfRequested blocks t until the pending request, if any, completes.
// The thread is marked parked for the whole wait so the coordinator counts
// it as stopped even though its published state is an unsafe shadow.
// Interrupt delivery for allowAsync happens at the managed-entry checkpoint
// in the transition guard, not here.
func (m *Mechanism) ProcessIfRequested(t *threading.Thread, allowAsync bool) {
	if !m.pending.Load() {
		return
	}

	// brief spin: most requests clear quickly under low thread counts
	for i := 0; i < m.spinIterations; i++ {
		if !m.pending.Load() {
			return
		}
	}

	t.SetSafepointParked(true)
	defer t.SetSafepointParked(false)

	for {
		listener := m.notifier.Listen(syncutil.VersionedListenAtLatest)
		if !m.pending.Load() {
			return
		}
		// waits are only ended by the coordinator; no caller context here,
		// a mutator inside a transition has nothing to cancel with
		_ = listener.Wait(context.Background())
	}
}

// post makes a request pending. Coordinator only.
func (m *Mechanism) post() {
	m.pending.Store(true)
}

// complete clears the request and wakes every parked mutator.
func (m *Mechanism) complete() {
	m.pending.Store(false)
	m.notifier.NotifyAll()
}
