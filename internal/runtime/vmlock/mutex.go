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

// Package vmlock provides the runtime-internal mutex whose contended
// acquisition cooperates with stop-the-world requests. A mutator that
// parks on one of these locks surrenders an in-flight acquisition to a
// pending request instead of deadlocking against the coordinator.
package vmlock

import (
	"go.uber.org/atomic"

	"github.com/kestrelvm/kestrel/internal/runtime/threading"
	"github.com/kestrelvm/kestrel/pkg/log"
)

// Mutex is a non-reentrant runtime lock. Acquisition and release must run
// on a thread settled in runtime state; the contended path blocks through
// the deadlock-avoiding guard so the coordinator can reclaim the lock from
// a thread it is about to park.
//
// The free token lives in a one-slot channel; whoever drains the channel
// holds the lock.
type Mutex struct {
	name  string
	sem   chan struct{}
	owner atomic.Int64 // owning thread id, 0 when free or in flight
}

func NewMutex(name string) *Mutex {
	m := &Mutex{
		name: name,
		sem:  make(chan struct{}, 1),
	}
	m.sem <- struct{}{}
	return m
}

func (m *Mutex) Name() string {
	return m.name
}

// OwnedBy reports whether t currently owns the lock.
func (m *Mutex) OwnedBy(t *threading.Thread) bool {
	return m.owner.Load() == t.ID()
}

// TryLock acquires the lock without blocking.
func (m *Mutex) TryLock(t *threading.Thread) bool {
	if m.owner.Load() == t.ID() {
		threading.Abortf("thread %s re-acquiring runtime lock %s it already owns", t.Name(), m.name)
	}
	select {
	case <-m.sem:
		m.owner.Store(t.ID())
		return true
	default:
		return false
	}
}

// Lock acquires the lock, parking t in blocked state while it waits. If a
// stop request lands while the acquisition is in flight, the token is
// surrendered back to the lock and the acquisition restarts after the
// request completes.
func (m *Mutex) Lock(t *threading.Thread) {
	if m.TryLock(t) {
		return
	}

	log.Debug("runtime lock contended", log.FieldModule("vmlock"),
		log.FieldThread(t.Name()), log.FieldComponent(m.name))

	for {
		var inFlight threading.Lock
		blocked := threading.EnterBlockedWithDeadlockCheck(t, &inFlight)
		<-m.sem
		// in flight: drained but not yet owned, exactly the window the
		// guard may reclaim it in
		inFlight = m
		blocked.Exit()
		if inFlight != nil {
			m.owner.Store(t.ID())
			return
		}
		// surrendered to a stop request; the request has completed by the
		// time Exit returns, so contend again
	}
}

// Unlock releases the lock. Releasing a lock the thread does not own is a
// fatal protocol violation.
func (m *Mutex) Unlock(t *threading.Thread) {
	if m.owner.Load() != t.ID() {
		threading.Abortf("thread %s releasing runtime lock %s it does not own", t.Name(), m.name)
	}
	m.owner.Store(0)
	m.sem <- struct{}{}
}

// ReleaseForSafepoint surrenders the lock back on behalf of the thread
// whose slot held it. Only the deadlock-avoiding guard calls this. The
// slot may hold either an owned lock (the caller blocked while holding
// it) or an in-flight acquisition whose ownership was never published;
// both collapse to clearing the owner and returning the token.
func (m *Mutex) ReleaseForSafepoint() {
	m.owner.Store(0)
	select {
	case m.sem <- struct{}{}:
	default:
		threading.Abortf("runtime lock %s surrendered while its token is free", m.name)
	}
}

var _ threading.Lock = (*Mutex)(nil)
