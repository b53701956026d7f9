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

package safepoint

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/kestrelvm/kestrel/internal/runtime/registry"
	"github.com/kestrelvm/kestrel/internal/runtime/threading"
	"github.com/kestrelvm/kestrel/internal/runtime/vmlock"
	"github.com/kestrelvm/kestrel/pkg/util/verr"
)

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newWorld() (*Mechanism, *registry.Registry, *Coordinator) {
	mech := NewMechanism()
	reg := registry.NewRegistry()
	return mech, reg, NewCoordinator(mech, reg)
}

func TestMechanismNoPending(t *testing.T) {
	mech := NewMechanism()
	th := threading.NewThread("mutator", mech)
	th.Attach()

	assert.False(t, mech.ShouldProcess(th))

	done := make(chan struct{})
	go func() {
		mech.ProcessIfRequested(th, false)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll blocked with no pending request")
	}
	assert.False(t, th.SafepointParked())
}

func TestMechanismParksUntilComplete(t *testing.T) {
	mech := NewMechanism()
	th := threading.NewThread("mutator", mech)
	th.Attach()

	mech.post()
	require.True(t, mech.ShouldProcess(th))

	resumed := make(chan struct{})
	go func() {
		mech.ProcessIfRequested(th, false)
		close(resumed)
	}()

	eventually(t, th.SafepointParked)
	select {
	case <-resumed:
		t.Fatal("poll returned while the request was still pending")
	case <-time.After(20 * time.Millisecond):
	}

	mech.complete()
	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Fatal("parked mutator was not released")
	}
	assert.False(t, th.SafepointParked())
	assert.False(t, mech.ShouldProcess(th))
}

func TestBeginWhileActive(t *testing.T) {
	_, _, coord := newWorld()
	defer coord.Close()

	require.NoError(t, coord.Begin())
	assert.ErrorIs(t, coord.Begin(), verr.ErrSafepointActive)
	coord.End()
	require.NoError(t, coord.Begin())
	coord.End()
}

func TestWaitUntilStoppedCanceled(t *testing.T) {
	mech, reg, coord := newWorld()
	defer coord.Close()

	// attached and settled unsafe in runtime state, never polling
	th := threading.NewThread("mutator-stuck", mech)
	th.Attach()
	require.NoError(t, reg.Register(th))

	require.NoError(t, coord.Begin())
	defer coord.End()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := coord.WaitUntilStopped(ctx)
	assert.ErrorIs(t, err, verr.ErrSafepointWaitCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// A mutator inside a runtime region when the world stops must park on its
// way back into managed code, and a suppressed-delivery region must leave
// queued interrupts untouched.
func TestRuntimeRegionHeldAcrossStop(t *testing.T) {
	mech, reg, coord := newWorld()
	defer coord.Close()

	th := threading.NewThread("mutator", mech)
	th.Attach()
	threading.Transition(th, threading.StateInRuntime, threading.StateInManaged, false)
	require.NoError(t, reg.Register(th))

	st := threading.EnterRuntimeFromManagedNoAsync(th)
	require.Equal(t, threading.StateInRuntime, th.State())
	require.NoError(t, th.PostInterrupt(errors.New("async stop")))

	require.NoError(t, coord.Begin())

	exitErr := make(chan error, 1)
	go func() {
		exitErr <- st.Exit()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, coord.WaitUntilStopped(ctx))

	// the region exit is parked in the managed-entry shadow
	assert.True(t, th.SafepointParked())
	assert.Equal(t, threading.StateInManagedTrans, th.State())
	select {
	case <-exitErr:
		t.Fatal("managed re-entry completed while the world was stopped")
	case <-time.After(20 * time.Millisecond):
	}

	coord.End()
	select {
	case err := <-exitErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("managed re-entry did not resume after release")
	}
	assert.Equal(t, threading.StateInManaged, th.State())

	// delivery was suppressed, the interrupt stays queued
	assert.Equal(t, 1, th.PendingInterrupts())
	assert.NoError(t, th.TakeDeliveredInterrupt())
}

// A mutator blocking while it holds a runtime lock must surrender the lock
// to a pending stop request instead of deadlocking the coordinator.
func TestBlockedMutatorSurrendersLock(t *testing.T) {
	mech, reg, coord := newWorld()
	defer coord.Close()

	th := threading.NewThread("mutator", mech)
	th.Attach()
	require.NoError(t, reg.Register(th))

	heap := vmlock.NewMutex("heap_lock")
	heap.Lock(th)
	require.True(t, heap.OwnedBy(th))

	require.NoError(t, coord.Begin())

	var surrendered atomic.Bool
	exited := make(chan struct{})
	go func() {
		var held threading.Lock = heap
		blocked := threading.EnterBlockedWithDeadlockCheck(th, &held)
		blocked.Exit()
		surrendered.Store(held == nil)
		close(exited)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, coord.WaitUntilStopped(ctx))

	// the lock is free for the coordinator's own use while th is parked
	assert.False(t, heap.OwnedBy(th))
	aux := threading.NewThread("coordinator-worker", mech)
	require.True(t, heap.TryLock(aux))
	heap.Unlock(aux)

	coord.End()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("blocked region did not exit after release")
	}
	assert.True(t, surrendered.Load())
	assert.Equal(t, threading.StateInRuntime, th.State())
}

func TestStopTheWorldInspectsQuiescedThreads(t *testing.T) {
	mech, reg, coord := newWorld()
	defer coord.Close()

	const mutators = 4
	var done atomic.Bool
	finished := make(chan struct{}, mutators)
	threads := make([]*threading.Thread, 0, mutators)

	for i := 0; i < mutators; i++ {
		th := threading.NewThread("mutator-load", mech)
		require.NoError(t, reg.Register(th))
		threads = append(threads, th)
		go func(th *threading.Thread) {
			th.Attach()
			threading.Transition(th, threading.StateInRuntime, threading.StateInManaged, false)
			for !done.Load() {
				st := threading.EnterRuntimeFromManaged(th)
				_ = st.Exit()
			}
			threading.Transition(th, threading.StateInManaged, threading.StateInNative, false)
			finished <- struct{}{}
		}(th)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := coord.StopTheWorld(ctx, func() error {
		return coord.ForEachStopped(func(th *threading.Thread) error {
			if !th.Stopped() {
				return errors.Newf("thread %s not stopped under a held request", th.Name())
			}
			return nil
		})
	})
	require.NoError(t, err)

	done.Store(true)
	for i := 0; i < mutators; i++ {
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatal("mutator did not wind down")
		}
	}
	for _, th := range threads {
		assert.Equal(t, threading.StateInNative, th.State())
		assert.True(t, th.Stopped())
	}
}
