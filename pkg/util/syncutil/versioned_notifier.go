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

// Package syncutil carries small synchronization building blocks shared by
// the runtime, most notably the versioned notifier the safepoint mechanism
// parks mutator threads on.
package syncutil

import (
	"context"
	"sync"
)

type versionedListenPolicy int

const (
	// VersionedListenAtEarliest makes the first Wait observe any
	// notification that ever happened, even one before Listen.
	VersionedListenAtEarliest versionedListenPolicy = iota
	// VersionedListenAtLatest makes Wait observe only notifications after
	// the Listen call.
	VersionedListenAtLatest
)

// VersionedNotifier is a broadcast notifier whose listeners can choose
// whether missed notifications count.
type VersionedNotifier struct {
	mu      sync.Mutex
	version int64
	ch      chan struct{}
}

func NewVersionedNotifier() *VersionedNotifier {
	return &VersionedNotifier{
		ch: make(chan struct{}),
	}
}

// NotifyAll wakes every current listener and advances the version so late
// earliest-policy listeners still observe the event.
func (vn *VersionedNotifier) NotifyAll() {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	vn.version++
	close(vn.ch)
	vn.ch = make(chan struct{})
}

// Listen creates a listener at the given policy.
func (vn *VersionedNotifier) Listen(policy versionedListenPolicy) *VersionedListener {
	vn.mu.Lock()
	defer vn.mu.Unlock()

	seen := vn.version
	if policy == VersionedListenAtEarliest {
		seen = -1
	}
	return &VersionedListener{
		notifier: vn,
		seen:     seen,
	}
}

func (vn *VersionedNotifier) snapshot() (int64, chan struct{}) {
	vn.mu.Lock()
	defer vn.mu.Unlock()
	return vn.version, vn.ch
}

// VersionedListener observes notifications of one VersionedNotifier.
// Not safe for concurrent use by multiple goroutines.
type VersionedListener struct {
	notifier *VersionedNotifier
	seen     int64
}

// Wait blocks until a notification newer than the last observed one
// arrives, or ctx is done.
func (vl *VersionedListener) Wait(ctx context.Context) error {
	for {
		version, ch := vl.notifier.snapshot()
		if version > vl.seen {
			vl.seen = version
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitChan returns a channel closed once a notification newer than the last
// observed one exists. If one already does, the returned channel is closed.
// The observed version advances to the version at the time of the call.
func (vl *VersionedListener) WaitChan() <-chan struct{} {
	version, ch := vl.notifier.snapshot()
	if version > vl.seen {
		vl.seen = version
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return ch
}

// Sync advances the listener to the latest version without waiting.
func (vl *VersionedListener) Sync() {
	version, _ := vl.notifier.snapshot()
	vl.seen = version
}
