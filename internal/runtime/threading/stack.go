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

import "go.uber.org/atomic"

// StackAnchor publishes the frame metadata another thread needs to
// enumerate this thread's managed frames. A stack is walkable exactly while
// the thread is outside managed code; the managed-exit transition publishes
// the anchor before the new state becomes visible, so an observer that sees
// a safe state is guaranteed a walkable stack.
type StackAnchor struct {
	walkable atomic.Bool

	// watermark is the identity of the newest published managed frame,
	// zero when no managed frames exist. Interpreter glue maintains it.
	watermark atomic.Int64
}

// Walkable reports whether the frame metadata is published. True for a
// thread with no managed frames.
func (a *StackAnchor) Walkable() bool {
	return a.walkable.Load()
}

// Watermark returns the newest published frame identity.
func (a *StackAnchor) Watermark() int64 {
	return a.watermark.Load()
}

// SetLastManagedFrame records the newest managed frame. Called by the
// interpreter glue while the thread owns its own anchor.
func (a *StackAnchor) SetLastManagedFrame(frame int64) {
	a.watermark.Store(frame)
}

// makeWalkable publishes the anchor. Must complete before the state store
// that makes the thread observable as safe; the atomic store provides the
// required release ordering.
func (a *StackAnchor) makeWalkable() {
	a.walkable.Store(true)
}

// clearWalkable marks the stack unwalkable as managed code resumes.
func (a *StackAnchor) clearWalkable() {
	a.walkable.Store(false)
}
