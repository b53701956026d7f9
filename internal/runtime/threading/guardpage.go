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

// GuardPage models the stack-overflow guard zone below the managed stack.
// Overflow handling disables it to gain headroom; re-entering managed code
// re-arms it.
type GuardPage struct {
	enabled  atomic.Bool
	zoneSize int64
}

// Enabled reports whether the guard zone is armed.
func (g *GuardPage) Enabled() bool {
	return g.enabled.Load()
}

// ZoneSize returns the configured guard zone size in bytes.
func (g *GuardPage) ZoneSize() int64 {
	return g.zoneSize
}

// Enable re-arms the guard zone.
func (g *GuardPage) Enable() {
	g.enabled.Store(true)
}

// Disable disarms the guard zone, e.g. while unwinding from a stack
// overflow.
func (g *GuardPage) Disable() {
	g.enabled.Store(false)
}
