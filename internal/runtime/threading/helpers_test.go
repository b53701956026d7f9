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
	"testing"
	"time"
)

// assertBlocked verifies stillBlocked holds for a short interval, failing
// fast if it flips.
func assertBlocked(t *testing.T, stillBlocked func() bool) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Millisecond)
	for time.Now().Before(deadline) {
		if !stillBlocked() {
			t.Fatal("expected the goroutine to stay blocked")
		}
		time.Sleep(time.Millisecond)
	}
}

// eventually polls cond until it holds or the timeout expires.
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
