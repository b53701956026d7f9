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

// Package metrics exposes the runtime's prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	kestrelNamespace = "kestrel"

	runtimeSubsystem = "runtime"

	fromStateLabelName = "from_state"
	toStateLabelName   = "to_state"
)

var registerOnce sync.Once

// Register registers all runtime metrics with r.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			ThreadStateTransitionTotal,
			ThreadsLive,
			SafepointRequestTotal,
			SafepointTimeToStop,
			SafepointLockReleaseTotal,
			ThreadInterruptPostedTotal,
		)
	})
}
