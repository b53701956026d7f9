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

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ThreadStateTransitionTotal counts committed thread-state transitions
	// by (from, to) pair.
	ThreadStateTransitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "thread_state_transition_total",
			Help:      "counter of committed thread state transitions",
		}, []string{fromStateLabelName, toStateLabelName})

	// ThreadsLive tracks the number of registered mutator threads.
	ThreadsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "threads_live",
			Help:      "number of registered mutator threads",
		})

	// SafepointRequestTotal counts global stop requests posted by the
	// coordinator.
	SafepointRequestTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "safepoint_request_total",
			Help:      "counter of stop-the-world requests",
		})

	// SafepointTimeToStop observes the time from posting a request until
	// every mutator is stopped.
	SafepointTimeToStop = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "safepoint_time_to_stop_seconds",
			Help:      "time until all mutator threads reached a stoppable state",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 18),
		})

	// SafepointLockReleaseTotal counts runtime locks surrendered by the
	// deadlock-avoiding blocked region.
	SafepointLockReleaseTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "safepoint_lock_release_total",
			Help:      "counter of in-flight locks released for a safepoint",
		})

	// ThreadInterruptPostedTotal counts queued asynchronous interrupts.
	ThreadInterruptPostedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: kestrelNamespace,
			Subsystem: runtimeSubsystem,
			Name:      "thread_interrupt_posted_total",
			Help:      "counter of posted asynchronous interrupts",
		})
)
