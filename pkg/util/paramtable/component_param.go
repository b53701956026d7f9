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

package paramtable

// ComponentParam groups every tunable of the runtime.
type ComponentParam struct {
	baseTable *BaseTable

	RuntimeCfg runtimeConfig
}

// Init reads all params from the given table.
func (p *ComponentParam) Init(bt *BaseTable) {
	p.baseTable = bt
	p.RuntimeCfg.init(bt)
}

// runtimeConfig holds the thread-state / safepoint tunables.
type runtimeConfig struct {
	// SafepointSpinIterations bounds the busy re-checks a mutator performs
	// before parking on the notifier inside the safepoint wait.
	SafepointSpinIterations ParamItem

	// CoordinatorPollInterval is how often the coordinator re-examines
	// mutator states while waiting for the world to stop.
	CoordinatorPollInterval ParamItem

	// InterruptQueueLimit bounds the pending asynchronous interrupts a
	// thread may accumulate before PostInterrupt starts failing.
	InterruptQueueLimit ParamItem

	// GuardZoneSize is the size in bytes of the stack guard zone toggled
	// around managed execution.
	GuardZoneSize ParamItem

	// InspectionPoolSize is the number of workers running per-thread
	// callbacks while the world is stopped.
	InspectionPoolSize ParamItem
}

func (c *runtimeConfig) init(bt *BaseTable) {
	c.SafepointSpinIterations = ParamItem{
		Key:          "runtime.safepoint.spinIterations",
		Version:      "0.1.0",
		DefaultValue: "32",
		Doc:          "busy re-checks before a waiting mutator parks",
	}
	c.SafepointSpinIterations.Init(bt)

	c.CoordinatorPollInterval = ParamItem{
		Key:          "runtime.safepoint.coordinatorPollInterval",
		Version:      "0.1.0",
		DefaultValue: "200us",
		Doc:          "poll interval while waiting for mutators to stop",
	}
	c.CoordinatorPollInterval.Init(bt)

	c.InterruptQueueLimit = ParamItem{
		Key:          "runtime.thread.interruptQueueLimit",
		Version:      "0.1.0",
		DefaultValue: "64",
		Doc:          "max pending asynchronous interrupts per thread",
	}
	c.InterruptQueueLimit.Init(bt)

	c.GuardZoneSize = ParamItem{
		Key:          "runtime.thread.guardZoneSize",
		Version:      "0.1.0",
		DefaultValue: "16384",
		Doc:          "stack guard zone size in bytes",
	}
	c.GuardZoneSize.Init(bt)

	c.InspectionPoolSize = ParamItem{
		Key:          "runtime.safepoint.inspectionPoolSize",
		Version:      "0.1.0",
		DefaultValue: "4",
		Doc:          "workers running per-thread callbacks at a safepoint",
	}
	c.InspectionPoolSize.Init(bt)
}
