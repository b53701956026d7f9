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

package conc

import (
	"time"

	"github.com/panjf2000/ants/v2"
)

type poolOption struct {
	// pre-allocate goroutine worker queue
	preAlloc bool
	// block or not when the pool is full
	nonBlocking bool
	// duration an idle worker lives before purge
	expiryDuration time.Duration
	// disable idle worker purging
	disablePurge bool
	// swallow panics from tasks instead of rethrowing
	concealPanic bool
}

func (opt *poolOption) antsOptions() []ants.Option {
	var result []ants.Option
	result = append(result, ants.WithPreAlloc(opt.preAlloc))
	result = append(result, ants.WithNonblocking(opt.nonBlocking))
	result = append(result, ants.WithDisablePurge(opt.disablePurge))
	if opt.expiryDuration > 0 {
		result = append(result, ants.WithExpiryDuration(opt.expiryDuration))
	}
	return result
}

func defaultPoolOption() *poolOption {
	return &poolOption{}
}

// PoolOption tunes pool construction.
type PoolOption func(opt *poolOption)

func WithPreAlloc(v bool) PoolOption {
	return func(opt *poolOption) { opt.preAlloc = v }
}

func WithNonBlocking(v bool) PoolOption {
	return func(opt *poolOption) { opt.nonBlocking = v }
}

func WithDisablePurge(v bool) PoolOption {
	return func(opt *poolOption) { opt.disablePurge = v }
}

func WithExpiryDuration(d time.Duration) PoolOption {
	return func(opt *poolOption) { opt.expiryDuration = d }
}

func WithConcealPanic(v bool) PoolOption {
	return func(opt *poolOption) { opt.concealPanic = v }
}
