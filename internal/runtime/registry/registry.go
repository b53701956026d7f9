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

// Package registry tracks the live mutator threads the coordinator must
// bring to a stop.
package registry

import (
	"sync"

	"github.com/samber/lo"

	"github.com/kestrelvm/kestrel/internal/runtime/threading"
	"github.com/kestrelvm/kestrel/pkg/log"
	"github.com/kestrelvm/kestrel/pkg/metrics"
	"github.com/kestrelvm/kestrel/pkg/util/verr"
)

// Registry is the set of live mutator threads.
type Registry struct {
	mu      sync.RWMutex
	threads map[int64]*threading.Thread
}

func NewRegistry() *Registry {
	return &Registry{
		threads: make(map[int64]*threading.Thread),
	}
}

// Register adds a thread to the live set.
func (r *Registry) Register(t *threading.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[t.ID()]; ok {
		return verr.WrapErrThreadAlreadyRegistered(t.Name())
	}
	r.threads[t.ID()] = t
	metrics.ThreadsLive.Set(float64(len(r.threads)))
	log.Debug("mutator thread registered",
		log.FieldModule("registry"), log.FieldThread(t.Name()))
	return nil
}

// Unregister removes a thread from the live set. The thread must be in a
// safe state: the coordinator may be counting it right now.
func (r *Registry) Unregister(t *threading.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[t.ID()]; !ok {
		return verr.WrapErrThreadNotRegistered(t.Name())
	}
	delete(r.threads, t.ID())
	metrics.ThreadsLive.Set(float64(len(r.threads)))
	log.Debug("mutator thread unregistered",
		log.FieldModule("registry"), log.FieldThread(t.Name()))
	return nil
}

// Snapshot returns the live threads at this instant. Threads registered
// after the snapshot are not part of the current stop round; they park on
// their first guarded transition instead.
func (r *Registry) Snapshot() []*threading.Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.threads)
}

// Count returns the number of live threads.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}
