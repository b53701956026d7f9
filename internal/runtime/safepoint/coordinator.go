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
	"time"

	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kestrelvm/kestrel/internal/runtime/registry"
	"github.com/kestrelvm/kestrel/internal/runtime/threading"
	"github.com/kestrelvm/kestrel/pkg/log"
	"github.com/kestrelvm/kestrel/pkg/metrics"
	"github.com/kestrelvm/kestrel/pkg/util/conc"
	"github.com/kestrelvm/kestrel/pkg/util/paramtable"
	"github.com/kestrelvm/kestrel/pkg/util/verr"
)

// Coordinator posts stop-the-world requests and waits for every live
// mutator to reach a stoppable state. What happens while the world is
// stopped is the caller's business; the coordinator only runs the
// handshake.
type Coordinator struct {
	mech *Mechanism
	reg  *registry.Registry
	pool *conc.Pool[any]

	active       atomic.Bool
	pollInterval time.Duration
}

func NewCoordinator(mech *Mechanism, reg *registry.Registry) *Coordinator {
	paramtable.Init()
	cfg := &paramtable.Get().RuntimeCfg
	return &Coordinator{
		mech:         mech,
		reg:          reg,
		pool:         conc.NewPool[any](cfg.InspectionPoolSize.GetAsInt(), conc.WithPreAlloc(true)),
		pollInterval: cfg.CoordinatorPollInterval.GetAsDuration(),
	}
}

// Begin posts a global stop request. Only one request may be in flight.
func (c *Coordinator) Begin() error {
	if !c.active.CompareAndSwap(false, true) {
		return verr.WrapErrSafepointActive("coordinator")
	}
	c.mech.post()
	metrics.SafepointRequestTotal.Inc()
	log.Info("safepoint requested", log.FieldModule("safepoint"),
		zap.Int("liveThreads", c.reg.Count()))
	return nil
}

// WaitUntilStopped blocks until every live mutator is stopped, polling
// their published states. Threads settled in a safe state count
// immediately; unsafe threads count once parked inside the mechanism;
// transitional shadows force a re-poll.
func (c *Coordinator) WaitUntilStopped(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		stopped := lo.EveryBy(c.reg.Snapshot(), func(t *threading.Thread) bool {
			return t.Stopped()
		})
		if stopped {
			elapsed := time.Since(start)
			metrics.SafepointTimeToStop.Observe(elapsed.Seconds())
			log.Info("world stopped", log.FieldModule("safepoint"),
				zap.Duration("timeToStop", elapsed))
			return nil
		}

		select {
		case <-ctx.Done():
			return verr.WrapErrSafepointWaitCanceled(ctx.Err())
		case <-ticker.C:
		}
	}
}

// ForEachStopped fans fn out over the stopped threads on the inspection
// pool and waits for all of them. Call only between a successful
// WaitUntilStopped and End.
func (c *Coordinator) ForEachStopped(fn func(*threading.Thread) error) error {
	futures := lo.Map(c.reg.Snapshot(), func(t *threading.Thread, _ int) *conc.Future[any] {
		return c.pool.Submit(func() (any, error) {
			return nil, fn(t)
		})
	})
	return conc.BlockOnAll(futures...)
}

// End completes the request and releases every parked mutator.
func (c *Coordinator) End() {
	c.mech.complete()
	c.active.Store(false)
	log.Info("safepoint released", log.FieldModule("safepoint"))
}

// StopTheWorld runs fn with every live mutator stopped. The request is
// always released, also when the wait fails or fn returns an error.
func (c *Coordinator) StopTheWorld(ctx context.Context, fn func() error) error {
	if err := c.Begin(); err != nil {
		return err
	}
	defer c.End()

	if err := c.WaitUntilStopped(ctx); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	return fn()
}

// Close releases the inspection pool.
func (c *Coordinator) Close() {
	c.pool.Release()
}
