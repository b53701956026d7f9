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

// Package conc wraps a goroutine pool with typed futures. The safepoint
// coordinator uses it to fan per-thread inspection work out while the world
// is stopped.
package conc

import (
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kestrelvm/kestrel/pkg/util/verr"
)

// Pool is a goroutine pool producing futures of T.
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool returns a goroutine pool with cap workers.
// This panics on an invalid option.
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// NewDefaultPool returns a pool sized to the number of logical CPUs with
// pre-allocated workers.
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](runtime.NumCPU(), WithPreAlloc(true))
}

// Submit executes method asynchronously.
// This blocks if the pool is finite and has no idle worker.
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		defer func() {
			if x := recover(); x != nil {
				future.err = fmt.Errorf("panicked with error: %v", x)
				if !pool.opt.concealPanic {
					panic(x)
				}
			}
		}()
		res, err := method()
		if err != nil {
			future.err = err
		}
		future.value = res
	})
	if err != nil {
		future.err = verr.WrapErrPoolInternal(err)
		close(future.ch)
	}

	return future
}

// Cap is the number of workers.
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running is the number of busy workers.
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Free returns the number of idle workers.
func (pool *Pool[T]) Free() int {
	return pool.inner.Free()
}

func (pool *Pool[T]) IsClosed() bool {
	return pool.inner.IsClosed()
}

func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

func (pool *Pool[T]) ReleaseTimeout(timeout time.Duration) error {
	return pool.inner.ReleaseTimeout(timeout)
}
