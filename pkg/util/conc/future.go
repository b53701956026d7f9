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

import "github.com/kestrelvm/kestrel/pkg/util/verr"

// Future is the handle of an async task.
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Await waits for the result, returning both value and error.
func (future *Future[T]) Await() (T, error) {
	<-future.ch
	return future.value, future.err
}

// Value waits and returns only the value.
func (future *Future[T]) Value() T {
	<-future.ch
	return future.value
}

// OK reports whether the task succeeded.
func (future *Future[T]) OK() bool {
	<-future.ch
	return future.err == nil
}

// Err waits and returns only the error.
func (future *Future[T]) Err() error {
	<-future.ch
	return future.err
}

// Inner exposes the completion channel.
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}

// Go runs fn on a fresh goroutine, no pool involved.
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		defer close(future.ch)
		future.value, future.err = fn()
	}()
	return future
}

type futureErr interface {
	Err() error
	Inner() <-chan struct{}
}

// BlockOnAll waits for every future to finish and combines their errors.
func BlockOnAll[T futureErr](futures ...T) error {
	errs := make([]error, 0, len(futures))
	for _, future := range futures {
		if err := future.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return verr.Combine(errs...)
}

// AwaitAll waits until any future fails or all succeed, returning the first
// failure.
func AwaitAll[T futureErr](futures ...T) error {
	for _, future := range futures {
		if err := future.Err(); err != nil {
			return err
		}
	}
	return nil
}
