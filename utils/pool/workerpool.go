/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pool runs blocking tasks, such as type source fetches, on a bounded
// set of goroutines.
//
// Workers are started on demand up to MaxWorkersCount and exit after staying
// idle for MaxIdleWorkerDuration. Tasks submitted while every worker is busy
// wait in a FIFO queue instead of being rejected.
//
// Usage:
//
//	wp := &pool.WorkerPool{MaxWorkersCount: 8}
//	wp.Start()
//	defer wp.Release()
//	_ = wp.Submit(func() { ... })
package pool

import (
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Submit once the pool is released.
var ErrStopped = errors.New("worker pool is stopped")

// DefaultMaxWorkersCount is used when MaxWorkersCount is not positive.
const DefaultMaxWorkersCount = 8

// WorkerPool runs submitted tasks on at most MaxWorkersCount goroutines.
type WorkerPool struct {
	// MaxWorkersCount is the maximum number of concurrent workers.
	MaxWorkersCount int
	// MaxIdleWorkerDuration is how long a worker waits for a task before it exits.
	// Default is 10 seconds.
	MaxIdleWorkerDuration time.Duration

	lock sync.Mutex
	// cond wakes idle workers
	cond         *sync.Cond
	queue        []func()
	workersCount int
	idleCount    int
	mustStop     bool
	startOnce    sync.Once
}

// Start prepares the pool. It is safe to call more than once and Submit calls
// it when needed.
func (wp *WorkerPool) Start() {
	wp.startOnce.Do(func() {
		wp.cond = sync.NewCond(&wp.lock)
	})
}

// Stop discards queued tasks and lets the workers exit once their current task
// is done.
func (wp *WorkerPool) Stop() {
	wp.Start()
	wp.lock.Lock()
	wp.mustStop = true
	wp.queue = nil
	wp.lock.Unlock()
	wp.cond.Broadcast()
}

// Release stops the pool.
func (wp *WorkerPool) Release() {
	wp.Stop()
}

// Submit queues fn and starts a worker when none is idle.
func (wp *WorkerPool) Submit(fn func()) error {
	if fn == nil {
		return errors.New("task can not be nil")
	}
	wp.Start()
	wp.lock.Lock()
	if wp.mustStop {
		wp.lock.Unlock()
		return ErrStopped
	}
	wp.queue = append(wp.queue, fn)
	startWorker := wp.idleCount == 0 && wp.workersCount < wp.maxWorkersCount()
	if startWorker {
		wp.workersCount++
	}
	wp.lock.Unlock()

	if startWorker {
		go wp.workerFunc()
	} else {
		wp.cond.Signal()
	}
	return nil
}

// Workers returns the number of running workers.
func (wp *WorkerPool) Workers() int {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	return wp.workersCount
}

func (wp *WorkerPool) maxWorkersCount() int {
	if wp.MaxWorkersCount <= 0 {
		return DefaultMaxWorkersCount
	}
	return wp.MaxWorkersCount
}

func (wp *WorkerPool) getMaxIdleWorkerDuration() time.Duration {
	if wp.MaxIdleWorkerDuration <= 0 {
		return 10 * time.Second
	}
	return wp.MaxIdleWorkerDuration
}

// next blocks until a task is queued. It returns nil when the pool stops or the
// worker stayed idle for too long.
func (wp *WorkerPool) next() func() {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	deadline := time.Now().Add(wp.getMaxIdleWorkerDuration())
	for len(wp.queue) == 0 && !wp.mustStop {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil
		}
		// sync.Cond has no timed wait
		timer := time.AfterFunc(wait, wp.cond.Broadcast)
		wp.idleCount++
		wp.cond.Wait()
		wp.idleCount--
		timer.Stop()
	}
	if wp.mustStop {
		return nil
	}
	fn := wp.queue[0]
	wp.queue[0] = nil
	wp.queue = wp.queue[1:]
	return fn
}

func (wp *WorkerPool) workerFunc() {
	defer func() {
		wp.lock.Lock()
		wp.workersCount--
		wp.lock.Unlock()
	}()
	for {
		fn := wp.next()
		if fn == nil {
			return
		}
		fn()
	}
}
