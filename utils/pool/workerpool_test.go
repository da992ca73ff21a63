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

package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/zoox/test/assert"
)

func TestWorkerPool(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 16}
	wp.Start()
	defer wp.Release()

	var n int32
	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		err := wp.Submit(func() {
			atomic.AddInt32(&n, 1)
			wg.Done()
		})
		assert.Nil(t, err)
	}
	wg.Wait()
	assert.Equal(t, int32(1000), atomic.LoadInt32(&n))
	assert.True(t, wp.Workers() <= 16)
}

func TestWorkerPoolQueuesWhenBusy(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 1}
	defer wp.Release()

	gate := make(chan struct{})
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		assert.Nil(t, wp.Submit(func() {
			if i == 0 {
				<-gate
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	close(gate)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 1, wp.Workers())
}

func TestWorkerPoolIdleWorkersExit(t *testing.T) {
	wp := &WorkerPool{MaxWorkersCount: 4, MaxIdleWorkerDuration: 20 * time.Millisecond}
	defer wp.Release()

	done := make(chan struct{})
	assert.Nil(t, wp.Submit(func() { close(done) }))
	<-done
	deadline := time.Now().Add(2 * time.Second)
	for wp.Workers() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, wp.Workers())
}

func TestWorkerPoolRelease(t *testing.T) {
	wp := &WorkerPool{}
	wp.Start()
	wp.Start()
	wp.Release()
	err := wp.Submit(func() {})
	assert.True(t, errors.Is(err, ErrStopped))
	assert.NotNil(t, wp.Submit(nil))
}
