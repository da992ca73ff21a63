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

package engine

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStopped is returned for work posted to a stopped engine.
var ErrStopped = errors.New("engine is stopped")

// loop serializes every mutation of the engine stores onto one goroutine.
// Tasks run in posting order and may post further tasks.
type loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
	onPanic func(v interface{})
}

func newLoop(onPanic func(v interface{})) *loop {
	l := &loop{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
	go l.run()
	return l
}

// Post queues fn without waiting for it.
func (l *loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop and waits for it. It must not be called from the loop.
func (l *loop) Do(fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(func() {
		defer func() {
			if v := recover(); v != nil {
				result <- fmt.Errorf("panic: %v", v)
			}
		}()
		result <- fn()
	}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Stop runs the tasks already queued and ends the loop.
func (l *loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = nil
		stopped := l.stopped
		l.mu.Unlock()

		for _, task := range tasks {
			l.exec(task)
		}
		if len(tasks) > 0 {
			continue
		}
		if stopped {
			return
		}
		<-l.wake
	}
}

func (l *loop) exec(task func()) {
	defer func() {
		if v := recover(); v != nil && l.onPanic != nil {
			l.onPanic(v)
		}
	}()
	task()
}
