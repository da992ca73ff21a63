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
	"context"
	"errors"

	"github.com/rulego/zoox/api/types"
)

// ReadyFunc receives a resolved type or the error that prevented its loading.
type ReadyFunc func(def *types.TypeDef, err error)

// Loader resolves type names to definitions, fetching unknown types at most once
// in flight per name. Resolve and the waiter callbacks run on the engine loop;
// fetches run on the worker pool and post their result back.
type Loader struct {
	ctx      context.Context
	config   *types.Config
	registry *TypeRegistry
	post     func(fn func()) error
	// waiters holds the pending callbacks per type name in registration order
	waiters map[string][]ReadyFunc
	// fetches counts the fetches issued per type name
	fetches map[string]int
}

// NewLoader creates a loader. post must queue a function onto the engine loop.
func NewLoader(ctx context.Context, config *types.Config, registry *TypeRegistry, post func(fn func()) error) *Loader {
	return &Loader{
		ctx:      ctx,
		config:   config,
		registry: registry,
		post:     post,
		waiters:  make(map[string][]ReadyFunc),
		fetches:  make(map[string]int),
	}
}

// Resolve invokes onReady synchronously when name is registered. Otherwise
// onReady waits for the fetch of name, started by the first waiter only.
func (l *Loader) Resolve(name string, onReady ReadyFunc) {
	if def, ok := l.registry.Get(name); ok {
		onReady(def, nil)
		return
	}
	l.waiters[name] = append(l.waiters[name], onReady)
	l.config.Debugf(types.ChannelLoad, "waiting type=%s waiters=%d", name, len(l.waiters[name]))
	if len(l.waiters[name]) == 1 {
		l.fetch(name)
	}
}

// Pending returns the number of waiters of name.
func (l *Loader) Pending(name string) int {
	return len(l.waiters[name])
}

// Fetches returns the number of fetches issued for name.
func (l *Loader) Fetches(name string) int {
	return l.fetches[name]
}

func (l *Loader) fetch(name string) {
	l.fetches[name]++
	fetcher := l.config.Fetcher
	if fetcher == nil {
		err := types.NewTransportError(name, errors.New("no fetcher configured"))
		if postErr := l.post(func() { l.complete(name, nil, err) }); postErr != nil {
			l.complete(name, nil, err)
		}
		return
	}
	task := func() {
		src, err := l.fetchWithRetry(fetcher, name)
		// the engine is stopping when the loop refuses the result
		_ = l.post(func() { l.complete(name, src, err) })
	}
	if l.config.Pool != nil {
		if err := l.config.Pool.Submit(task); err == nil {
			return
		}
	}
	go task()
}

func (l *Loader) fetchWithRetry(fetcher types.Fetcher, name string) ([]byte, error) {
	var err error
	for attempt := 0; attempt <= l.config.FetchRetries; attempt++ {
		var src []byte
		if src, err = l.fetchOnce(fetcher, name); err == nil {
			return src, nil
		}
		if l.ctx.Err() != nil {
			break
		}
		l.config.Debugf(types.ChannelLoad, "fetch failed type=%s attempt=%d err=%v", name, attempt, err)
	}
	if errors.Is(err, types.ErrTransport) {
		return nil, err
	}
	return nil, types.NewTransportError(name, err)
}

// fetchOnce bounds one fetch by the fetch timeout, even when the fetcher ignores its context.
func (l *Loader) fetchOnce(fetcher types.Fetcher, name string) ([]byte, error) {
	ctx, cancel := l.ctx, context.CancelFunc(func() {})
	if l.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(l.ctx, l.config.FetchTimeout)
	}
	defer cancel()

	type result struct {
		src []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		src, err := fetcher.Fetch(ctx, name)
		done <- result{src: src, err: err}
	}()
	select {
	case r := <-done:
		return r.src, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete registers the fetched source and hands the outcome to every waiter in
// registration order. A failed name stays unregistered so that a later Resolve
// fetches it again.
func (l *Loader) complete(name string, src []byte, err error) {
	waiters := l.waiters[name]
	delete(l.waiters, name)

	var def *types.TypeDef
	if err == nil {
		if existing, ok := l.registry.Get(name); ok {
			def = existing
		} else {
			def, err = l.registry.Register(name, src)
		}
	}
	if err != nil {
		l.config.Logger.Printf("failed to load type=%s waiters=%d err=%v", name, len(waiters), err)
	} else {
		l.config.Debugf(types.ChannelLoad, "loaded type=%s waiters=%d", name, len(waiters))
	}
	for _, onReady := range waiters {
		onReady(def, err)
	}
}
