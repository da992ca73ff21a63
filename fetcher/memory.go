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

package fetcher

import (
	"context"
	"sync"

	"github.com/rulego/zoox/api/types"
)

var _ types.Fetcher = (*MemoryFetcher)(nil)

// MemoryFetcher serves type sources held in memory. It counts the fetches per
// type name.
type MemoryFetcher struct {
	lock    sync.Mutex
	sources map[string][]byte
	calls   map[string]int
	// gates hold back the fetch of a type until released
	gates map[string]chan struct{}
}

// NewMemoryFetcher creates a fetcher serving sources by type name.
func NewMemoryFetcher(sources map[string]string) *MemoryFetcher {
	m := &MemoryFetcher{
		sources: make(map[string][]byte, len(sources)),
		calls:   make(map[string]int),
		gates:   make(map[string]chan struct{}),
	}
	for name, src := range sources {
		m.sources[name] = []byte(src)
	}
	return m
}

// Put adds or replaces the source of a type.
func (m *MemoryFetcher) Put(typeName, src string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sources[typeName] = []byte(src)
}

// Hold makes the fetches of typeName block until Release is called.
func (m *MemoryFetcher) Hold(typeName string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.gates[typeName]; !ok {
		m.gates[typeName] = make(chan struct{})
	}
}

// Release lets the held fetches of typeName complete.
func (m *MemoryFetcher) Release(typeName string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if gate, ok := m.gates[typeName]; ok {
		close(gate)
		delete(m.gates, typeName)
	}
}

// Calls returns the number of fetches of typeName.
func (m *MemoryFetcher) Calls(typeName string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.calls[typeName]
}

func (m *MemoryFetcher) Fetch(ctx context.Context, typeName string) ([]byte, error) {
	m.lock.Lock()
	m.calls[typeName]++
	gate := m.gates[typeName]
	m.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, types.NewTransportError(typeName, ctx.Err())
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	src, ok := m.sources[typeName]
	if !ok {
		return nil, types.NewTransportError(typeName, errNotFound)
	}
	return append([]byte(nil), src...), nil
}
