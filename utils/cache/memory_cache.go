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

// Package cache provides an in-memory key value cache with optional expiration.
// Expired entries are invisible right away and removed by a garbage collector
// that only runs while expirable entries exist.
package cache

import (
	"strings"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{}
	ticker     *time.Ticker
	gcInterval time.Duration
}

// item is a cached value. An expiration of 0 never expires.
type item struct {
	value      []byte
	expiration int64
}

// NewMemoryCache creates an empty cache collecting expired entries every
// gcInterval, 5 minutes when gcInterval is not positive.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		stopGc:     make(chan struct{}),
		gcInterval: time.Minute * 5,
	}
	if gcInterval > 0 {
		c.gcInterval = gcInterval
	}
	return c
}

// Set stores value under key. ttl is a duration string such as "10m"; an
// empty or zero ttl never expires.
func (c *MemoryCache) Set(key string, value []byte, ttl string) error {
	var dur time.Duration
	if ttl != "" {
		var err error
		if dur, err = time.ParseDuration(ttl); err != nil {
			return err
		}
	}
	var expiration int64
	if dur > 0 {
		expiration = time.Now().Add(dur).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	shouldStartGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if shouldStartGC {
		c.StartGC()
	}
	return nil
}

// Get returns the value of key, nil when absent or expired.
func (c *MemoryCache) Get(key string) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, found := c.items[key]
	if !found || it.expired(time.Now().UnixNano()) {
		return nil
	}
	return it.value
}

// Has reports whether key holds a live value.
func (c *MemoryCache) Has(key string) bool {
	return c.Get(key) != nil
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteByPrefix removes every key starting with prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

// Len returns the number of stored entries, expired ones not yet collected included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StartGC starts the collector unless it runs already or nothing can expire.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return
	}
	hasExpirable := false
	for _, it := range c.items {
		if it.expiration > 0 {
			hasExpirable = true
			break
		}
	}
	if !hasExpirable {
		c.mu.Unlock()
		return
	}
	ticker := time.NewTicker(c.gcInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopGc = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				if !c.deleteExpired() {
					c.mu.Lock()
					if c.ticker == ticker {
						c.ticker = nil
					}
					c.mu.Unlock()
					ticker.Stop()
					return
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()
}

// StopGC stops the collector. It is safe to call more than once.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker == nil {
		return
	}
	close(c.stopGc)
	c.ticker = nil
}

// gcRunning reports whether the collector goroutine is active.
func (c *MemoryCache) gcRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticker != nil
}

// deleteExpired removes the expired entries and reports whether expirable
// entries remain.
func (c *MemoryCache) deleteExpired() bool {
	now := time.Now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := false
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		} else if it.expiration > 0 {
			remaining = true
		}
	}
	return remaining
}

func (it item) expired(now int64) bool {
	return it.expiration > 0 && now > it.expiration
}
