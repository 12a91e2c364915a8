// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"maps"
	"slices"
	"sync/atomic"
)

// Defaults for the transaction body cache
const (
	DefaultBodyCacheEntries       = 1024
	DefaultBodyCacheBytes   int64 = 16 * 1024 * 1024
)

// Reads update hit counts 1 in bodyCacheSampleRate times
const bodyCacheSampleRate = 4

type bodyCacheData struct {
	bodies map[uint][]byte
	hits   map[uint]uint64
	bytes  int64
}

// bodyCache holds recently read transaction bodies. It is copy-on-write so
// readers never take a lock, and evicts the least frequently read bodies
// when it grows past its limits.
type bodyCache struct {
	data       atomic.Pointer[bodyCacheData]
	maxEntries int
	maxBytes   int64
	sampleCnt  atomic.Uint64
}

func newBodyCache(maxEntries int, maxBytes int64) *bodyCache {
	c := &bodyCache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
	c.data.Store(&bodyCacheData{
		bodies: make(map[uint][]byte),
		hits:   make(map[uint]uint64),
	})
	return c
}

func (c *bodyCache) get(id uint) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data := c.data.Load()
	body, ok := data.bodies[id]
	if !ok {
		return nil, false
	}
	if c.sampleCnt.Add(1)%bodyCacheSampleRate == 0 {
		c.update(func(next *bodyCacheData) bool {
			if _, ok := next.bodies[id]; !ok {
				return false
			}
			next.hits[id]++
			return true
		})
	}
	return slices.Clone(body), true
}

func (c *bodyCache) put(id uint, body []byte) {
	if c == nil {
		return
	}
	size := int64(len(body))
	// Bodies over a tenth of the budget are not worth the churn
	if c.maxBytes > 0 && size > c.maxBytes/10 {
		return
	}
	body = slices.Clone(body)
	c.update(func(next *bodyCacheData) bool {
		if old, ok := next.bodies[id]; ok {
			next.bytes -= int64(len(old))
		}
		next.bodies[id] = body
		next.bytes += size
		next.hits[id]++
		c.evict(next)
		return true
	})
}

func (c *bodyCache) remove(id uint) {
	if c == nil {
		return
	}
	c.update(func(next *bodyCacheData) bool {
		old, ok := next.bodies[id]
		if !ok {
			return false
		}
		next.bytes -= int64(len(old))
		delete(next.bodies, id)
		delete(next.hits, id)
		return true
	})
}

func (c *bodyCache) len() int {
	return len(c.data.Load().bodies)
}

// update applies fn to a copy of the current data and swaps it in. fn
// returns false to abandon the change.
func (c *bodyCache) update(fn func(*bodyCacheData) bool) {
	for {
		old := c.data.Load()
		next := &bodyCacheData{
			bodies: maps.Clone(old.bodies),
			hits:   maps.Clone(old.hits),
			bytes:  old.bytes,
		}
		if !fn(next) {
			return
		}
		if c.data.CompareAndSwap(old, next) {
			return
		}
	}
}

// evict trims data down to three quarters of whichever limit it exceeds
func (c *bodyCache) evict(data *bodyCacheData) {
	overEntries := c.maxEntries > 0 && len(data.bodies) > c.maxEntries
	overBytes := c.maxBytes > 0 && data.bytes > c.maxBytes
	if !overEntries && !overBytes {
		return
	}
	targetEntries := max(c.maxEntries*3/4, 1)
	targetBytes := c.maxBytes * 3 / 4
	ids := slices.Collect(maps.Keys(data.bodies))
	// Least read first, oldest id breaking ties
	slices.SortFunc(ids, func(a, b uint) int {
		if data.hits[a] != data.hits[b] {
			if data.hits[a] < data.hits[b] {
				return -1
			}
			return 1
		}
		if a < b {
			return -1
		}
		return 1
	})
	for _, id := range ids {
		entriesOK := c.maxEntries <= 0 || len(data.bodies) <= targetEntries
		bytesOK := c.maxBytes <= 0 || data.bytes <= targetBytes
		if entriesOK && bytesOK {
			return
		}
		data.bytes -= int64(len(data.bodies[id]))
		delete(data.bodies, id)
		delete(data.hits, id)
	}
}
