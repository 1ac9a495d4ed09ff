// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	lru "github.com/hashicorp/golang-lru"
)

type cacheKey struct {
	program uint32
	input   string
}

// ProgramCache memoizes the results of called programs within one top-level
// evaluation. It must be reset between evaluations of different candidates.
type ProgramCache struct {
	cache *lru.Cache

	hit  uint64
	miss uint64
}

// NewProgramCache creates a cache holding at most capacity results.
func NewProgramCache(capacity int) *ProgramCache {
	if capacity <= 0 {
		capacity = DefaultConfig.CacheCapacity
	}
	cache, _ := lru.New(capacity)
	return &ProgramCache{cache: cache}
}

func (c *ProgramCache) get(program uint32, input RegisterValue) (RegisterValue, bool) {
	value, ok := c.cache.Get(cacheKey{program: program, input: input.String()})
	if !ok {
		c.miss++
		cacheMissCounter.Inc(1)
		return RegisterValue{}, false
	}
	c.hit++
	cacheHitCounter.Inc(1)
	return value.(RegisterValue), true
}

func (c *ProgramCache) set(program uint32, input RegisterValue, output RegisterValue) {
	c.cache.Add(cacheKey{program: program, input: input.String()}, output)
}

// Reset drops all memoized results and the hit/miss counters.
func (c *ProgramCache) Reset() {
	c.cache.Purge()
	c.hit, c.miss = 0, 0
}

// Stats returns the number of hits and misses since the last reset.
func (c *ProgramCache) Stats() (hit, miss uint64) {
	return c.hit, c.miss
}

// Len returns the number of cached results.
func (c *ProgramCache) Len() int {
	return c.cache.Len()
}
