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

package miner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/vm"
)

func terms(values ...int64) []vm.RegisterValue {
	out := make([]vm.RegisterValue, len(values))
	for i, v := range values {
		out[i] = vm.NewRegisterValue(v)
	}
	return out
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(terms(1, 2, 3))
	assert.Equal(t, a, Fingerprint(terms(1, 2, 3)))
	assert.NotEqual(t, a, Fingerprint(terms(1, 2, 4)))
	assert.NotEqual(t, Fingerprint(terms(1, 23)), Fingerprint(terms(12, 3)))
	assert.NotEqual(t, Fingerprint(terms(1, 2)), Fingerprint(terms(1, 2, 3)))
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestPreventFloodingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	p := NewPreventFlooding(time.Hour)
	p.now = clock.Now

	require.True(t, p.TryRegister(1))
	assert.False(t, p.TryRegister(1))
	assert.True(t, p.TryRegister(2))

	clock.advance(59 * time.Minute)
	assert.False(t, p.TryRegister(1))

	clock.advance(time.Minute)
	assert.True(t, p.TryRegister(1))
	assert.Equal(t, 2, p.Len())

	// Fingerprint 2 was registered an hour ago.
	assert.Equal(t, 1, p.Prune())
}

func TestPreventFloodingUnregister(t *testing.T) {
	p := NewPreventFlooding(time.Hour)
	require.True(t, p.TryRegister(7))
	p.Unregister(7)
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.TryRegister(7))
}

func TestPreventFloodingSeed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	p := NewPreventFlooding(time.Hour)
	p.now = clock.Now

	p.Seed(1, clock.now.Add(-2*time.Hour))
	assert.Equal(t, 0, p.Len(), "expired entries are ignored")

	p.Seed(2, clock.now.Add(-50*time.Minute))
	p.Seed(2, clock.now.Add(-55*time.Minute))
	assert.False(t, p.TryRegister(2))

	// The later seed wins, so 2 expires ten minutes from now.
	clock.advance(10 * time.Minute)
	assert.True(t, p.TryRegister(2))
	assert.True(t, p.TryRegister(1))
}
