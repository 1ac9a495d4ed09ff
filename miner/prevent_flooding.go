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
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/seqmine/seqmine/core/vm"
)

// Fingerprint identifies a discovery by the terms it reproduces.
func Fingerprint(terms []vm.RegisterValue) uint64 {
	d := xxhash.New()
	for _, term := range terms {
		d.WriteString(term.String())
		d.WriteString(",")
	}
	return d.Sum64()
}

// PreventFlooding remembers when each fingerprint was last saved. A
// fingerprint seen within the window is refused.
type PreventFlooding struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[uint64]time.Time
	now    func() time.Time
}

func NewPreventFlooding(window time.Duration) *PreventFlooding {
	return &PreventFlooding{
		window: window,
		seen:   make(map[uint64]time.Time),
		now:    time.Now,
	}
}

// TryRegister records fingerprint and reports true, unless it was recorded
// less than window ago, in which case it reports false and changes nothing.
func (p *PreventFlooding) TryRegister(fingerprint uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if last, ok := p.seen[fingerprint]; ok && now.Sub(last) < p.window {
		return false
	}
	p.seen[fingerprint] = now
	return true
}

// Unregister forgets fingerprint, used when persisting a registered
// discovery failed.
func (p *PreventFlooding) Unregister(fingerprint uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, fingerprint)
}

// Seed records a past submission. Entries already outside the window are
// ignored and a later time wins over an earlier one.
func (p *PreventFlooding) Seed(fingerprint uint64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.now().Sub(at) >= p.window {
		return
	}
	if last, ok := p.seen[fingerprint]; ok && !at.After(last) {
		return
	}
	p.seen[fingerprint] = at
}

// Prune drops expired entries and returns how many are left.
func (p *PreventFlooding) Prune() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for fingerprint, last := range p.seen {
		if now.Sub(last) >= p.window {
			delete(p.seen, fingerprint)
		}
	}
	return len(p.seen)
}

func (p *PreventFlooding) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
