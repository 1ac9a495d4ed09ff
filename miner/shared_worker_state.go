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
	"fmt"
	"sync"
)

// SharedWorkerState is the externally observable phase of the coordinator.
type SharedWorkerState int

const (
	Initializing SharedWorkerState = iota
	Syncing
	Mining
)

func (s SharedWorkerState) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Syncing:
		return "syncing"
	case Mining:
		return "mining"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// sharedState is written by the coordinator only and read by the workers
// before every round.
type sharedState struct {
	mu    sync.Mutex
	state SharedWorkerState
}

func (s *sharedState) get() SharedWorkerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sharedState) set(state SharedWorkerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
