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

import "github.com/ethereum/go-ethereum/metrics"

var (
	roundMeter          = metrics.NewRegisteredMeter("miner/rounds", nil)
	noSeedCounter       = metrics.NewRegisteredCounter("miner/candidates/noseed", nil)
	mutateFailedCounter = metrics.NewRegisteredCounter("miner/candidates/mutatefailed", nil)
	duplicateCounter    = metrics.NewRegisteredCounter("miner/candidates/duplicate", nil)
	dontMineCounter     = metrics.NewRegisteredCounter("miner/candidates/dontmine", nil)
	floodingCounter     = metrics.NewRegisteredCounter("miner/candidates/flooding", nil)
	rateLimitedCounter  = metrics.NewRegisteredCounter("miner/candidates/ratelimited", nil)
	savedCounter        = metrics.NewRegisteredCounter("miner/candidates/saved", nil)

	syncTimer         = metrics.NewRegisteredTimer("miner/coordinator/sync", nil)
	refreshTimer      = metrics.NewRegisteredTimer("miner/coordinator/refresh", nil)
	epochGauge        = metrics.NewRegisteredGauge("miner/coordinator/epoch", nil)
	floodingSizeGauge = metrics.NewRegisteredGauge("miner/coordinator/flooding", nil)
)
