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
	"errors"
	"fmt"
)

// Stages reported by FatalError.
const (
	StageSync            = "sync"
	StageAnalytics       = "analytics"
	StagePreventFlooding = "prevent flooding"
	StageTermsIndex      = "terms to program id"
	StageFunnel          = "funnel"
	StageMutateContext   = "genome mutate context"
	StageBroadcast       = "broadcast"
	StageSaveCandidate   = "save candidate"
	StageWatchDenyFile   = "watch deny file"
	StageStartWorkers    = "start workers"
	StageRun             = "run"
)

var (
	errSyncBadOutput    = errors.New("sync: last output line is not a status")
	errSyncTimeout      = errors.New("sync: timed out")
	errBroadcastPartial = errors.New("broadcast: not every worker received the bundle")
	errOutputDirLocked  = errors.New("output directory is locked by another miner")
)

// FatalError ends the miner. The process is expected to stop the workers,
// flush pending candidates and exit.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("miner: %s failed: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(stage string, err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Stage: stage, Err: err}
}
