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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// SyncStatus is the outcome of a sync step.
type SyncStatus int

const (
	SyncNoChange SyncStatus = iota
	SyncChanged
)

func (s SyncStatus) String() string {
	if s == SyncChanged {
		return "changed"
	}
	return "nochange"
}

// Syncer brings the program repository up to date.
type Syncer interface {
	Sync(ctx context.Context) (SyncStatus, error)
}

// ExecSyncer runs an external executable. The last non-empty line it prints
// must be "status: changed" or "status: nochange".
type ExecSyncer struct {
	Executable string
	Args       []string
	Timeout    time.Duration
}

func (s *ExecSyncer) Sync(ctx context.Context) (SyncStatus, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, s.Executable, s.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return SyncNoChange, errors.Wrapf(errSyncTimeout, "%s after %v", s.Executable, timeout)
	}
	if ctx.Err() != nil {
		return SyncNoChange, ctx.Err()
	}
	if err != nil {
		return SyncNoChange, errors.Wrapf(err, "run %s: %s", s.Executable, strings.TrimSpace(stderr.String()))
	}
	status, err := ParseSyncStatus(stdout.Bytes())
	if err != nil {
		return SyncNoChange, err
	}
	log.Info("Executed sync", "executable", s.Executable, "status", status, "elapsed", time.Since(start))
	return status, nil
}

// ParseSyncStatus reads the status from the output of a sync executable.
func ParseSyncStatus(output []byte) (SyncStatus, error) {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return SyncNoChange, err
	}
	switch last {
	case "status: changed":
		return SyncChanged, nil
	case "status: nochange":
		return SyncNoChange, nil
	}
	return SyncNoChange, fmt.Errorf("%w: %q", errSyncBadOutput, last)
}

// noopSyncer is used when no sync executable is configured.
type noopSyncer struct{}

func (noopSyncer) Sync(context.Context) (SyncStatus, error) {
	log.Debug("No sync executable configured, skipping sync")
	return SyncNoChange, nil
}

// syncSnapshot records the most recent sync for the status report.
type syncSnapshot struct {
	mu     sync.Mutex
	last   time.Time
	status SyncStatus
	count  int
}

func (s *syncSnapshot) record(at time.Time, status SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = at
	s.status = status
	s.count++
}

func (s *syncSnapshot) get() (time.Time, SyncStatus, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.status, s.count
}
