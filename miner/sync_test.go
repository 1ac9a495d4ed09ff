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
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSyncStatus(t *testing.T) {
	tests := []struct {
		output string
		status SyncStatus
		bad    bool
	}{
		{output: "status: changed\n", status: SyncChanged},
		{output: "status: nochange", status: SyncNoChange},
		{output: "pulling\nupdated 3 files\nstatus: changed\n\n", status: SyncChanged},
		{output: "  status: nochange  \n", status: SyncNoChange},
		{output: "status: changed\nfailed\n", bad: true},
		{output: "", bad: true},
		{output: "status: unknown", bad: true},
	}
	for _, tt := range tests {
		status, err := ParseSyncStatus([]byte(tt.output))
		if tt.bad {
			assert.ErrorIs(t, err, errSyncBadOutput, "output %q", tt.output)
			continue
		}
		require.NoError(t, err, "output %q", tt.output)
		assert.Equal(t, tt.status, status, "output %q", tt.output)
	}
}

func TestSyncStatusString(t *testing.T) {
	assert.Equal(t, "changed", SyncChanged.String())
	assert.Equal(t, "nochange", SyncNoChange.String())
}

func writeScript(t *testing.T, body string) string {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported")
	}
	path := filepath.Join(t.TempDir(), "sync.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestExecSyncer(t *testing.T) {
	syncer := &ExecSyncer{Executable: writeScript(t, "echo pulling\necho 'status: changed'")}
	status, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncChanged, status)

	syncer = &ExecSyncer{Executable: writeScript(t, "echo 'status: nochange'")}
	status, err = syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncNoChange, status)
}

func TestExecSyncerFailures(t *testing.T) {
	syncer := &ExecSyncer{Executable: writeScript(t, "echo 'remote unreachable' >&2\nexit 3")}
	_, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote unreachable")

	syncer = &ExecSyncer{Executable: writeScript(t, "echo done")}
	_, err = syncer.Sync(context.Background())
	assert.ErrorIs(t, err, errSyncBadOutput)

	syncer = &ExecSyncer{Executable: writeScript(t, "exec sleep 5"), Timeout: 100 * time.Millisecond}
	_, err = syncer.Sync(context.Background())
	assert.ErrorIs(t, err, errSyncTimeout)

	syncer = &ExecSyncer{Executable: filepath.Join(t.TempDir(), "missing")}
	_, err = syncer.Sync(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, errSyncTimeout))
}

func TestSyncSnapshot(t *testing.T) {
	var s syncSnapshot
	_, _, count := s.get()
	assert.Equal(t, 0, count)

	at := time.Unix(1700000000, 0)
	s.record(at, SyncChanged)
	s.record(at.Add(time.Minute), SyncNoChange)
	last, status, count := s.get()
	assert.Equal(t, at.Add(time.Minute), last)
	assert.Equal(t, SyncNoChange, status)
	assert.Equal(t, 2, count)
}
