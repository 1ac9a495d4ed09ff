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
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"
)

// maxJournalEntries bounds the journal, older entries are truncated.
const maxJournalEntries = 1 << 16

// CandidateRecord is one saved candidate as kept in the journal.
type CandidateRecord struct {
	Time        time.Time `json:"time"`
	IDs         []uint32  `json:"ids"`
	TermCount   int       `json:"termCount"`
	Fingerprint uint64    `json:"fingerprint"`
	File        string    `json:"file"`
}

// CandidateJournal is an append-only log of saved candidates. It outlives the
// process so that the prevent-flooding tracker can be rebuilt on restart.
type CandidateJournal struct {
	mu  sync.Mutex
	log *wal.Log
}

func OpenCandidateJournal(dir string) (*CandidateJournal, error) {
	log, err := wal.Open(dir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open candidate journal %s", dir)
	}
	return &CandidateJournal{log: log}, nil
}

// Append writes record at the end of the journal.
func (j *CandidateJournal) Append(record *CandidateRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	lastIndex, err := j.log.LastIndex()
	if err != nil {
		return err
	}
	if err := j.log.Write(lastIndex+1, data); err != nil {
		return err
	}
	firstIndex, err := j.log.FirstIndex()
	if err != nil {
		return err
	}
	if lastIndex+1-firstIndex+1 > maxJournalEntries {
		if err := j.log.TruncateFront(lastIndex + 2 - maxJournalEntries); err != nil {
			return err
		}
	}
	return nil
}

// ForEach calls fn for every record, oldest first.
func (j *CandidateJournal) ForEach(fn func(*CandidateRecord)) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	firstIndex, err := j.log.FirstIndex()
	if err != nil {
		return err
	}
	lastIndex, err := j.log.LastIndex()
	if err != nil {
		return err
	}
	if firstIndex == 0 {
		return nil
	}
	for index := firstIndex; index <= lastIndex; index++ {
		data, err := j.log.Read(index)
		if err != nil {
			return errors.Wrapf(err, "read journal entry %d", index)
		}
		var record CandidateRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return errors.Wrapf(err, "decode journal entry %d", index)
		}
		fn(&record)
	}
	return nil
}

// Len returns the number of records.
func (j *CandidateJournal) Len() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	firstIndex, err := j.log.FirstIndex()
	if err != nil || firstIndex == 0 {
		return 0, err
	}
	lastIndex, err := j.log.LastIndex()
	if err != nil {
		return 0, err
	}
	return int(lastIndex - firstIndex + 1), nil
}

// Sync flushes the journal to disk.
func (j *CandidateJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Sync()
}

func (j *CandidateJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Close()
}

// loadPreventFlooding builds a tracker from the journal.
func loadPreventFlooding(journal *CandidateJournal, window time.Duration) (*PreventFlooding, error) {
	flooding := NewPreventFlooding(window)
	if journal == nil {
		return flooding, nil
	}
	err := journal.ForEach(func(record *CandidateRecord) {
		flooding.Seed(record.Fingerprint, record.Time)
	})
	if err != nil {
		return nil, err
	}
	return flooding, nil
}
