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
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/miner/genome"
	"github.com/seqmine/seqmine/oeis"
)

var errRateLimited = errors.New("candidate save rate exceeded")

// Candidate is a mutated program confirmed by the funnel.
type Candidate struct {
	Program     string
	IDs         []uint32
	TermCount   int
	Terms       []vm.RegisterValue
	Fingerprint uint64
	Mutations   []genome.MutationKind
}

// SaverConfig configures a CandidateSaver. Journal and Discovery are
// optional.
type SaverConfig struct {
	OutputDir      string
	SavesPerMinute int
	Journal        *CandidateJournal
	Discovery      io.Writer
}

// CandidateSaver writes confirmed candidates into the output directory. It
// holds an exclusive lock on the directory for its lifetime.
type CandidateSaver struct {
	dir       string
	lock      *flock.Flock
	journal   *CandidateJournal
	limiter   *rate.Limiter
	discovery io.Writer
	now       func() time.Time
}

func NewCandidateSaver(config SaverConfig) (*CandidateSaver, error) {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(config.OutputDir, "FLOCK"))
	if locked, err := lock.TryLock(); err != nil {
		return nil, err
	} else if !locked {
		return nil, fmt.Errorf("%w: %s", errOutputDirLocked, config.OutputDir)
	}
	limit := rate.Inf
	burst := 1
	if config.SavesPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.SavesPerMinute))
		burst = config.SavesPerMinute
	}
	return &CandidateSaver{
		dir:       config.OutputDir,
		lock:      lock,
		journal:   config.Journal,
		limiter:   rate.NewLimiter(limit, burst),
		discovery: config.Discovery,
		now:       time.Now,
	}, nil
}

// Save writes the candidate and journals it. It returns the path of the
// written file.
func (s *CandidateSaver) Save(c *Candidate) (string, error) {
	now := s.now()
	if !s.limiter.AllowN(now, 1) {
		return "", errRateLimited
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.asm", now.Format("20060102-150405"), id)
	path := filepath.Join(s.dir, name)
	if err := writeFileAtomic(path, []byte(renderCandidate(c))); err != nil {
		return "", err
	}
	if s.journal != nil {
		record := &CandidateRecord{
			Time:        now,
			IDs:         c.IDs,
			TermCount:   c.TermCount,
			Fingerprint: c.Fingerprint,
			File:        name,
		}
		if err := s.journal.Append(record); err != nil {
			return path, err
		}
	}
	if s.discovery != nil {
		fmt.Fprintf(s.discovery, "%s %s %s\n", now.UTC().Format(time.RFC3339), formatIDs(c.IDs), name)
	}
	return path, nil
}

// Close flushes the journal and releases the directory lock.
func (s *CandidateSaver) Close() error {
	var err error
	if s.journal != nil {
		err = s.journal.Sync()
	}
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func renderCandidate(c *Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s\n", formatIDs(c.IDs))
	fmt.Fprintf(&b, "; Verified %d terms\n", c.TermCount)
	terms := make([]string, len(c.Terms))
	for i, term := range c.Terms {
		terms[i] = term.String()
	}
	fmt.Fprintf(&b, "; %s\n", strings.Join(terms, ","))
	if len(c.Mutations) > 0 {
		kinds := make([]string, len(c.Mutations))
		for i, kind := range c.Mutations {
			kinds[i] = kind.String()
		}
		fmt.Fprintf(&b, "; Mutations: %s\n", strings.Join(kinds, ", "))
	}
	b.WriteByte('\n')
	b.WriteString(c.Program)
	if !strings.HasSuffix(c.Program, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

func formatIDs(ids []uint32) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = oeis.OeisID(id).String()
	}
	return strings.Join(names, ",")
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
