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

// Package funnel implements the staged matcher that decides whether a
// candidate program reproduces known sequences. Most candidates are rejected
// after a short prefix; only the survivors are evaluated further.
package funnel

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	bloomfilter "github.com/holiman/bloomfilter/v2"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/oeis"
)

// Config are the funnel limits.
type Config struct {
	MinimumTerms       int   // Prefix length looked up in the index
	TermCount          int   // Number of terms a confirmed match agrees on
	WildcardMagicValue int64 // Reference term value that matches anything
}

// DefaultConfig contains the default funnel limits.
var DefaultConfig = Config{
	MinimumTerms:       10,
	TermCount:          40,
	WildcardMagicValue: 1234567,
}

// Wildcard returns the wildcard value as a register value.
func (c Config) Wildcard() vm.RegisterValue {
	return vm.NewRegisterValue(c.WildcardMagicValue)
}

var errPrefixMismatch = errors.New("funnel: index prefix length differs from config")

// Stage is the outcome of checking one candidate.
type Stage int

const (
	// Rejected means no indexed sequence starts with the candidate's prefix,
	// or the prefix could not be evaluated.
	Rejected Stage = iota
	// Promoted means the prefix matched and deeper verification is pending.
	Promoted
	// Confirmed means at least one sequence agrees on all TermCount terms.
	Confirmed
	// Discarded means the prefix matched but verification failed.
	Discarded
)

func (s Stage) String() string {
	switch s {
	case Rejected:
		return "rejected"
	case Promoted:
		return "promoted"
	case Confirmed:
		return "confirmed"
	case Discarded:
		return "discarded"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Outcome is the result of Check. IDs holds every confirmed sequence id in
// ascending order and Terms the evaluated terms, both only when Confirmed.
type Outcome struct {
	Stage     Stage
	IDs       []uint32
	TermCount int
	Terms     []vm.RegisterValue
}

// Funnel is read-only after construction and safe for concurrent use.
type Funnel struct {
	config Config
	set    *oeis.TermsToProgramIdSet
	bloom  *bloomfilter.Filter
}

// New builds the bloom pre-filter over every masked prefix of set.
func New(config Config, set *oeis.TermsToProgramIdSet) (*Funnel, error) {
	if config.MinimumTerms != set.PrefixLength() {
		return nil, fmt.Errorf("%w: %d != %d", errPrefixMismatch, set.PrefixLength(), config.MinimumTerms)
	}
	if config.TermCount < config.MinimumTerms {
		config.TermCount = config.MinimumTerms
	}
	keys := uint64(0)
	set.ForEachKey(func(string) { keys++ })
	if keys < 1024 {
		keys = 1024
	}
	bloom, err := bloomfilter.NewOptimal(keys, 0.001)
	if err != nil {
		return nil, err
	}
	set.ForEachKey(func(key string) {
		bloom.Add(keyHash(xxhash.Sum64String(key)))
	})
	return &Funnel{config: config, set: set, bloom: bloom}, nil
}

func (f *Funnel) Config() Config { return f.config }

// Set returns the index the funnel matches against.
func (f *Funnel) Set() *oeis.TermsToProgramIdSet { return f.set }

// Check runs a candidate through all stages. The stream is extended only as
// far as the current stage needs.
func (f *Funnel) Check(stream *vm.TermStream) Outcome {
	checkedCounter.Inc(1)
	if err := stream.Extend(f.config.MinimumTerms); err != nil {
		rejectedCounter.Inc(1)
		return Outcome{Stage: Rejected}
	}
	ids := f.lookup(stream.Terms()[:f.config.MinimumTerms])
	if len(ids) == 0 {
		rejectedCounter.Inc(1)
		return Outcome{Stage: Rejected}
	}
	promotedCounter.Inc(1)
	return f.verify(stream, ids)
}

// lookup returns the ids whose masked prefix equals the candidate prefix.
func (f *Funnel) lookup(prefix []vm.RegisterValue) []uint32 {
	var ids []uint32
	for _, mask := range f.set.Masks() {
		key := f.set.MaskedKey(prefix, mask)
		if !f.bloom.Contains(keyHash(xxhash.Sum64String(key))) {
			continue
		}
		ids = append(ids, f.set.IDsForKey(key)...)
	}
	return oeis.SortedUnique(ids)
}

func (f *Funnel) verify(stream *vm.TermStream, ids []uint32) Outcome {
	if err := stream.Extend(f.config.TermCount); err != nil {
		discardedCounter.Inc(1)
		return Outcome{Stage: Discarded}
	}
	var (
		terms     = stream.Terms()
		confirmed []uint32
	)
	for _, id := range ids {
		if f.set.Matches(id, terms, f.config.TermCount) {
			confirmed = append(confirmed, id)
		}
	}
	if len(confirmed) == 0 {
		discardedCounter.Inc(1)
		return Outcome{Stage: Discarded}
	}
	confirmedCounter.Inc(1)
	return Outcome{
		Stage:     Confirmed,
		IDs:       confirmed,
		TermCount: f.config.TermCount,
		Terms:     terms[:f.config.TermCount],
	}
}

// keyHash is a precomputed xxhash used as a hash.Hash64 by the bloom filter.
type keyHash uint64

func (h keyHash) Write(p []byte) (n int, err error) { panic("not implemented") }
func (h keyHash) Sum(b []byte) []byte               { panic("not implemented") }
func (h keyHash) Reset()                            { panic("not implemented") }
func (h keyHash) BlockSize() int                    { panic("not implemented") }
func (h keyHash) Size() int                         { return 8 }
func (h keyHash) Sum64() uint64                     { return uint64(h) }
