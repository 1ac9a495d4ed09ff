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

package funnel

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/oeis"
)

var smallConfig = Config{MinimumTerms: 3, TermCount: 5, WildcardMagicValue: 1234567}

func newFunnel(t *testing.T, config Config, references map[uint32][]int64) *Funnel {
	t.Helper()
	set := oeis.NewTermsToProgramIdSet(config.MinimumTerms, config.TermCount, config.Wildcard())
	for id, terms := range references {
		set.Insert(id, vm.RegisterValuesFromInt64(terms...))
	}
	f, err := New(config, set)
	require.NoError(t, err)
	return f
}

func stream(t *testing.T, text string) *vm.TermStream {
	t.Helper()
	program, err := vm.CompileText(0, text, 0, nil)
	require.NoError(t, err)
	return vm.NewProgramRunner(program, vm.DefaultConfig).Terms()
}

func TestHalfConfirmed(t *testing.T) {
	config := Config{MinimumTerms: 3, TermCount: 3, WildcardMagicValue: 1234567}
	program, err := vm.CompileText(0, "div $0,2\n", 0, nil)
	require.NoError(t, err)
	inputs := vm.RegisterValuesFromInt64(10, 9, -10)

	f := newFunnel(t, config, map[uint32][]int64{42: {5, 4, -5}})
	outcome := f.Check(vm.NewProgramRunner(program, vm.DefaultConfig).TermsWithInputs(inputs))
	assert.Equal(t, Confirmed, outcome.Stage)
	assert.Equal(t, []uint32{42}, outcome.IDs)
	assert.Equal(t, 3, outcome.TermCount)

	// Only two known terms, the third is a wildcard.
	f = newFunnel(t, config, map[uint32][]int64{42: {5, 4}})
	outcome = f.Check(vm.NewProgramRunner(program, vm.DefaultConfig).TermsWithInputs(inputs))
	assert.Equal(t, Confirmed, outcome.Stage)
	assert.Equal(t, []uint32{42}, outcome.IDs)

	f = newFunnel(t, config, map[uint32][]int64{42: {5, 4, 1234567}})
	outcome = f.Check(vm.NewProgramRunner(program, vm.DefaultConfig).TermsWithInputs(inputs))
	assert.Equal(t, Confirmed, outcome.Stage)
}

func TestStages(t *testing.T) {
	f := newFunnel(t, smallConfig, map[uint32][]int64{
		1:  {0, 1, 2, 3, 4, 5},
		2:  {0, 1, 2, 3, 99},
		3:  {0, 1, 2, 3, 4},
		4:  {0, 2, 4, 6, 8},
		27: {1, 2, 3},
	})

	outcome := f.Check(stream(t, "mov $0,$0\n"))
	assert.Equal(t, Confirmed, outcome.Stage)
	assert.Equal(t, []uint32{1, 3}, outcome.IDs)
	assert.Len(t, outcome.Terms, 5)

	outcome = f.Check(stream(t, "mul $0,2\n"))
	assert.Equal(t, Confirmed, outcome.Stage)
	assert.Equal(t, []uint32{4}, outcome.IDs)

	// Short reference, padded with wildcards.
	outcome = f.Check(stream(t, "add $0,1\n"))
	assert.Equal(t, Confirmed, outcome.Stage)
	assert.Equal(t, []uint32{27}, outcome.IDs)

	outcome = f.Check(stream(t, "mul $0,3\n"))
	assert.Equal(t, Rejected, outcome.Stage)
	assert.Empty(t, outcome.IDs)

	// Matches the prefix of 1..4, then diverges from all of them.
	outcome = f.Check(stream(t, "mov $1,$0\nmul $1,$0\nmul $1,$0\ndiv $1,27\nadd $0,$1\n"))
	assert.Equal(t, Discarded, outcome.Stage)
}

func TestEvaluationFaults(t *testing.T) {
	f := newFunnel(t, smallConfig, map[uint32][]int64{1: {0, 1, 2, 3, 4}})

	// Fails on the second term.
	outcome := f.Check(stream(t, "mov $1,1\ntrn $1,$0\ndiv $0,$1\n"))
	assert.Equal(t, Rejected, outcome.Stage)

	// Fails on the fifth term, after the prefix matched.
	outcome = f.Check(stream(t, "mov $1,4\nsub $1,$0\nmov $2,$1\ndiv $2,$1\nsub $2,1\nadd $0,$2\n"))
	assert.Equal(t, Discarded, outcome.Stage)
}

func TestNoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	references := make(map[uint32][]int64)
	for id := uint32(1); id <= 200; id++ {
		terms := make([]int64, smallConfig.TermCount)
		for i := range terms {
			terms[i] = rng.Int63n(3)
		}
		references[id] = terms
	}
	f := newFunnel(t, smallConfig, references)
	for id, terms := range references {
		// A program returning the reference terms for inputs 0..4.
		text := "mov $1,$0\nmov $0,0\n"
		for i, term := range terms {
			text += "mov $2,$1\ncmp $2," + strconv.Itoa(i) + "\nmul $2," + strconv.FormatInt(term, 10) + "\nadd $0,$2\n"
		}
		outcome := f.Check(stream(t, text))
		require.Equal(t, Confirmed, outcome.Stage, "id %d", id)
		assert.Contains(t, outcome.IDs, id)
		for i := 1; i < len(outcome.IDs); i++ {
			assert.Less(t, outcome.IDs[i-1], outcome.IDs[i])
		}
	}
}

func TestConfigMismatch(t *testing.T) {
	set := oeis.NewTermsToProgramIdSet(5, 10, DefaultConfig.Wildcard())
	_, err := New(smallConfig, set)
	assert.ErrorIs(t, err, errPrefixMismatch)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "stage(9)", Stage(9).String())
}
