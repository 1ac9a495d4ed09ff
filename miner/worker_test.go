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
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/miner/funnel"
	"github.com/seqmine/seqmine/miner/genome"
)

func TestNewCandidateDropsDeadCode(t *testing.T) {
	parsed, err := vm.ParseProgram("mov $3,5\nadd $4,$3\nmul $0,3\n")
	require.NoError(t, err)
	parent, err := genome.FromParsed(parsed, genome.DefaultRegisterCeiling)
	require.NoError(t, err)
	ctx := genome.NewGenomeMutateContext(genome.ContextConfig{})
	child, err := parent.MutateOnce(rand.New(rand.NewSource(5)), ctx, genome.MutationAdjustConstant)
	require.NoError(t, err)

	values := terms(0, 3, 6)
	outcome := funnel.Outcome{Stage: funnel.Confirmed, IDs: []uint32{8585}, TermCount: 3, Terms: values}
	candidate := newCandidate(child, outcome, outcome.IDs, Fingerprint(values))

	assert.True(t, strings.HasPrefix(candidate.Program, "mul $0,"), candidate.Program)
	assert.Equal(t, 1, strings.Count(candidate.Program, "\n"))
	assert.NotContains(t, candidate.Program, "$3")
	assert.NotContains(t, candidate.Program, "$4")
	assert.Equal(t, []genome.MutationKind{genome.MutationAdjustConstant}, candidate.Mutations)
	assert.Equal(t, Fingerprint(values), candidate.Fingerprint)

	// The genome itself keeps every gene.
	assert.Equal(t, 3, child.Len())
}
