package genome

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/core/vm"
)

func mustGenome(t *testing.T, text string) *Genome {
	t.Helper()
	parsed, err := vm.ParseProgram(text)
	require.NoError(t, err)
	g, err := FromParsed(parsed, DefaultRegisterCeiling)
	require.NoError(t, err)
	return g
}

func testSnapshot(t *testing.T) *analytics.Snapshot {
	t.Helper()
	popular, err := analytics.ReadPopularProgramContainer(strings.NewReader("program id;popularity\n27;9\n5;1\n45;0\n"))
	require.NoError(t, err)
	constants := analytics.NewHistogramInstructionConstant()
	constants.Add(vm.ADD, 1, 10)
	constants.Add(vm.MUL, 2, 5)
	constants.Add(vm.DIV, 2, 5)
	bigrams := analytics.NewHistogramInstructionBigram()
	bigrams.Add(0, vm.MOV, 3)
	bigrams.Add(vm.MOV, vm.ADD, 3)
	bigrams.Add(vm.ADD, vm.MUL, 1)
	return &analytics.Snapshot{Popular: popular, Constants: constants, Bigrams: bigrams}
}

func testSource(t *testing.T) *programs.DependencyLoader {
	t.Helper()
	repo := programs.NewRepository(t.TempDir())
	require.NoError(t, repo.WriteProgram(27, "add $0,1\n"))
	require.NoError(t, repo.WriteProgram(5, "seq $0,27\nmul $0,2\nadd $0,3\n"))
	require.NoError(t, repo.WriteProgram(45, "mov $1,1\nlpb $0\n  sub $0,1\n  mov $2,$1\n  add $1,$3\n  mov $3,$2\nlpe\nmov $0,$3\n"))
	return programs.NewDependencyLoader(repo, 0, 0)
}

func TestIdentityToHalf(t *testing.T) {
	// Make "div $0,2" the only possible replacement.
	constants := analytics.NewHistogramInstructionConstant()
	constants.Add(vm.DIV, 2, 1)
	bigrams := analytics.NewHistogramInstructionBigram()
	bigrams.Add(0, vm.DIV, 1)
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: &analytics.Snapshot{Constants: constants, Bigrams: bigrams}})

	seed := mustGenome(t, "mov $0,$0\n")
	mutated, err := seed.MutateOnce(rand.New(rand.NewSource(1)), ctx, MutationReplaceGene)
	require.NoError(t, err)
	assert.Equal(t, "div $0,2\n", mutated.String())
	assert.Equal(t, []MutationKind{MutationReplaceGene}, mutated.MutationLog())
	assert.Equal(t, "mov $0,$0\n", seed.String())

	stream := vm.NewProgramRunner(mutated.Program(), vm.DefaultConfig).TermsWithInputs(vm.RegisterValuesFromInt64(10, 9, -10))
	require.NoError(t, stream.Extend(3))
	var terms []string
	for _, term := range stream.Terms() {
		terms = append(terms, term.String())
	}
	assert.Equal(t, []string{"5", "4", "-5"}, terms)
}

func TestMutateKeepsGenomeValid(t *testing.T) {
	source := testSource(t)
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: testSnapshot(t), Source: source})
	rng := rand.New(rand.NewSource(42))

	g, err := ctx.LoadGenome(45)
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		mutated, ok := g.Mutate(rng, ctx)
		if !ok {
			continue
		}
		assert.False(t, mutated.equal(g))
		require.NoError(t, mutated.checkRegisters())
		require.NotNil(t, mutated.Program())
		_, err := mutated.ToProgram(source)
		require.NoError(t, err, mutated.Dump())

		depth := 0
		for _, item := range mutated.items {
			if !item.Enabled {
				continue
			}
			switch item.Instruction {
			case vm.LPB:
				depth++
			case vm.LPE:
				depth--
			}
			require.GreaterOrEqual(t, depth, 0)
		}
		require.Equal(t, 0, depth)
		g = mutated
	}
	assert.NotEmpty(t, g.MutationLog())
}

func TestMutateDeterministic(t *testing.T) {
	source := testSource(t)
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: testSnapshot(t), Source: source})

	run := func() []string {
		rng := rand.New(rand.NewSource(7))
		g, err := ctx.LoadGenome(5)
		require.NoError(t, err)
		var out []string
		for i := 0; i < 50; i++ {
			if mutated, ok := g.Mutate(rng, ctx); ok {
				g = mutated
			}
			out = append(out, g.Dump())
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestMutateOnceNotApplicable(t *testing.T) {
	ctx := NewGenomeMutateContext(ContextConfig{})
	rng := rand.New(rand.NewSource(1))
	g := mustGenome(t, "mov $1,$0\n")

	_, err := g.MutateOnce(rng, ctx, MutationReplaceConstant)
	assert.ErrorIs(t, err, ErrMutationNotApplicable)
	_, err = g.MutateOnce(rng, ctx, MutationDeleteGene)
	assert.ErrorIs(t, err, ErrMutationNotApplicable)
	_, err = g.MutateOnce(rng, ctx, MutationInsertCall)
	assert.ErrorIs(t, err, ErrMutationNotApplicable)
	_, err = g.MutateOnce(rng, ctx, MutationSpliceFragment)
	assert.ErrorIs(t, err, ErrMutationNotApplicable)
}

func TestMutateRejectsConstantOutput(t *testing.T) {
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: testSnapshot(t)})
	g := mustGenome(t, "mov $0,$0\n")
	_, err := g.MutateOnce(rand.New(rand.NewSource(1)), ctx, MutationToggleSourceType)
	assert.ErrorIs(t, err, ErrOutputNotLive)

	// A constant stays fine while $0 still flows into the output.
	g = mustGenome(t, "mov $1,$0\nadd $0,$1\n")
	mutated, err := g.MutateOnce(rand.New(rand.NewSource(1)), ctx, MutationToggleSourceType)
	require.NoError(t, err)
	assert.True(t, mutated.Program().OutputIsLive())
}

func TestMutateAttemptCap(t *testing.T) {
	// A genome of a single loop header pair has nothing most operators can
	// work on, and a cap of one attempt makes failure likely but harmless.
	ctx := NewGenomeMutateContext(ContextConfig{MutateAttempts: 1})
	g := mustGenome(t, "lpb $0\nlpe\n")
	rng := rand.New(rand.NewSource(3))
	failures := 0
	for i := 0; i < 100; i++ {
		mutated, ok := g.Mutate(rng, ctx)
		if !ok {
			assert.Nil(t, mutated)
			failures++
		}
	}
	assert.Greater(t, failures, 0)
}

func TestFromParsed(t *testing.T) {
	parsed, err := vm.ParseProgram("mov $12,1\n")
	require.NoError(t, err)
	_, err = FromParsed(parsed, 10)
	assert.ErrorIs(t, err, ErrRegisterCeiling)

	g, err := FromParsed(parsed, 16)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	g = mustGenome(t, "mov $1,$0\nlpb $1\n  sub $1,1\nlpe\nseq $0,45\n")
	assert.Equal(t, "mov $1,$0\nlpb $1\n  sub $1,1\nlpe\nseq $0,45\n", g.String())

	items := g.Items()
	items[0].Enabled = false
	disabled := NewGenome(items, 10)
	assert.Equal(t, "; mov $1,$0\nlpb $1\nsub $1,1\nlpe\nseq $0,45\n", disabled.Dump())
	assert.Equal(t, "lpb $1\n  sub $1,1\nlpe\nseq $0,45\n", disabled.String())
}

func TestSeedProgram(t *testing.T) {
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: testSnapshot(t)})
	assert.Equal(t, []uint32{5, 27, 45}, ctx.ProgramIDs())
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		id, ok := ctx.ChooseSeedProgram(rng)
		require.True(t, ok)
		assert.Contains(t, []uint32{5, 27, 45}, id)
	}
	_, ok := NewGenomeMutateContext(ContextConfig{}).ChooseSeedProgram(rng)
	assert.False(t, ok)
}

func TestSeedProgramPrefersRecent(t *testing.T) {
	snapshot := testSnapshot(t)
	var records []analytics.ModifiedRecord
	for id := uint32(100); id < 110; id++ {
		records = append(records, analytics.ModifiedRecord{ProgramID: id, Modified: time.Unix(int64(id), 0)})
	}
	snapshot.Recent = analytics.NewRecentProgramContainer(records)
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: snapshot})

	rng := rand.New(rand.NewSource(11))
	recent := 0
	for i := 0; i < 400; i++ {
		id, ok := ctx.ChooseSeedProgram(rng)
		require.True(t, ok)
		if id >= 100 {
			recent++
			continue
		}
		assert.Contains(t, []uint32{5, 27, 45}, id)
	}
	assert.InDelta(t, 100, recent, 50)
}

func TestChooseRegisterFollowsHistogram(t *testing.T) {
	targets := analytics.NewHistogramRegisterBigram()
	targets.Add(analytics.RegisterStart, 1, 1)
	targets.Add(1, 2, 1)
	targets.Add(2, 7, 1)
	sources := analytics.NewHistogramRegisterBigram()
	sources.Add(1, 3, 1)
	ctx := NewGenomeMutateContext(ContextConfig{Analytics: &analytics.Snapshot{Targets: targets, Sources: sources}})

	g := mustGenome(t, "mov $1,$0\nmov $2,$1\nadd $0,$2\n")
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, vm.RegisterIndex(1), g.chooseRegister(rng, ctx, roleTarget, 0))
		assert.Equal(t, vm.RegisterIndex(2), g.chooseRegister(rng, ctx, roleTarget, 1))
		assert.Equal(t, vm.RegisterIndex(3), g.chooseRegister(rng, ctx, roleSource, 2))

		// $7 is past the registers in use plus one fresh one.
		assert.Less(t, int(g.chooseRegister(rng, ctx, roleTarget, 2)), 4)
	}
}
