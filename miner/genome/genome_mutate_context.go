package genome

import (
	"math/rand"
	"sort"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/core/vm"
)

// DefaultMutateAttempts is the number of operators tried before a mutation
// round gives up.
const DefaultMutateAttempts = 40

// DefaultRegisterCeiling is the number of registers a mined genome may use.
const DefaultRegisterCeiling = 10

// fallbackConstants are used when the histogram knows nothing about an
// instruction.
var fallbackConstants = []int64{-1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// ProgramSource provides the repository programs used as seeds, call targets
// and splice donors.
type ProgramSource interface {
	vm.ProgramLoader
	LoadParsed(id uint32) (*vm.ParsedProgram, error)
}

// ContextConfig holds the inputs of a GenomeMutateContext. Every field is
// optional.
type ContextConfig struct {
	Analytics       *analytics.Snapshot
	Source          ProgramSource
	RegisterCeiling int
	MutateAttempts  int
}

// GenomeMutateContext carries the statistics that bias mutation. It is
// read-only after construction and shared by all workers of one epoch.
type GenomeMutateContext struct {
	popular         *analytics.PopularProgramContainer
	recent          *analytics.RecentProgramContainer
	constants       *analytics.HistogramInstructionConstant
	bigrams         *analytics.HistogramInstructionBigram
	targets         *analytics.HistogramRegisterBigram
	sources         *analytics.HistogramRegisterBigram
	programIDs      []uint32
	source          ProgramSource
	registerCeiling int
	attempts        int
}

func NewGenomeMutateContext(config ContextConfig) *GenomeMutateContext {
	ctx := &GenomeMutateContext{
		source:          config.Source,
		registerCeiling: config.RegisterCeiling,
		attempts:        config.MutateAttempts,
	}
	if ctx.registerCeiling <= 0 {
		ctx.registerCeiling = DefaultRegisterCeiling
	}
	if ctx.attempts <= 0 {
		ctx.attempts = DefaultMutateAttempts
	}
	if snapshot := config.Analytics; snapshot != nil {
		ctx.popular = snapshot.Popular
		ctx.recent = snapshot.Recent
		ctx.constants = snapshot.Constants
		ctx.bigrams = snapshot.Bigrams
		ctx.targets = snapshot.Targets
		ctx.sources = snapshot.Sources
	}
	if ctx.popular != nil {
		for i := 0; i < analytics.NumberOfClusters; i++ {
			ctx.programIDs = append(ctx.programIDs, ctx.popular.Cluster(i)...)
		}
		sort.Slice(ctx.programIDs, func(i, j int) bool { return ctx.programIDs[i] < ctx.programIDs[j] })
	}
	return ctx
}

func (ctx *GenomeMutateContext) RegisterCeiling() int { return ctx.registerCeiling }

// ProgramIDs returns the known valid programs, ascending.
func (ctx *GenomeMutateContext) ProgramIDs() []uint32 { return ctx.programIDs }

// ChooseSeedProgram picks the program a new genome starts from. One seed in
// four favours recently modified programs, the rest are weighted by
// popularity, falling back to a uniform choice among all known programs.
func (ctx *GenomeMutateContext) ChooseSeedProgram(rng *rand.Rand) (uint32, bool) {
	if ctx.recent != nil && rng.Intn(4) == 0 {
		if id, ok := ctx.recent.ChooseWeightedByRecency(rng); ok {
			return id, true
		}
	}
	if ctx.popular != nil {
		if id, ok := ctx.popular.ChooseWeightedByPopularity(rng); ok {
			return id, true
		}
	}
	if len(ctx.programIDs) == 0 {
		return 0, false
	}
	return ctx.programIDs[rng.Intn(len(ctx.programIDs))], true
}

// choosePopularProgram picks a call target or splice donor.
func (ctx *GenomeMutateContext) choosePopularProgram(rng *rand.Rand) (uint32, bool) {
	if ctx.popular == nil {
		return 0, false
	}
	switch rng.Intn(3) {
	case 0:
		if id, ok := ctx.popular.ChooseMostPopular(rng); ok {
			return id, true
		}
	case 1:
		if id, ok := ctx.popular.ChooseMediumPopular(rng); ok {
			return id, true
		}
	}
	return ctx.popular.ChooseWeightedByPopularity(rng)
}

// chooseInstruction picks an arithmetic instruction likely to follow prev.
func (ctx *GenomeMutateContext) chooseInstruction(rng *rand.Rand, prev vm.InstructionID) vm.InstructionID {
	if ctx.bigrams != nil {
		if id, ok := ctx.bigrams.ChooseNext(rng, prev); ok && id.IsArithmetic() {
			return id
		}
	}
	arithmetic := vm.Arithmetic()
	return arithmetic[rng.Intn(len(arithmetic))]
}

// chooseRegister picks a register likely to follow prev in the given role.
func (ctx *GenomeMutateContext) chooseRegister(rng *rand.Rand, role registerRole, prev analytics.RegisterWord) (vm.RegisterIndex, bool) {
	h := ctx.targets
	if role == roleSource {
		h = ctx.sources
	}
	if h == nil {
		return 0, false
	}
	return h.ChooseNext(rng, prev)
}

// chooseConstant picks a constant commonly used with instruction.
func (ctx *GenomeMutateContext) chooseConstant(rng *rand.Rand, instruction vm.InstructionID) int64 {
	if ctx.constants != nil {
		if v, ok := ctx.constants.ChooseConstant(rng, instruction); ok {
			return v
		}
	}
	return fallbackConstants[rng.Intn(len(fallbackConstants))]
}

// LoadGenome loads the repository program id as a genome.
func (ctx *GenomeMutateContext) LoadGenome(id uint32) (*Genome, error) {
	if ctx.source == nil {
		return nil, vm.ErrMissingLoader
	}
	parsed, err := ctx.source.LoadParsed(id)
	if err != nil {
		return nil, err
	}
	return FromParsed(parsed, ctx.registerCeiling)
}
