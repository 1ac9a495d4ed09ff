// Package genome implements the mutable program representation used by the
// miner and the mutation operators applied to it.
package genome

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/core/vm"
)

var (
	// ErrMutationNotApplicable is returned when an operator finds nothing to
	// work on, e.g. replacing a constant in a genome without constants.
	ErrMutationNotApplicable = errors.New("mutation not applicable")

	// ErrMutationNoop is returned when an operator leaves the genome unchanged.
	ErrMutationNoop = errors.New("mutation did not change the genome")

	// ErrOutputNotLive is returned for mutations whose output no longer
	// depends on the input.
	ErrOutputNotLive = errors.New("output does not depend on the input")

	// ErrRegisterCeiling is returned for genomes using a register at or above
	// their ceiling.
	ErrRegisterCeiling = errors.New("register above ceiling")
)

// MutationKind names a mutation operator.
type MutationKind int

const (
	MutationReplaceInstruction MutationKind = iota
	MutationReplaceGene
	MutationReplaceConstant
	MutationAdjustConstant
	MutationReplaceSourceRegister
	MutationReplaceTargetRegister
	MutationToggleSourceType
	MutationInsertGene
	MutationDeleteGene
	MutationSwapGenes
	MutationToggleEnabled
	MutationInsertLoop
	MutationInsertCall
	MutationSpliceFragment

	mutationKindCount
)

var mutationKindNames = [mutationKindCount]string{
	"replace_instruction",
	"replace_gene",
	"replace_constant",
	"adjust_constant",
	"replace_source_register",
	"replace_target_register",
	"toggle_source_type",
	"insert_gene",
	"delete_gene",
	"swap_genes",
	"toggle_enabled",
	"insert_loop",
	"insert_call",
	"splice_fragment",
}

func (k MutationKind) String() string {
	if k < 0 || k >= mutationKindCount {
		return fmt.Sprintf("mutation(%d)", int(k))
	}
	return mutationKindNames[k]
}

// mutationWeights biases the operator choice towards small local edits.
var mutationWeights = [mutationKindCount]uint64{
	MutationReplaceInstruction:    8,
	MutationReplaceGene:           4,
	MutationReplaceConstant:       10,
	MutationAdjustConstant:        10,
	MutationReplaceSourceRegister: 6,
	MutationReplaceTargetRegister: 4,
	MutationToggleSourceType:      4,
	MutationInsertGene:            6,
	MutationDeleteGene:            4,
	MutationSwapGenes:             4,
	MutationToggleEnabled:         4,
	MutationInsertLoop:            2,
	MutationInsertCall:            3,
	MutationSpliceFragment:        3,
}

// Genome is an ordered list of genes with a register ceiling. Genomes are
// never modified in place: every mutation returns a new genome.
type Genome struct {
	items           []GenomeItem
	registerCeiling int
	log             []MutationKind
	program         *vm.Program
}

// NewGenome creates a genome from items. The slice is copied.
func NewGenome(items []GenomeItem, registerCeiling int) *Genome {
	if registerCeiling <= 0 {
		registerCeiling = DefaultRegisterCeiling
	}
	cpy := make([]GenomeItem, len(items))
	copy(cpy, items)
	return &Genome{items: cpy, registerCeiling: registerCeiling}
}

// FromParsed converts a parsed program. Programs using registers at or above
// the ceiling are rejected.
func FromParsed(parsed *vm.ParsedProgram, registerCeiling int) (*Genome, error) {
	items := make([]GenomeItem, 0, len(parsed.Instructions))
	for _, instruction := range parsed.Instructions {
		item, err := NewGenomeItem(instruction)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	g := NewGenome(items, registerCeiling)
	if err := g.checkRegisters(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Genome) Len() int { return len(g.items) }

func (g *Genome) RegisterCeiling() int { return g.registerCeiling }

// Items returns a copy of the genes.
func (g *Genome) Items() []GenomeItem {
	cpy := make([]GenomeItem, len(g.items))
	copy(cpy, g.items)
	return cpy
}

// MutationLog returns the operators applied since the genome was loaded.
func (g *Genome) MutationLog() []MutationKind {
	cpy := make([]MutationKind, len(g.log))
	copy(cpy, g.log)
	return cpy
}

// Program returns the program compiled when the genome was validated by a
// mutation, or nil.
func (g *Genome) Program() *vm.Program { return g.program }

// ToParsed returns the enabled genes as a parsed program.
func (g *Genome) ToParsed() *vm.ParsedProgram {
	parsed := &vm.ParsedProgram{Instructions: make([]vm.ParsedInstruction, 0, len(g.items))}
	for _, item := range g.items {
		if item.Enabled {
			parsed.Instructions = append(parsed.Instructions, item.Parsed())
		}
	}
	return parsed
}

// ToProgram compiles the enabled genes.
func (g *Genome) ToProgram(loader vm.ProgramLoader) (*vm.Program, error) {
	return g.ToParsed().Compile(0, g.registerCeiling, loader)
}

// String renders the enabled genes as assembly.
func (g *Genome) String() string {
	return g.ToParsed().String()
}

// Dump renders every gene, disabled ones commented out.
func (g *Genome) Dump() string {
	var b strings.Builder
	for _, item := range g.items {
		b.WriteString(item.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Genome) equal(other *Genome) bool {
	if len(g.items) != len(other.items) {
		return false
	}
	for i := range g.items {
		if g.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (g *Genome) clone() *Genome {
	c := NewGenome(g.items, g.registerCeiling)
	c.log = append(make([]MutationKind, 0, len(g.log)+1), g.log...)
	return c
}

func (g *Genome) checkRegisters() error {
	ceiling := vm.RegisterIndex(g.registerCeiling)
	for _, item := range g.items {
		if item.Instruction == vm.LPE {
			continue
		}
		if item.Target >= ceiling {
			return fmt.Errorf("%w: %v", ErrRegisterCeiling, item)
		}
		if item.SourceType == vm.ParameterRegister && (item.Source < 0 || item.Source >= int64(ceiling)) {
			return fmt.Errorf("%w: %v", ErrRegisterCeiling, item)
		}
		if item.Instruction == vm.CLR && item.Source > 0 && int64(item.Target)+item.Source > int64(ceiling) {
			return fmt.Errorf("%w: %v", ErrRegisterCeiling, item)
		}
	}
	return nil
}

// validate checks the register ceiling and compiles the genome, which also
// checks loop balance and call targets.
func (g *Genome) validate(loader vm.ProgramLoader) error {
	if err := g.checkRegisters(); err != nil {
		return err
	}
	program, err := g.ToProgram(loader)
	if err != nil {
		return err
	}
	g.program = program
	return nil
}

// Mutate applies randomly chosen operators until one produces a valid,
// different genome, giving up after the context's attempt cap. The receiver
// is left untouched.
func (g *Genome) Mutate(rng *rand.Rand, ctx *GenomeMutateContext) (*Genome, bool) {
	for attempt := 0; attempt < ctx.attempts; attempt++ {
		kind := MutationKind(analytics.ChooseWeighted(rng, mutationWeights[:]))
		mutated, err := g.MutateOnce(rng, ctx, kind)
		if err == nil {
			return mutated, true
		}
	}
	return nil, false
}

// MutateOnce applies one specific operator and validates the result.
func (g *Genome) MutateOnce(rng *rand.Rand, ctx *GenomeMutateContext, kind MutationKind) (*Genome, error) {
	mutated := g.clone()
	var err error
	switch kind {
	case MutationReplaceInstruction:
		err = mutated.replaceInstruction(rng, ctx)
	case MutationReplaceGene:
		err = mutated.replaceGene(rng, ctx)
	case MutationReplaceConstant:
		err = mutated.replaceConstant(rng, ctx)
	case MutationAdjustConstant:
		err = mutated.adjustConstant(rng)
	case MutationReplaceSourceRegister:
		err = mutated.replaceSourceRegister(rng, ctx)
	case MutationReplaceTargetRegister:
		err = mutated.replaceTargetRegister(rng, ctx)
	case MutationToggleSourceType:
		err = mutated.toggleSourceType(rng, ctx)
	case MutationInsertGene:
		err = mutated.insertGene(rng, ctx)
	case MutationDeleteGene:
		err = mutated.deleteGene(rng)
	case MutationSwapGenes:
		err = mutated.swapGenes(rng)
	case MutationToggleEnabled:
		err = mutated.toggleEnabled(rng)
	case MutationInsertLoop:
		err = mutated.insertLoop(rng, ctx)
	case MutationInsertCall:
		err = mutated.insertCall(rng, ctx)
	case MutationSpliceFragment:
		err = mutated.spliceFragment(rng, ctx)
	default:
		err = fmt.Errorf("unknown %v", kind)
	}
	if err != nil {
		return nil, err
	}
	if mutated.equal(g) {
		return nil, ErrMutationNoop
	}
	var loader vm.ProgramLoader
	if ctx.source != nil {
		loader = ctx.source
	}
	if err := mutated.validate(loader); err != nil {
		return nil, err
	}
	if !mutated.program.OutputIsLive() {
		return nil, ErrOutputNotLive
	}
	mutated.log = append(mutated.log, kind)
	return mutated, nil
}

// pick returns the index of a random gene satisfying accept, or -1.
func (g *Genome) pick(rng *rand.Rand, accept func(GenomeItem) bool) int {
	var candidates []int
	for i, item := range g.items {
		if accept(item) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[rng.Intn(len(candidates))]
}

func (g *Genome) previousInstruction(i int) vm.InstructionID {
	for j := i - 1; j >= 0; j-- {
		if g.items[j].Enabled {
			return g.items[j].Instruction
		}
	}
	return 0
}

type registerRole int

const (
	roleTarget registerRole = iota
	roleSource
)

// previousRegister returns the register of the closest enabled gene before i
// that has one in the given role.
func (g *Genome) previousRegister(role registerRole, i int) analytics.RegisterWord {
	for j := i - 1; j >= 0; j-- {
		item := g.items[j]
		if !item.Enabled {
			continue
		}
		switch {
		case role == roleTarget && item.Instruction != vm.LPE:
			return analytics.RegisterWord(item.Target)
		case role == roleSource && item.Instruction.IsArithmetic() && item.SourceType == vm.ParameterRegister:
			return analytics.RegisterWord(item.Source)
		}
	}
	return analytics.RegisterStart
}

// chooseRegister picks the register for gene i. The register histograms are
// asked first; the result is limited to the registers in use plus one fresh
// one.
func (g *Genome) chooseRegister(rng *rand.Rand, ctx *GenomeMutateContext, role registerRole, i int) vm.RegisterIndex {
	limit := g.registerLimit()
	if r, ok := ctx.chooseRegister(rng, role, g.previousRegister(role, i)); ok && int(r) < limit {
		return r
	}
	return vm.RegisterIndex(rng.Intn(limit))
}

func (g *Genome) registerLimit() int {
	highest := vm.RegisterIndex(0)
	for _, item := range g.items {
		if item.Instruction != vm.LPE && item.Target > highest {
			highest = item.Target
		}
		if item.SourceType == vm.ParameterRegister && vm.RegisterIndex(item.Source) > highest {
			highest = vm.RegisterIndex(item.Source)
		}
	}
	limit := int(highest) + 2
	if limit > g.registerCeiling {
		limit = g.registerCeiling
	}
	return limit
}

func isArithmetic(item GenomeItem) bool { return item.Instruction.IsArithmetic() }

func (g *Genome) replaceInstruction(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, isArithmetic)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items[i].Instruction = ctx.chooseInstruction(rng, g.previousInstruction(i))
	return nil
}

// replaceGene replaces instruction and source of a gene, keeping its target.
func (g *Genome) replaceGene(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, isArithmetic)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	instruction := ctx.chooseInstruction(rng, g.previousInstruction(i))
	g.items[i].Instruction = instruction
	g.items[i].SourceType = vm.ParameterConstant
	g.items[i].Source = ctx.chooseConstant(rng, instruction)
	return nil
}

func (g *Genome) replaceConstant(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, GenomeItem.HasConstant)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items[i].Source = ctx.chooseConstant(rng, g.items[i].Instruction)
	return nil
}

func (g *Genome) adjustConstant(rng *rand.Rand) error {
	i := g.pick(rng, GenomeItem.HasConstant)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	if rng.Intn(2) == 0 {
		g.items[i].Source++
	} else {
		g.items[i].Source--
	}
	return nil
}

func (g *Genome) replaceSourceRegister(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, GenomeItem.HasSourceRegister)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items[i].Source = int64(g.chooseRegister(rng, ctx, roleSource, i))
	return nil
}

func (g *Genome) replaceTargetRegister(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, isArithmetic)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items[i].Target = g.chooseRegister(rng, ctx, roleTarget, i)
	return nil
}

func (g *Genome) toggleSourceType(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := g.pick(rng, isArithmetic)
	if i < 0 {
		return ErrMutationNotApplicable
	}
	item := &g.items[i]
	if item.SourceType == vm.ParameterRegister {
		item.SourceType = vm.ParameterConstant
		item.Source = ctx.chooseConstant(rng, item.Instruction)
	} else {
		item.SourceType = vm.ParameterRegister
		item.Source = int64(g.chooseRegister(rng, ctx, roleSource, i))
	}
	return nil
}

func (g *Genome) insert(i int, items ...GenomeItem) {
	g.items = append(g.items[:i], append(append([]GenomeItem(nil), items...), g.items[i:]...)...)
}

func (g *Genome) insertGene(rng *rand.Rand, ctx *GenomeMutateContext) error {
	i := rng.Intn(len(g.items) + 1)
	instruction := ctx.chooseInstruction(rng, g.previousInstruction(i))
	g.insert(i, GenomeItem{
		Enabled:     true,
		Instruction: instruction,
		Target:      g.chooseRegister(rng, ctx, roleTarget, i),
		SourceType:  vm.ParameterConstant,
		Source:      ctx.chooseConstant(rng, instruction),
	})
	return nil
}

func (g *Genome) deleteGene(rng *rand.Rand) error {
	if len(g.items) < 2 {
		return ErrMutationNotApplicable
	}
	i := g.pick(rng, func(item GenomeItem) bool { return !item.IsLoop() })
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items = append(g.items[:i], g.items[i+1:]...)
	return nil
}

func (g *Genome) swapGenes(rng *rand.Rand) error {
	if len(g.items) < 2 {
		return ErrMutationNotApplicable
	}
	i := rng.Intn(len(g.items) - 1)
	if g.items[i].IsLoop() || g.items[i+1].IsLoop() {
		return ErrMutationNotApplicable
	}
	g.items[i], g.items[i+1] = g.items[i+1], g.items[i]
	return nil
}

func (g *Genome) toggleEnabled(rng *rand.Rand) error {
	i := g.pick(rng, func(item GenomeItem) bool { return !item.IsLoop() })
	if i < 0 {
		return ErrMutationNotApplicable
	}
	g.items[i].Enabled = !g.items[i].Enabled
	return nil
}

// insertLoop wraps a range of genes in a loop counting a register down by one
// per iteration.
func (g *Genome) insertLoop(rng *rand.Rand, ctx *GenomeMutateContext) error {
	var (
		start   = rng.Intn(len(g.items) + 1)
		end     = start + rng.Intn(len(g.items)-start+1)
		counter = g.chooseRegister(rng, ctx, roleTarget, start)
	)
	body := append([]GenomeItem(nil), g.items[start:end]...)
	body = append(body, GenomeItem{Enabled: true, Instruction: vm.SUB, Target: counter, SourceType: vm.ParameterConstant, Source: 1})
	items := make([]GenomeItem, 0, len(g.items)+3)
	items = append(items, g.items[:start]...)
	items = append(items, GenomeItem{Enabled: true, Instruction: vm.LPB, Target: counter})
	items = append(items, body...)
	items = append(items, GenomeItem{Enabled: true, Instruction: vm.LPE})
	items = append(items, g.items[end:]...)
	g.items = items
	return nil
}

func (g *Genome) insertCall(rng *rand.Rand, ctx *GenomeMutateContext) error {
	if ctx.source == nil {
		return ErrMutationNotApplicable
	}
	id, ok := ctx.choosePopularProgram(rng)
	if !ok {
		return ErrMutationNotApplicable
	}
	i := rng.Intn(len(g.items) + 1)
	g.insert(i, GenomeItem{
		Enabled:     true,
		Instruction: vm.SEQ,
		Target:      g.chooseRegister(rng, ctx, roleTarget, i),
		SourceType:  vm.ParameterConstant,
		Source:      int64(id),
	})
	return nil
}

// spliceFragment copies a short run of arithmetic genes from a popular program.
func (g *Genome) spliceFragment(rng *rand.Rand, ctx *GenomeMutateContext) error {
	if ctx.source == nil {
		return ErrMutationNotApplicable
	}
	id, ok := ctx.choosePopularProgram(rng)
	if !ok {
		return ErrMutationNotApplicable
	}
	parsed, err := ctx.source.LoadParsed(id)
	if err != nil {
		return err
	}
	donor, err := FromParsed(parsed, g.registerCeiling)
	if err != nil {
		return err
	}
	var fragment []GenomeItem
	start := rng.Intn(donor.Len() + 1)
	for _, item := range donor.items[start:] {
		if !item.Instruction.IsArithmetic() || len(fragment) == 3 {
			break
		}
		fragment = append(fragment, item)
	}
	if len(fragment) == 0 {
		return ErrMutationNotApplicable
	}
	g.insert(rng.Intn(len(g.items)+1), fragment...)
	return nil
}
