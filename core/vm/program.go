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

package vm

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Program is an immutable sequence of nodes. Programs loaded from the
// repository carry their sequence id, candidates use id 0.
type Program struct {
	id    uint32
	nodes []*Node
}

// NewProgram creates a program from nodes. The slice is copied.
func NewProgram(id uint32, nodes []*Node) *Program {
	cpy := make([]*Node, len(nodes))
	copy(cpy, nodes)
	return &Program{id: id, nodes: cpy}
}

func (p *Program) ID() uint32 { return p.id }

// Len returns the number of top level nodes.
func (p *Program) Len() int { return len(p.nodes) }

// Nodes returns the top level nodes.
func (p *Program) Nodes() []*Node {
	cpy := make([]*Node, len(p.nodes))
	copy(cpy, p.nodes)
	return cpy
}

func (p *Program) run(state *ProgramState, cache *ProgramCache) error {
	for _, node := range p.nodes {
		if err := state.step(); err != nil {
			return err
		}
		if err := node.Eval(state, cache); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) runWith(state *ProgramState, input RegisterValue, cache *ProgramCache) (RegisterValue, error) {
	if err := state.Set(0, input); err != nil {
		return RegisterValue{}, err
	}
	if err := p.run(state, cache); err != nil {
		return RegisterValue{}, err
	}
	return state.Get(0), nil
}

// Run evaluates the program with input in $0 and returns $0. The cache may be
// nil, in which case called programs are always evaluated.
func (p *Program) Run(input RegisterValue, config Config, cache *ProgramCache) (RegisterValue, error) {
	state := NewProgramState(config)
	output, err := p.runWith(state, input, cache)
	stepCounter.Inc(int64(state.steps))
	if err != nil {
		evalFaultMeter.Mark(1)
	}
	return output, err
}

// RunState evaluates the program against an existing state. Mostly useful for
// inspecting registers other than $0 in tests and tools.
func (p *Program) RunState(state *ProgramState, cache *ProgramCache) error {
	return p.run(state, cache)
}

// String disassembles the program, one instruction per line, loop bodies
// indented by two spaces.
func (p *Program) String() string {
	var b strings.Builder
	p.disassemble(&b, 0)
	return b.String()
}

func (p *Program) disassemble(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, node := range p.nodes {
		b.WriteString(indent)
		b.WriteString(node.String())
		b.WriteByte('\n')
		if node.op == LPB {
			node.body.disassemble(b, depth+1)
			b.WriteString(indent)
			b.WriteString("lpe\n")
		}
	}
}

func (p *Program) registers(set mapset.Set[RegisterIndex]) {
	for _, node := range p.nodes {
		node.Registers(set)
	}
}

// Registers returns every register the program reads or writes.
func (p *Program) Registers() mapset.Set[RegisterIndex] {
	set := mapset.NewThreadUnsafeSet[RegisterIndex]()
	p.registers(set)
	return set
}

// LiveRegisters folds the dataflow of all nodes starting from the live input
// registers. The input set is not modified.
func (p *Program) LiveRegisters(input mapset.Set[RegisterIndex]) mapset.Set[RegisterIndex] {
	live := mapset.NewThreadUnsafeSet[RegisterIndex]()
	if input != nil {
		live.Append(input.ToSlice()...)
	}
	for _, node := range p.nodes {
		node.LiveRegisters(live)
	}
	return live
}

// OutputIsLive reports whether $0 depends on the input $0 after running the
// program. Programs whose output ignores the input produce constant sequences.
func (p *Program) OutputIsLive() bool {
	return p.LiveRegisters(mapset.NewThreadUnsafeSet[RegisterIndex](0)).Contains(0)
}

// EliminateDeadCode returns a copy of the program without the instructions
// whose result never reaches $0. Loops are kept whole.
func (p *Program) EliminateDeadCode() *Program {
	live := mapset.NewThreadUnsafeSet[RegisterIndex](0)
	keep := make([]*Node, 0, len(p.nodes))
	for i := len(p.nodes) - 1; i >= 0; i-- {
		node := p.nodes[i]
		if !node.writesLive(live) {
			continue
		}
		node.liveBefore(live)
		keep = append(keep, node)
	}
	slices.Reverse(keep)
	return &Program{id: p.id, nodes: keep}
}

// Dependencies returns the ids of directly called programs in order of
// first appearance.
func (p *Program) Dependencies() []uint32 {
	var (
		ids  []uint32
		seen = make(map[uint32]struct{})
	)
	var walk func(*Program)
	walk = func(prog *Program) {
		for _, node := range prog.nodes {
			switch node.op {
			case SEQ:
				if _, ok := seen[node.callee.id]; !ok {
					seen[node.callee.id] = struct{}{}
					ids = append(ids, node.callee.id)
				}
			case LPB:
				walk(node.body)
			}
		}
	}
	walk(p)
	return ids
}
