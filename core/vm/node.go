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
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Operand is the source parameter of an instruction.
type Operand struct {
	Type     ParameterType
	Register RegisterIndex
	Constant RegisterValue
}

// RegisterOperand returns an operand reading register r.
func RegisterOperand(r RegisterIndex) Operand {
	return Operand{Type: ParameterRegister, Register: r}
}

// ConstantOperand returns an operand holding the constant c.
func ConstantOperand(c int64) Operand {
	return Operand{Type: ParameterConstant, Constant: NewRegisterValue(c)}
}

func (o Operand) String() string {
	switch o.Type {
	case ParameterRegister:
		return o.Register.String()
	case ParameterConstant:
		return o.Constant.String()
	}
	return ""
}

func (o Operand) value(state *ProgramState) RegisterValue {
	if o.Type == ParameterRegister {
		return state.Get(o.Register)
	}
	return o.Constant
}

// Node is one executable instruction. The set of node kinds is closed: every
// kind is handled by the switch statements in Eval, String, Registers and
// LiveRegisters. Nodes are immutable after construction.
type Node struct {
	op     InstructionID
	target RegisterIndex
	source Operand
	fn     arithmeticFunc

	body   *Program // loop body, LPB only
	callee *Program // called program, SEQ only
}

// NewArithmeticNode creates a two operand node such as "add $1,$2".
func NewArithmeticNode(op InstructionID, target RegisterIndex, source Operand) (*Node, error) {
	fn, ok := arithmeticTable[op]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownInstruction, op)
	}
	if source.Type == ParameterNone {
		return nil, fmt.Errorf("%w: %v needs a source", ErrInvalidParameters, op)
	}
	return &Node{op: op, target: target, source: source, fn: fn}, nil
}

// NewLoopNode creates a loop over body controlled by the counter register.
func NewLoopNode(counter RegisterIndex, body *Program) *Node {
	return &Node{op: LPB, target: counter, body: body}
}

// NewCallNode creates a node computing target = callee(target).
func NewCallNode(target RegisterIndex, callee *Program) *Node {
	return &Node{op: SEQ, target: target, callee: callee, source: ConstantOperand(int64(callee.ID()))}
}

// NewClearNode creates a node zeroing count registers starting at target.
func NewClearNode(target RegisterIndex, count int64) *Node {
	return &Node{op: CLR, target: target, source: ConstantOperand(count)}
}

func (n *Node) Op() InstructionID     { return n.op }
func (n *Node) Target() RegisterIndex { return n.target }
func (n *Node) Source() Operand       { return n.source }

// Body returns the loop body of an LPB node, nil otherwise.
func (n *Node) Body() *Program { return n.body }

// Eval executes the node against state.
func (n *Node) Eval(state *ProgramState, cache *ProgramCache) error {
	switch n.op {
	case LPB:
		return n.evalLoop(state, cache)
	case SEQ:
		return n.evalCall(state, cache)
	case CLR:
		return n.evalClear(state)
	default:
		value, err := n.fn(state.config.OperandBitLimit, state.Get(n.target), n.source.value(state))
		if err != nil {
			return err
		}
		return state.Set(n.target, value)
	}
}

// evalLoop repeats the body while the counter stays non-negative and strictly
// decreases. The iteration that breaks this rule is rolled back.
func (n *Node) evalLoop(state *ProgramState, cache *ProgramCache) error {
	for {
		counter := state.Get(n.target)
		if counter.BitLen() >= state.config.OperandBitLimit {
			return ErrLoopCounterOutOfRange
		}
		saved := state.snapshot()
		if err := n.body.run(state, cache); err != nil {
			return err
		}
		next := state.Get(n.target)
		if next.Sign() < 0 || next.Cmp(counter) >= 0 {
			state.restore(saved)
			return nil
		}
	}
}

func (n *Node) evalCall(state *ProgramState, cache *ProgramCache) error {
	input := state.Get(n.target)
	if input.Sign() < 0 {
		return ErrCallInputNegative
	}
	if state.depth >= state.config.MaxCallDepth {
		return ErrCallDepthExceeded
	}
	id := n.callee.ID()
	if cache != nil {
		if value, ok := cache.get(id, input); ok {
			return state.Set(n.target, value)
		}
	}
	child := state.child()
	output, err := n.callee.runWith(child, input, cache)
	state.steps = child.steps
	if err != nil {
		return err
	}
	if cache != nil {
		cache.set(id, input, output)
	}
	return state.Set(n.target, output)
}

func (n *Node) evalClear(state *ProgramState) error {
	count, ok := n.source.Constant.Int64()
	if !ok || count < 0 || int64(n.target)+count > int64(state.config.MaxRegisters) {
		return ErrClearOutOfRange
	}
	for i := int64(0); i < count; i++ {
		if err := state.Set(n.target+RegisterIndex(i), RegisterValue{}); err != nil {
			return err
		}
	}
	return nil
}

// String disassembles the node. Loop nodes only render their header line.
func (n *Node) String() string {
	switch n.op {
	case LPB:
		return fmt.Sprintf("lpb %v", n.target)
	default:
		return fmt.Sprintf("%v %v,%v", n.op, n.target, n.source)
	}
}

// Registers adds every register the node reads or writes to set.
func (n *Node) Registers(set mapset.Set[RegisterIndex]) {
	switch n.op {
	case LPB:
		set.Add(n.target)
		n.body.registers(set)
	case SEQ:
		set.Add(n.target)
	case CLR:
		count, _ := n.source.Constant.Int64()
		for i := int64(0); i < count; i++ {
			set.Add(n.target + RegisterIndex(i))
		}
	default:
		set.Add(n.target)
		if n.source.Type == ParameterRegister {
			set.Add(n.source.Register)
		}
	}
}

// LiveRegisters updates the live set with the effect of this node. A target
// becomes live when a register it reads is live. Loops and calls are treated
// conservatively: everything they touch is considered live.
func (n *Node) LiveRegisters(live mapset.Set[RegisterIndex]) {
	switch n.op {
	case LPB:
		live.Add(n.target)
		n.body.registers(live)
	case SEQ:
		live.Add(n.target)
	case CLR:
		count, _ := n.source.Constant.Int64()
		for i := int64(0); i < count; i++ {
			live.Remove(n.target + RegisterIndex(i))
		}
	case MOV:
		if n.source.Type == ParameterRegister && live.Contains(n.source.Register) {
			live.Add(n.target)
		} else {
			live.Remove(n.target)
		}
	default:
		if n.source.Type == ParameterRegister && live.Contains(n.source.Register) {
			live.Add(n.target)
		}
	}
}

// writesLive reports whether the node can change a register in live.
func (n *Node) writesLive(live mapset.Set[RegisterIndex]) bool {
	switch n.op {
	case LPB:
		return true
	case CLR:
		count, _ := n.source.Constant.Int64()
		for i := int64(0); i < count; i++ {
			if live.Contains(n.target + RegisterIndex(i)) {
				return true
			}
		}
		return false
	default:
		return live.Contains(n.target)
	}
}

// liveBefore turns the set of registers live after the node into the set
// live before it.
func (n *Node) liveBefore(live mapset.Set[RegisterIndex]) {
	switch n.op {
	case LPB:
		live.Add(n.target)
		n.body.registers(live)
	case SEQ:
		// reads and writes the target
	case CLR:
		count, _ := n.source.Constant.Int64()
		for i := int64(0); i < count; i++ {
			live.Remove(n.target + RegisterIndex(i))
		}
	case MOV:
		live.Remove(n.target)
		if n.source.Type == ParameterRegister {
			live.Add(n.source.Register)
		}
	default:
		if n.source.Type == ParameterRegister {
			live.Add(n.source.Register)
		}
	}
}
