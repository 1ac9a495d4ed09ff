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

import "fmt"

// InstructionID is the mnemonic of an instruction.
type InstructionID byte

const (
	MOV InstructionID = iota + 1
	ADD
	SUB
	TRN
	MUL
	DIV
	DIF
	MOD
	POW
	GCD
	CMP
	MIN
	MAX
	LPB
	LPE
	SEQ
	CLR

	instructionCount = iota + 1
)

var instructionToString = [...]string{
	MOV: "mov",
	ADD: "add",
	SUB: "sub",
	TRN: "trn",
	MUL: "mul",
	DIV: "div",
	DIF: "dif",
	MOD: "mod",
	POW: "pow",
	GCD: "gcd",
	CMP: "cmp",
	MIN: "min",
	MAX: "max",
	LPB: "lpb",
	LPE: "lpe",
	SEQ: "seq",
	CLR: "clr",
}

var stringToInstruction = make(map[string]InstructionID, instructionCount)

func init() {
	for id := InstructionID(1); id < instructionCount; id++ {
		name := instructionToString[id]
		if name == "" {
			panic(fmt.Sprintf("instruction %d has no mnemonic", id))
		}
		stringToInstruction[name] = id
	}
}

func (id InstructionID) String() string {
	if id == 0 || int(id) >= len(instructionToString) {
		return fmt.Sprintf("instruction(%d)", byte(id))
	}
	return instructionToString[id]
}

// InstructionIDFromString looks up an instruction by mnemonic.
func InstructionIDFromString(name string) (InstructionID, bool) {
	id, ok := stringToInstruction[name]
	return id, ok
}

// IsArithmetic reports whether the instruction is a two operand arithmetic
// or comparison instruction handled by the arithmetic table.
func (id InstructionID) IsArithmetic() bool {
	_, ok := arithmeticTable[id]
	return ok
}

// Arithmetic returns all instructions that take a target register and a
// register or constant source, in a stable order. Mutation uses it to pick
// replacement instructions.
func Arithmetic() []InstructionID {
	return []InstructionID{MOV, ADD, SUB, TRN, MUL, DIV, DIF, MOD, POW, GCD, CMP, MIN, MAX}
}

// ParameterType tells whether an operand is a register or a constant.
type ParameterType byte

const (
	ParameterNone ParameterType = iota
	ParameterConstant
	ParameterRegister
)
