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
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ParsedParameter is one operand as written in assembly.
type ParsedParameter struct {
	Type  ParameterType
	Value int64
}

func (p ParsedParameter) String() string {
	if p.Type == ParameterRegister {
		return fmt.Sprintf("$%d", p.Value)
	}
	return strconv.FormatInt(p.Value, 10)
}

// ParsedInstruction is one line of assembly.
type ParsedInstruction struct {
	ID         InstructionID
	Parameters []ParsedParameter
	Line       int
}

func (i ParsedInstruction) String() string {
	if len(i.Parameters) == 0 {
		return i.ID.String()
	}
	params := make([]string, len(i.Parameters))
	for j, p := range i.Parameters {
		params[j] = p.String()
	}
	return i.ID.String() + " " + strings.Join(params, ",")
}

// ParsedProgram is the flat, unresolved form of a program. Genomes are
// converted to this form before compiling.
type ParsedProgram struct {
	Instructions []ParsedInstruction
}

// ParseProgram parses LODA style assembly: one instruction per line,
// comments start with ';', registers are written $N.
func ParseProgram(text string) (*ParsedProgram, error) {
	var (
		program ParsedProgram
		scanner = bufio.NewScanner(strings.NewReader(text))
		line    int
	)
	for scanner.Scan() {
		line++
		s := scanner.Text()
		if i := strings.IndexByte(s, ';'); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		instruction, err := parseInstruction(s)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		instruction.Line = line
		program.Instructions = append(program.Instructions, instruction)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &program, nil
}

func parseInstruction(s string) (ParsedInstruction, error) {
	mnemonic, rest, _ := strings.Cut(s, " ")
	id, ok := InstructionIDFromString(mnemonic)
	if !ok {
		return ParsedInstruction{}, fmt.Errorf("%w: %q", ErrUnknownInstruction, mnemonic)
	}
	instruction := ParsedInstruction{ID: id}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, field := range strings.Split(rest, ",") {
			param, err := parseParameter(strings.TrimSpace(field))
			if err != nil {
				return ParsedInstruction{}, err
			}
			instruction.Parameters = append(instruction.Parameters, param)
		}
	}
	return instruction, nil
}

func parseParameter(s string) (ParsedParameter, error) {
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseInt(s[1:], 10, 64)
		if err != nil || v < 0 {
			return ParsedParameter{}, fmt.Errorf("%w: register %q", ErrInvalidParameters, s)
		}
		return ParsedParameter{Type: ParameterRegister, Value: v}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ParsedParameter{}, fmt.Errorf("%w: constant %q", ErrInvalidParameters, s)
	}
	return ParsedParameter{Type: ParameterConstant, Value: v}, nil
}

// String renders the program with loop bodies indented.
func (p *ParsedProgram) String() string {
	var (
		b     strings.Builder
		depth int
	)
	for _, instruction := range p.Instructions {
		if instruction.ID == LPE && depth > 0 {
			depth--
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(instruction.String())
		b.WriteByte('\n')
		if instruction.ID == LPB {
			depth++
		}
	}
	return b.String()
}

// DirectDependencies returns the program ids referenced by seq instructions.
func (p *ParsedProgram) DirectDependencies() []uint32 {
	var ids []uint32
	for _, instruction := range p.Instructions {
		if instruction.ID == SEQ && len(instruction.Parameters) == 2 && instruction.Parameters[1].Value >= 0 {
			ids = append(ids, uint32(instruction.Parameters[1].Value))
		}
	}
	return ids
}

// ProgramLoader resolves the programs referenced by seq instructions.
type ProgramLoader interface {
	LoadProgram(id uint32) (*Program, error)
}

// Compile turns a parsed program into an executable one. The loader may be
// nil if the program does not call other programs.
func (p *ParsedProgram) Compile(id uint32, maxRegisters int, loader ProgramLoader) (*Program, error) {
	if maxRegisters <= 0 {
		maxRegisters = DefaultConfig.MaxRegisters
	}
	c := &compiler{instructions: p.Instructions, maxRegisters: maxRegisters, loader: loader}
	nodes, err := c.block(false)
	if err != nil {
		return nil, err
	}
	return NewProgram(id, nodes), nil
}

type compiler struct {
	instructions []ParsedInstruction
	pos          int
	maxRegisters int
	loader       ProgramLoader
}

func (c *compiler) block(inLoop bool) ([]*Node, error) {
	var nodes []*Node
	for c.pos < len(c.instructions) {
		instruction := c.instructions[c.pos]
		c.pos++
		fail := func(err error) error {
			return &ParseError{Line: instruction.Line, Err: err}
		}
		switch instruction.ID {
		case LPE:
			if !inLoop {
				return nil, fail(ErrUnbalancedLoop)
			}
			return nodes, nil
		case LPB:
			counter, err := c.register(instruction, 0)
			if err != nil {
				return nil, fail(err)
			}
			// Only unit ranges are supported.
			if n := len(instruction.Parameters); n > 2 || (n == 2 && !isUnitRange(instruction.Parameters[1])) {
				return nil, fail(ErrInvalidParameters)
			}
			body, err := c.block(true)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, NewLoopNode(counter, NewProgram(0, body)))
		case SEQ:
			target, err := c.binary(instruction)
			if err != nil {
				return nil, fail(err)
			}
			param := instruction.Parameters[1]
			if param.Type != ParameterConstant || param.Value < 0 || param.Value > int64(^uint32(0)) {
				return nil, fail(ErrInvalidParameters)
			}
			if c.loader == nil {
				return nil, fail(ErrMissingLoader)
			}
			callee, err := c.loader.LoadProgram(uint32(param.Value))
			if err != nil {
				return nil, fail(err)
			}
			nodes = append(nodes, NewCallNode(target, callee))
		case CLR:
			target, err := c.binary(instruction)
			if err != nil {
				return nil, fail(err)
			}
			param := instruction.Parameters[1]
			if param.Type != ParameterConstant || param.Value < 0 || int64(target)+param.Value > int64(c.maxRegisters) {
				return nil, fail(ErrInvalidParameters)
			}
			nodes = append(nodes, NewClearNode(target, param.Value))
		default:
			target, err := c.binary(instruction)
			if err != nil {
				return nil, fail(err)
			}
			param := instruction.Parameters[1]
			var source Operand
			if param.Type == ParameterRegister {
				if param.Value >= int64(c.maxRegisters) {
					return nil, fail(ErrRegisterOutOfRange)
				}
				source = RegisterOperand(RegisterIndex(param.Value))
			} else {
				source = ConstantOperand(param.Value)
			}
			node, err := NewArithmeticNode(instruction.ID, target, source)
			if err != nil {
				return nil, fail(err)
			}
			nodes = append(nodes, node)
		}
	}
	if inLoop {
		return nil, ErrUnbalancedLoop
	}
	return nodes, nil
}

func (c *compiler) binary(instruction ParsedInstruction) (RegisterIndex, error) {
	if len(instruction.Parameters) != 2 {
		return 0, fmt.Errorf("%w: %v expects 2 parameters", ErrInvalidParameters, instruction.ID)
	}
	return c.register(instruction, 0)
}

func (c *compiler) register(instruction ParsedInstruction, i int) (RegisterIndex, error) {
	if len(instruction.Parameters) <= i {
		return 0, fmt.Errorf("%w: %v expects a register", ErrInvalidParameters, instruction.ID)
	}
	param := instruction.Parameters[i]
	if param.Type != ParameterRegister {
		return 0, fmt.Errorf("%w: %v expects a register", ErrInvalidParameters, instruction.ID)
	}
	if param.Value >= int64(c.maxRegisters) {
		return 0, ErrRegisterOutOfRange
	}
	return RegisterIndex(param.Value), nil
}

// CompileText parses and compiles assembly in one step.
func CompileText(id uint32, text string, maxRegisters int, loader ProgramLoader) (*Program, error) {
	parsed, err := ParseProgram(text)
	if err != nil {
		return nil, err
	}
	return parsed.Compile(id, maxRegisters, loader)
}

func isUnitRange(param ParsedParameter) bool {
	return param.Type == ParameterConstant && param.Value == 1
}
