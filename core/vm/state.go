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

// Config are the configuration options for program evaluation.
type Config struct {
	OperandBitLimit int    // Operands with a bit length at or above this limit are rejected
	StepLimit       uint64 // Maximum number of node evaluations per top-level run
	MaxCallDepth    int    // Maximum nesting of seq calls
	MaxRegisters    int    // Number of addressable registers
	CacheCapacity   int    // Number of entries held by a ProgramCache
}

// DefaultConfig contains the default evaluation limits.
var DefaultConfig = Config{
	OperandBitLimit: 32,
	StepLimit:       100000,
	MaxCallDepth:    16,
	MaxRegisters:    64,
	CacheCapacity:   3000,
}

// sanitize fills zero fields with defaults.
func (c Config) sanitize() Config {
	if c.OperandBitLimit <= 0 {
		c.OperandBitLimit = DefaultConfig.OperandBitLimit
	}
	if c.StepLimit == 0 {
		c.StepLimit = DefaultConfig.StepLimit
	}
	if c.MaxCallDepth <= 0 {
		c.MaxCallDepth = DefaultConfig.MaxCallDepth
	}
	if c.MaxRegisters <= 0 {
		c.MaxRegisters = DefaultConfig.MaxRegisters
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultConfig.CacheCapacity
	}
	return c
}

// ProgramState owns the register file of one evaluation and counts the steps
// taken. It is not safe for concurrent use.
type ProgramState struct {
	registers []RegisterValue
	steps     uint64
	depth     int
	config    Config
}

// NewProgramState returns an empty state using the given limits.
func NewProgramState(config Config) *ProgramState {
	config = config.sanitize()
	return &ProgramState{
		registers: make([]RegisterValue, config.MaxRegisters),
		config:    config,
	}
}

// Get returns the value of a register. Unwritten registers read as 0.
func (s *ProgramState) Get(r RegisterIndex) RegisterValue {
	if int(r) >= len(s.registers) {
		return RegisterValue{}
	}
	return s.registers[r]
}

// Set writes a register.
func (s *ProgramState) Set(r RegisterIndex, v RegisterValue) error {
	if int(r) >= len(s.registers) {
		return ErrRegisterOutOfRange
	}
	s.registers[r] = v
	return nil
}

// Steps returns the number of nodes evaluated so far.
func (s *ProgramState) Steps() uint64 { return s.steps }

// step accounts for one node evaluation against the step budget.
func (s *ProgramState) step() error {
	s.steps++
	if s.steps > s.config.StepLimit {
		return ErrStepLimitExceeded
	}
	return nil
}

// snapshot copies the register file. Values are immutable so a shallow copy
// is sufficient.
func (s *ProgramState) snapshot() []RegisterValue {
	cpy := make([]RegisterValue, len(s.registers))
	copy(cpy, s.registers)
	return cpy
}

func (s *ProgramState) restore(registers []RegisterValue) {
	copy(s.registers, registers)
}

// child creates the state used by a called program. It shares the step budget
// of the caller through the returned state's counter, which the caller adds
// back after the call.
func (s *ProgramState) child() *ProgramState {
	c := NewProgramState(s.config)
	c.depth = s.depth + 1
	c.steps = s.steps
	return c
}
