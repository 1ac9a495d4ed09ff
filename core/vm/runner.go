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

import "errors"

// ErrInputsExhausted is returned when a term stream with a fixed input list
// is asked for more terms than it has inputs.
var ErrInputsExhausted = errors.New("term stream: inputs exhausted")

// ProgramRunner evaluates a compiled program with fixed limits. A runner owns
// its cache and is not safe for concurrent use; every worker creates its own.
type ProgramRunner struct {
	program *Program
	config  Config
	cache   *ProgramCache
}

// NewProgramRunner creates a runner with a fresh cache sized by the config.
func NewProgramRunner(program *Program, config Config) *ProgramRunner {
	config = config.sanitize()
	return &ProgramRunner{
		program: program,
		config:  config,
		cache:   NewProgramCache(config.CacheCapacity),
	}
}

func (r *ProgramRunner) Program() *Program { return r.program }

// Run puts input in $0, runs the program and returns $0.
func (r *ProgramRunner) Run(input RegisterValue) (RegisterValue, error) {
	return r.program.Run(input, r.config, r.cache)
}

// Terms returns a lazy term stream for the inputs 0, 1, 2, ...
func (r *ProgramRunner) Terms() *TermStream {
	r.cache.Reset()
	return &TermStream{runner: r}
}

// TermsWithInputs returns a lazy term stream over a fixed list of inputs.
func (r *ProgramRunner) TermsWithInputs(inputs []RegisterValue) *TermStream {
	r.cache.Reset()
	return &TermStream{runner: r, inputs: inputs, fixed: true}
}

// TermStream computes the terms of a program on demand so that callers can
// stop at the first mismatching term. The first evaluation fault is sticky.
type TermStream struct {
	runner *ProgramRunner
	inputs []RegisterValue
	fixed  bool
	terms  []RegisterValue
	err    error
}

// Extend evaluates terms until at least count are available.
func (s *TermStream) Extend(count int) error {
	for s.err == nil && len(s.terms) < count {
		n := len(s.terms)
		var input RegisterValue
		if s.fixed {
			if n >= len(s.inputs) {
				s.err = ErrInputsExhausted
				break
			}
			input = s.inputs[n]
		} else {
			input = NewRegisterValue(int64(n))
		}
		term, err := s.runner.Run(input)
		if err != nil {
			s.err = err
			break
		}
		s.terms = append(s.terms, term)
	}
	return s.err
}

// Terms returns the terms computed so far. The slice must not be modified.
func (s *TermStream) Terms() []RegisterValue { return s.terms }

// Len returns the number of terms computed so far.
func (s *TermStream) Len() int { return len(s.terms) }

// Err returns the fault that stopped the stream, if any.
func (s *TermStream) Err() error { return s.err }

// ComputeTerms evaluates the first count terms of program.
func ComputeTerms(program *Program, count int, config Config) ([]RegisterValue, error) {
	stream := NewProgramRunner(program, config).Terms()
	if err := stream.Extend(count); err != nil {
		return stream.Terms(), err
	}
	return stream.Terms(), nil
}
