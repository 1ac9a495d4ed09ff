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
	"errors"
	"fmt"
)

// List evaluation errors. All of them are local to one program evaluation and
// mean "this candidate failed"; none of them should be propagated further.
var (
	ErrAddOutOfRange         = errors.New("add: operand out of range")
	ErrSubtractOutOfRange    = errors.New("subtract: operand out of range")
	ErrMultiplyOutOfRange    = errors.New("multiply: operand out of range")
	ErrDivideOutOfRange      = errors.New("divide: operand out of range")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrModuloOutOfRange      = errors.New("modulo: operand out of range")
	ErrPowerOutOfRange       = errors.New("power: operand out of range")
	ErrPowerExponentNegative = errors.New("power: negative exponent")
	ErrGcdOutOfRange         = errors.New("gcd: operand out of range")
	ErrLoopCounterOutOfRange = errors.New("loop: counter out of range")
	ErrClearOutOfRange       = errors.New("clear: range out of bounds")
	ErrCallInputNegative     = errors.New("call: negative input")
	ErrCallDepthExceeded     = errors.New("call: max depth exceeded")
	ErrStepLimitExceeded     = errors.New("step limit exceeded")
	ErrRegisterOutOfRange    = errors.New("register index out of range")
)

// List compile errors.
var (
	ErrUnbalancedLoop      = errors.New("unbalanced loop")
	ErrMissingLoader       = errors.New("program calls another program but no loader is available")
	ErrCyclicDependency    = errors.New("cyclic program dependency")
	ErrUnknownInstruction  = errors.New("unknown instruction")
	ErrInvalidParameters   = errors.New("invalid instruction parameters")
	ErrProgramNotAvailable = errors.New("program not available")
)

// IsEvalError reports whether err is one of the evaluation faults above. Compile
// and loader errors are not evaluation faults.
func IsEvalError(err error) bool {
	for _, e := range evalErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

var evalErrors = []error{
	ErrAddOutOfRange, ErrSubtractOutOfRange, ErrMultiplyOutOfRange, ErrDivideOutOfRange,
	ErrDivisionByZero, ErrModuloOutOfRange, ErrPowerOutOfRange, ErrPowerExponentNegative,
	ErrGcdOutOfRange, ErrLoopCounterOutOfRange, ErrClearOutOfRange, ErrCallInputNegative,
	ErrCallDepthExceeded, ErrStepLimitExceeded, ErrRegisterOutOfRange,
}

// ParseError is returned by the assembly parser and carries the offending line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
