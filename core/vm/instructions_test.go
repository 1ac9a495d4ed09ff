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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDivide(t *testing.T) {
	tests := []struct {
		x, y   int64
		expect int64
		err    error
	}{
		{50, 10, 5, nil},
		{9, 2, 4, nil},
		{-9, 2, -4, nil},
		{9, -2, -4, nil},
		{-10, 2, -5, nil},
		{-1, -1, 1, nil},
		{3, -3, -1, nil},
		{0, 7, 0, nil},
		{0x7fffffff, 1, 0x7fffffff, nil},
		{-0x7fffffff, -0x7fffffff, 1, nil},
		{1, 0, 0, ErrDivisionByZero},
		{-0x7fffffff, 0, 0, ErrDivisionByZero},
		{0x80000000, 1, 0, ErrDivideOutOfRange},
		{-0x80000000, 1, 0, ErrDivideOutOfRange},
		{1, 0x80000000, 0, ErrDivideOutOfRange},
		{1, -0x80000001, 0, ErrDivideOutOfRange},
		{0x80000000, 0, 0, ErrDivideOutOfRange},
	}
	for _, test := range tests {
		result, err := opDiv(32, NewRegisterValue(test.x), NewRegisterValue(test.y))
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, "%d/%d", test.x, test.y)
			continue
		}
		require.NoError(t, err, "%d/%d", test.x, test.y)
		assert.Equal(t, NewRegisterValue(test.expect).String(), result.String(), "%d/%d", test.x, test.y)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op     InstructionID
		x, y   int64
		expect int64
		err    error
	}{
		{ADD, 2, 3, 5, nil},
		{ADD, 0x80000000, 1, 0, ErrAddOutOfRange},
		{SUB, 2, 3, -1, nil},
		{TRN, 2, 3, 0, nil},
		{TRN, 5, 3, 2, nil},
		{MUL, -4, 3, -12, nil},
		{MUL, 1, 0x100000000, 0, ErrMultiplyOutOfRange},
		{DIF, 12, 4, 3, nil},
		{DIF, 13, 4, 13, nil},
		{DIF, 13, 0, 13, nil},
		{MOD, 7, 3, 1, nil},
		{MOD, -7, 3, -1, nil},
		{MOD, 7, 0, 0, ErrDivisionByZero},
		{POW, 2, 10, 1024, nil},
		{POW, -2, 3, -8, nil},
		{POW, 7, 0, 1, nil},
		{POW, -1, 1001, -1, nil},
		{POW, -1, 1000, 1, nil},
		{POW, 0, 5, 0, nil},
		{POW, 2, 31, 0, ErrPowerOutOfRange},
		{POW, 2, -1, 0, ErrPowerExponentNegative},
		{GCD, 12, -18, 6, nil},
		{GCD, 0, 0, 0, nil},
		{CMP, 3, 3, 1, nil},
		{CMP, 3, 4, 0, nil},
		{MIN, 3, -4, -4, nil},
		{MAX, 3, -4, 3, nil},
		{MOV, 1, -9, -9, nil},
	}
	for _, test := range tests {
		fn := arithmeticTable[test.op]
		result, err := fn(32, NewRegisterValue(test.x), NewRegisterValue(test.y))
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, "%v %d,%d", test.op, test.x, test.y)
			continue
		}
		require.NoError(t, err, "%v %d,%d", test.op, test.x, test.y)
		assert.Equal(t, NewRegisterValue(test.expect).String(), result.String(), "%v %d,%d", test.op, test.x, test.y)
	}
}

func TestInstructionMnemonics(t *testing.T) {
	for id := InstructionID(1); id < instructionCount; id++ {
		parsed, ok := InstructionIDFromString(id.String())
		require.True(t, ok, id.String())
		assert.Equal(t, id, parsed)
	}
	_, ok := InstructionIDFromString("nop")
	assert.False(t, ok)
	assert.True(t, DIV.IsArithmetic())
	assert.False(t, LPB.IsArithmetic())
	assert.False(t, SEQ.IsArithmetic())
}

func TestIsEvalError(t *testing.T) {
	assert.True(t, IsEvalError(ErrDivisionByZero))
	assert.True(t, IsEvalError(ErrStepLimitExceeded))
	assert.False(t, IsEvalError(ErrUnbalancedLoop))
	assert.False(t, IsEvalError(nil))
}
