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
	"math/big"
)

// arithmeticFunc computes target op source. limit is the operand bit length
// ceiling; every implementation validates the operand domain before computing.
type arithmeticFunc func(limit int, x, y RegisterValue) (RegisterValue, error)

var arithmeticTable = map[InstructionID]arithmeticFunc{
	MOV: opMove,
	ADD: opAdd,
	SUB: opSub,
	TRN: opTrn,
	MUL: opMul,
	DIV: opDiv,
	DIF: opDif,
	MOD: opMod,
	POW: opPow,
	GCD: opGcd,
	CMP: opCmp,
	MIN: opMin,
	MAX: opMax,
}

func inRange(limit int, x, y RegisterValue) bool {
	return x.BitLen() < limit && y.BitLen() < limit
}

func opMove(limit int, x, y RegisterValue) (RegisterValue, error) {
	return y, nil
}

func opAdd(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrAddOutOfRange
	}
	return wrap(new(big.Int).Add(x.big(), y.big())), nil
}

func opSub(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrSubtractOutOfRange
	}
	return wrap(new(big.Int).Sub(x.big(), y.big())), nil
}

// opTrn is truncated subtraction, max(x-y, 0).
func opTrn(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrSubtractOutOfRange
	}
	z := new(big.Int).Sub(x.big(), y.big())
	if z.Sign() < 0 {
		return RegisterValue{}, nil
	}
	return wrap(z), nil
}

func opMul(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrMultiplyOutOfRange
	}
	return wrap(new(big.Int).Mul(x.big(), y.big())), nil
}

// opDiv divides rounding toward zero: -9/2 = -4 and 9/-2 = -4.
func opDiv(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrDivideOutOfRange
	}
	if y.IsZero() {
		return RegisterValue{}, ErrDivisionByZero
	}
	return wrap(new(big.Int).Quo(x.big(), y.big())), nil
}

// opDif divides only when the division is exact, otherwise x is unchanged.
// A zero divisor also leaves x unchanged.
func opDif(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrDivideOutOfRange
	}
	if y.IsZero() {
		return x, nil
	}
	q, r := new(big.Int).QuoRem(x.big(), y.big(), new(big.Int))
	if r.Sign() != 0 {
		return x, nil
	}
	return wrap(q), nil
}

// opMod is the remainder of truncated division, it has the sign of x.
func opMod(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrModuloOutOfRange
	}
	if y.IsZero() {
		return RegisterValue{}, ErrDivisionByZero
	}
	return wrap(new(big.Int).Rem(x.big(), y.big())), nil
}

func opPow(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrPowerOutOfRange
	}
	if y.Sign() < 0 {
		return RegisterValue{}, ErrPowerExponentNegative
	}
	base := x.big()
	// 0, 1 and -1 stay small for any exponent.
	if base.BitLen() <= 1 {
		if base.Sign() < 0 && y.big().Bit(0) == 0 {
			return NewRegisterValue(1), nil
		}
		if y.IsZero() {
			return NewRegisterValue(1), nil
		}
		return x, nil
	}
	exp, ok := y.Int64()
	if !ok {
		return RegisterValue{}, ErrPowerOutOfRange
	}
	// Reject results that cannot fit the ceiling before computing them.
	if int64(base.BitLen()-1)*exp >= int64(limit) {
		return RegisterValue{}, ErrPowerOutOfRange
	}
	z := new(big.Int).Exp(base, y.big(), nil)
	if z.BitLen() >= limit {
		return RegisterValue{}, ErrPowerOutOfRange
	}
	return wrap(z), nil
}

func opGcd(limit int, x, y RegisterValue) (RegisterValue, error) {
	if !inRange(limit, x, y) {
		return RegisterValue{}, ErrGcdOutOfRange
	}
	a := new(big.Int).Abs(x.big())
	b := new(big.Int).Abs(y.big())
	return wrap(new(big.Int).GCD(nil, nil, a, b)), nil
}

func opCmp(limit int, x, y RegisterValue) (RegisterValue, error) {
	if x.Cmp(y) == 0 {
		return NewRegisterValue(1), nil
	}
	return RegisterValue{}, nil
}

func opMin(limit int, x, y RegisterValue) (RegisterValue, error) {
	if x.Cmp(y) <= 0 {
		return x, nil
	}
	return y, nil
}

func opMax(limit int, x, y RegisterValue) (RegisterValue, error) {
	if x.Cmp(y) >= 0 {
		return x, nil
	}
	return y, nil
}
