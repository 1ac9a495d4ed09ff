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
	"math/big"
)

// RegisterIndex identifies a register slot, written as $N in assembly.
type RegisterIndex uint32

func (r RegisterIndex) String() string {
	return fmt.Sprintf("$%d", uint32(r))
}

// RegisterValue is an immutable arbitrary-precision signed integer. The zero
// value represents 0. Operations never modify their operands; every result is
// a freshly allocated value.
type RegisterValue struct {
	v *big.Int
}

// NewRegisterValue creates a RegisterValue from an int64.
func NewRegisterValue(x int64) RegisterValue {
	if x == 0 {
		return RegisterValue{}
	}
	return RegisterValue{v: big.NewInt(x)}
}

// RegisterValueFromBig creates a RegisterValue holding a copy of b.
func RegisterValueFromBig(b *big.Int) RegisterValue {
	if b == nil || b.Sign() == 0 {
		return RegisterValue{}
	}
	return RegisterValue{v: new(big.Int).Set(b)}
}

// ParseRegisterValue parses a signed decimal integer.
func ParseRegisterValue(s string) (RegisterValue, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return RegisterValue{}, fmt.Errorf("invalid integer %q", s)
	}
	return wrap(b), nil
}

// wrap takes ownership of b without copying.
func wrap(b *big.Int) RegisterValue {
	if b.Sign() == 0 {
		return RegisterValue{}
	}
	return RegisterValue{v: b}
}

// Big returns a copy of the value as a big.Int.
func (r RegisterValue) Big() *big.Int {
	if r.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.v)
}

// big returns the underlying integer for read-only use.
func (r RegisterValue) big() *big.Int {
	if r.v == nil {
		return zero
	}
	return r.v
}

var zero = new(big.Int)

func (r RegisterValue) Sign() int {
	if r.v == nil {
		return 0
	}
	return r.v.Sign()
}

func (r RegisterValue) IsZero() bool { return r.Sign() == 0 }

// BitLen returns the bit length of the absolute value.
func (r RegisterValue) BitLen() int {
	if r.v == nil {
		return 0
	}
	return r.v.BitLen()
}

// Cmp compares r and o and returns -1, 0 or +1.
func (r RegisterValue) Cmp(o RegisterValue) int {
	return r.big().Cmp(o.big())
}

func (r RegisterValue) Equal(o RegisterValue) bool { return r.Cmp(o) == 0 }

// Int64 returns the value as an int64 and whether it fits.
func (r RegisterValue) Int64() (int64, bool) {
	if r.v == nil {
		return 0, true
	}
	if !r.v.IsInt64() {
		return 0, false
	}
	return r.v.Int64(), true
}

func (r RegisterValue) String() string {
	return r.big().String()
}

// RegisterValuesFromInt64 is a convenience constructor for term vectors.
func RegisterValuesFromInt64(xs ...int64) []RegisterValue {
	out := make([]RegisterValue, len(xs))
	for i, x := range xs {
		out[i] = NewRegisterValue(x)
	}
	return out
}
