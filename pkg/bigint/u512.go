package bigint

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import "github.com/prinbee/prinbee/pkg/perrors"

// U512 is an unsigned 512-bit integer, eight little-endian 64-bit
// limbs (Limbs[0] is least significant).
type U512 struct {
	Limbs [8]uint64
}

// Zero is the additive identity.
var Zero = U512{}

// One is the multiplicative identity.
var One = U512{Limbs: [8]uint64{1}}

// MaxU512 is the largest representable unsigned value.
var MaxU512 = U512{Limbs: [8]uint64{
	^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0),
	^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0),
}}

// NewU512FromUint64 widens a uint64 into a U512.
func NewU512FromUint64(v uint64) U512 {
	return U512{Limbs: [8]uint64{v}}
}

// Add returns a+b mod 2^512; overflow is silently truncated.
func (a U512) Add(b U512) U512 {
	return U512{Limbs: addLimbs(a.Limbs, b.Limbs)}
}

// Sub returns a-b mod 2^512; underflow wraps.
func (a U512) Sub(b U512) U512 {
	return U512{Limbs: subLimbs(a.Limbs, b.Limbs)}
}

// Mul returns a*b mod 2^512 by shift-and-add on the low bit of b,
// costing O(bits).
func (a U512) Mul(b U512) U512 {
	var result limbs
	acc := a.Limbs
	m := b.Limbs
	for i := 0; i < bits; i++ {
		if m[0]&1 != 0 {
			result = addLimbs(result, acc)
		}
		acc = shlLimbs(acc, 1)
		m = shrLogicalLimbs(m, 1)
	}
	return U512{Limbs: result}
}

// QuoRem returns a/b and a%b. Division by zero fails with LogicError.
func (a U512) QuoRem(b U512) (q, r U512, err error) {
	ql, rl, err := quoRemUnsignedLimbs(a.Limbs, b.Limbs)
	if err != nil {
		return U512{}, U512{}, err
	}
	return U512{Limbs: ql}, U512{Limbs: rl}, nil
}

// DivRoundedUp returns ceil(a/b). A zero divisor is undefined in the
// original implementation; this rewrite fails explicitly with
// OutOfRange instead of guessing intent.
func (a U512) DivRoundedUp(b U512) (U512, error) {
	if b.IsZero() {
		return U512{}, perrors.New(perrors.OutOfRange, "divide_rounded_up by zero")
	}
	q, r, err := a.QuoRem(b)
	if err != nil {
		return U512{}, err
	}
	if !r.IsZero() {
		q = q.Add(One)
	}
	return q, nil
}

// Shl shifts left by n bits; n >= 512 zeroes the value. Negative shift
// counts are not representable (n is unsigned) so callers that derive
// n from a signed count must check it themselves via ShlChecked.
func (a U512) Shl(n uint) U512 {
	return U512{Limbs: shlLimbs(a.Limbs, n)}
}

// Shr is a logical (zero-fill) right shift.
func (a U512) Shr(n uint) U512 {
	return U512{Limbs: shrLogicalLimbs(a.Limbs, n)}
}

// ShlChecked validates n before shifting; a negative count fails with
// OutOfRange, matching the contract for signed shift-count arguments
// coming from the query evaluator.
func (a U512) ShlChecked(n int) (U512, error) {
	if n < 0 {
		return U512{}, perrors.New(perrors.OutOfRange, "negative shift count %d", n)
	}
	return a.Shl(uint(n)), nil
}

// ShrChecked validates n before shifting.
func (a U512) ShrChecked(n int) (U512, error) {
	if n < 0 {
		return U512{}, perrors.New(perrors.OutOfRange, "negative shift count %d", n)
	}
	return a.Shr(uint(n)), nil
}

// And, Or, Xor, Not are the usual bitwise operators.
func (a U512) And(b U512) U512 { return U512{Limbs: andLimbs(a.Limbs, b.Limbs)} }
func (a U512) Or(b U512) U512  { return U512{Limbs: orLimbs(a.Limbs, b.Limbs)} }
func (a U512) Xor(b U512) U512 { return U512{Limbs: xorLimbs(a.Limbs, b.Limbs)} }
func (a U512) Not() U512       { return U512{Limbs: notLimbs(a.Limbs)} }

// Cmp implements a total order: -1, 0, 1 for a<b, a==b, a>b.
func (a U512) Cmp(b U512) int {
	return cmpUnsignedLimbs(a.Limbs, b.Limbs)
}

// IsZero reports whether the value is zero.
func (a U512) IsZero() bool {
	return isZeroLimbs(a.Limbs)
}

// BitLen returns 0 for zero, otherwise 1+position of the highest set bit.
func (a U512) BitLen() int {
	return bitLenLimbs(a.Limbs)
}

// Uint64 returns the low 64 bits, discarding anything above them.
func (a U512) Uint64() uint64 {
	return a.Limbs[0]
}
