package bigint

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import "github.com/prinbee/prinbee/pkg/perrors"

// I512 is a signed 512-bit integer in two's complement, eight
// little-endian 64-bit limbs; the top bit of the high limb is the sign.
type I512 struct {
	Limbs [8]uint64
}

const signBit = uint64(1) << 63

// MinI512 is the most negative representable value: -2^511. Its
// negation is not representable, which is why division and BitLen
// special-case it explicitly.
var MinI512 = I512{Limbs: [8]uint64{0, 0, 0, 0, 0, 0, 0, signBit}}

// MaxI512 is the largest representable value: 2^511 - 1.
var MaxI512 = I512{Limbs: [8]uint64{
	^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0),
	^uint64(0), ^uint64(0), ^uint64(0), signBit - 1,
}}

// ZeroI is the additive identity.
var ZeroI = I512{}

// NewI512FromInt64 widens an int64 into an I512, sign-extending.
func NewI512FromInt64(v int64) I512 {
	var l limbs
	l[0] = uint64(v)
	if v < 0 {
		for i := 1; i < limbCount; i++ {
			l[i] = ^uint64(0)
		}
	}
	return I512{Limbs: l}
}

// IsNegative reports whether the top bit (sign bit) is set.
func (a I512) IsNegative() bool {
	return a.Limbs[limbCount-1]&signBit != 0
}

// IsZero reports whether the value is zero.
func (a I512) IsZero() bool {
	return isZeroLimbs(a.Limbs)
}

// isMin reports whether a is exactly MinI512, the one value whose
// negation overflows.
func (a I512) isMin() bool {
	return a.Limbs == MinI512.Limbs
}

// Neg returns -a. Two's complement negation of MinI512 wraps back to
// itself; callers that must reject this (division) check isMin first.
func (a I512) Neg() I512 {
	return I512{Limbs: negLimbs(a.Limbs)}
}

// Abs returns the absolute value. It is not representable for
// MinI512; callers needing that guarantee should check isMin first
// and report InvalidNumber, as QuoRem does.
func (a I512) Abs() I512 {
	if a.IsNegative() {
		return a.Neg()
	}
	return a
}

// Add returns a+b mod 2^512, wrapping on overflow. Two's complement
// addition is identical to unsigned addition at the bit level.
func (a I512) Add(b I512) I512 {
	return I512{Limbs: addLimbs(a.Limbs, b.Limbs)}
}

// Sub returns a-b mod 2^512, wrapping on overflow.
func (a I512) Sub(b I512) I512 {
	return I512{Limbs: subLimbs(a.Limbs, b.Limbs)}
}

// Mul returns a*b mod 2^512. Two's complement multiplication modulo
// 2^512 is bit-identical to unsigned multiplication, so it reuses the
// same shift-and-add routine.
func (a I512) Mul(b I512) I512 {
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
	return I512{Limbs: result}
}

// QuoRem returns the truncating quotient and remainder of a/b: the
// remainder takes the dividend's sign and |a%b| < |b|. Division by
// zero fails with LogicError; dividing when either operand is exactly
// MinI512 fails with InvalidNumber because -MinI512 can't be formed.
func (a I512) QuoRem(b I512) (q, r I512, err error) {
	if b.IsZero() {
		return I512{}, I512{}, perrors.New(perrors.LogicError, "division by zero")
	}
	if a.isMin() || b.isMin() {
		return I512{}, I512{}, perrors.New(perrors.InvalidNumber, "MIN operand has no representable negation")
	}

	negResult := a.IsNegative() != b.IsNegative()
	negRem := a.IsNegative()

	absA := a.Abs()
	absB := b.Abs()

	ql, rl, derr := quoRemUnsignedLimbs(absA.Limbs, absB.Limbs)
	if derr != nil {
		return I512{}, I512{}, derr
	}

	q = I512{Limbs: ql}
	r = I512{Limbs: rl}
	if negResult {
		q = q.Neg()
	}
	if negRem {
		r = r.Neg()
	}
	return q, r, nil
}

// DivRoundedUp returns the quotient rounded toward positive infinity.
// A zero divisor fails explicitly with OutOfRange rather than
// following the original implementation's undefined behavior.
func (a I512) DivRoundedUp(b I512) (I512, error) {
	if b.IsZero() {
		return I512{}, perrors.New(perrors.OutOfRange, "divide_rounded_up by zero")
	}
	q, r, err := a.QuoRem(b)
	if err != nil {
		return I512{}, err
	}
	if r.IsZero() {
		return q, nil
	}
	// Round toward +inf: bump by one when the exact quotient's sign is
	// positive (truncation already rounded down) - i.e. when a and b
	// have the same sign.
	if a.IsNegative() == b.IsNegative() {
		q = q.Add(NewI512FromInt64(1))
	}
	return q, nil
}

// Shl shifts left by n bits; n >= 512 zeroes the value.
func (a I512) Shl(n uint) I512 {
	return I512{Limbs: shlLimbs(a.Limbs, n)}
}

// Asr is an arithmetic (sign-extending) right shift. A shift count
// >= 512 collapses to zero for a non-negative value or -1 for a
// negative one.
func (a I512) Asr(n uint) I512 {
	if n >= bits {
		if a.IsNegative() {
			return I512{Limbs: notLimbs(limbs{})}
		}
		return I512{}
	}
	shifted := shrLogicalLimbs(a.Limbs, n)
	if !a.IsNegative() {
		return I512{Limbs: shifted}
	}
	// sign-extend the top n bits
	mask := notLimbs(shrLogicalLimbs(notLimbs(limbs{}), n))
	return I512{Limbs: orLimbs(shifted, mask)}
}

// ShlChecked validates n before shifting; a negative count fails with OutOfRange.
func (a I512) ShlChecked(n int) (I512, error) {
	if n < 0 {
		return I512{}, perrors.New(perrors.OutOfRange, "negative shift count %d", n)
	}
	return a.Shl(uint(n)), nil
}

// AsrChecked validates n before shifting.
func (a I512) AsrChecked(n int) (I512, error) {
	if n < 0 {
		return I512{}, perrors.New(perrors.OutOfRange, "negative shift count %d", n)
	}
	return a.Asr(uint(n)), nil
}

// And, Or, Xor, Not are the usual bitwise operators. Xor is a genuine
// exclusive-or: the original C++ operator^ delegated to operator|= (an
// OR), which the spec calls out as a bug that this rewrite corrects.
func (a I512) And(b I512) I512 { return I512{Limbs: andLimbs(a.Limbs, b.Limbs)} }
func (a I512) Or(b I512) I512  { return I512{Limbs: orLimbs(a.Limbs, b.Limbs)} }
func (a I512) Xor(b I512) I512 { return I512{Limbs: xorLimbs(a.Limbs, b.Limbs)} }
func (a I512) Not() I512       { return I512{Limbs: notLimbs(a.Limbs)} }

// Cmp implements a total order over two's complement values by
// flipping the sign bit of both operands and comparing as unsigned
// magnitudes - the standard trick for ordering two's complement words.
func (a I512) Cmp(b I512) int {
	fa := a.Limbs
	fb := b.Limbs
	fa[limbCount-1] ^= signBit
	fb[limbCount-1] ^= signBit
	return cmpUnsignedLimbs(fa, fb)
}

// BitLen returns 0 for zero, otherwise 1+bit position of the highest
// set bit of the absolute value; MinI512 special-cases to 512 since
// its magnitude (2^511) doesn't fit the "highest set bit" formula
// after negation would otherwise require.
func (a I512) BitLen() int {
	if a.IsZero() {
		return 0
	}
	if a.isMin() {
		return 512
	}
	return bitLenLimbs(a.Abs().Limbs)
}

// Int64 returns the low 64 bits reinterpreted as a signed value,
// discarding anything above them.
func (a I512) Int64() int64 {
	return int64(a.Limbs[0])
}
