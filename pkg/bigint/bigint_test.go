package bigint

import (
	"testing"

	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU512AddSubRoundTrip(t *testing.T) {
	a := NewU512FromUint64(123456789)
	b := NewU512FromUint64(987654321)
	assert.Equal(t, a, a.Add(b).Sub(b))
}

func TestI512AddSubRoundTrip(t *testing.T) {
	a := NewI512FromInt64(-123456789)
	b := NewI512FromInt64(987654321)
	assert.Equal(t, a, a.Add(b).Sub(b))
}

func TestU512DivModIdentity(t *testing.T) {
	a := NewU512FromUint64(1000003)
	b := NewU512FromUint64(17)
	q, r, err := a.QuoRem(b)
	require.NoError(t, err)
	assert.Equal(t, a, q.Mul(b).Add(r))
	assert.Equal(t, -1, r.Cmp(b))
}

func TestI512DivModIdentity(t *testing.T) {
	a := NewI512FromInt64(-1000003)
	b := NewI512FromInt64(17)
	q, r, err := a.QuoRem(b)
	require.NoError(t, err)
	assert.Equal(t, a, q.Mul(b).Add(r))
}

func TestU512DivisionByZero(t *testing.T) {
	_, _, err := One.QuoRem(Zero)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.LogicError))
}

func TestI512DivisionByZero(t *testing.T) {
	_, _, err := NewI512FromInt64(1).QuoRem(ZeroI)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.LogicError))
}

func TestI512MinDivisionIsInvalidNumber(t *testing.T) {
	_, _, err := MinI512.QuoRem(NewI512FromInt64(-1))
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.InvalidNumber))
}

// S1 — big-int division scenario from the storage core's testable
// properties: a = 2^300 - 1, b = 10.
func TestS1BigIntDivisionScenario(t *testing.T) {
	a := One.Shl(300).Sub(One)
	b := NewU512FromUint64(10)

	q, r, err := a.QuoRem(b)
	require.NoError(t, err)
	assert.Equal(t, 297, q.BitLen())
	assert.True(t, r.Cmp(NewU512FromUint64(10)) < 0)
	assert.Equal(t, a, q.Mul(b).Add(r))
}

func TestU512BaseConversionRoundTrip(t *testing.T) {
	for _, base := range []int{2, 8, 10, 16} {
		n, err := ParseU512("123456789012345", 10)
		require.NoError(t, err)
		s, err := n.Text(base)
		require.NoError(t, err)
		back, err := ParseU512(s, base)
		require.NoError(t, err)
		assert.Equal(t, n, back)
	}
}

func TestU512ParseIntroducers(t *testing.T) {
	v, err := ParseU512("0xFF", 0)
	require.NoError(t, err)
	assert.Equal(t, NewU512FromUint64(255), v)

	v, err = ParseU512("0b1010", 0)
	require.NoError(t, err)
	assert.Equal(t, NewU512FromUint64(10), v)

	v, err = ParseU512("X'1A'", 0)
	require.NoError(t, err)
	assert.Equal(t, NewU512FromUint64(26), v)

	v, err = ParseU512("B'101'", 0)
	require.NoError(t, err)
	assert.Equal(t, NewU512FromUint64(5), v)
}

func TestU512ShiftBoundaries(t *testing.T) {
	assert.True(t, One.Shl(511).BitLen() == 512)
	assert.True(t, One.Shl(512).IsZero())
	assert.True(t, MaxU512.Shr(512).IsZero())

	_, err := One.ShlChecked(-1)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))
}

func TestI512ArithmeticShiftSignExtends(t *testing.T) {
	neg := NewI512FromInt64(-8)
	shifted := neg.Asr(1)
	assert.Equal(t, NewI512FromInt64(-4), shifted)
	assert.True(t, neg.Asr(600).IsNegative())
}

func TestI512BitLenMinSpecialCase(t *testing.T) {
	assert.Equal(t, 512, MinI512.BitLen())
	assert.Equal(t, 0, ZeroI.BitLen())
}

func TestI512XorIsRealXor(t *testing.T) {
	a := NewI512FromInt64(0b1100)
	b := NewI512FromInt64(0b1010)
	assert.Equal(t, NewI512FromInt64(0b0110), a.Xor(b))
}

func TestU512DivRoundedUpByZeroFails(t *testing.T) {
	_, err := One.DivRoundedUp(Zero)
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))
}

func TestU512Cmp(t *testing.T) {
	a := NewU512FromUint64(5)
	b := NewU512FromUint64(10)
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
}

func TestI512Cmp(t *testing.T) {
	neg := NewI512FromInt64(-5)
	pos := NewI512FromInt64(5)
	assert.Equal(t, -1, neg.Cmp(pos))
	assert.Equal(t, 1, pos.Cmp(neg))
	assert.Equal(t, 0, neg.Cmp(neg))
}

func TestBytesRoundTrip(t *testing.T) {
	v := One.Shl(300).Sub(NewU512FromUint64(12345))
	back, err := U512FromBytes(v.Bytes())
	require.NoError(t, err)
	assert.Equal(t, v, back)

	i := NewI512FromInt64(-987654321)
	iback, err := I512FromBytes(i.Bytes())
	require.NoError(t, err)
	assert.Equal(t, i, iback)

	_, err = U512FromBytes([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.InvalidSize))
}

func TestDecodeEscapedString(t *testing.T) {
	s, err := DecodeEscapedString(`a\nb\tc\x41`)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tcA", s)
}
