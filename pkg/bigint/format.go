package bigint

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"strings"

	"github.com/prinbee/prinbee/pkg/perrors"
)

const digitAlphabetUpper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const digitAlphabetLower = "0123456789abcdefghijklmnopqrstuvwxyz"

// Text renders the unsigned magnitude in the given base (2..36) with
// no introducer, lower-case digits above 9.
func (a U512) Text(base int) (string, error) {
	if base < 2 || base > 36 {
		return "", perrors.New(perrors.OutOfRange, "base %d out of range 2..36", base)
	}
	if a.IsZero() {
		return "0", nil
	}

	b := NewU512FromUint64(uint64(base))
	var digits []byte
	v := a
	for !v.IsZero() {
		q, r, _ := v.QuoRem(b)
		digits = append(digits, digitAlphabetLower[r.Uint64()])
		v = q
	}
	reverse(digits)
	return string(digits), nil
}

// Format renders the unsigned magnitude with an optional base
// introducer (0b, 0, 0x) and a choice of digit case.
func (a U512) Format(base int, introducer bool, upper bool) (string, error) {
	s, err := a.Text(base)
	if err != nil {
		return "", err
	}
	if upper {
		s = strings.ToUpper(s)
	}
	if !introducer {
		return s, nil
	}
	switch base {
	case 2:
		return "0b" + s, nil
	case 8:
		return "0" + s, nil
	case 16:
		return "0x" + s, nil
	default:
		return s, nil
	}
}

// String renders in base 10, satisfying fmt.Stringer.
func (a U512) String() string {
	s, _ := a.Text(10)
	return s
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// ParseU512 parses an unsigned integer literal. If base is 0, the
// base is detected from a prefix: 0b/0B, 0o/0O, 0x/0X, the quoted
// forms B'...', O'...', X'...', a bare leading "0" (octal), or decimal
// otherwise. With an explicit base no introducer is recognized: s must
// be plain digits in that base, 2..36.
func ParseU512(s string, base int) (U512, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return U512{}, perrors.New(perrors.InvalidNumber, "empty numeric literal")
	}

	if base == 0 {
		if detected, digits, ok := detectIntroducer(s); ok {
			base = detected
			s = digits
		} else {
			base = 10
		}
	}

	if base < 2 || base > 36 {
		return U512{}, perrors.New(perrors.OutOfRange, "base %d out of range 2..36", base)
	}
	if s == "" {
		return U512{}, perrors.New(perrors.InvalidNumber, "no digits after base introducer")
	}

	result := U512{}
	b := NewU512FromUint64(uint64(base))
	for i := 0; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok || d >= base {
			return U512{}, perrors.New(perrors.InvalidToken, "invalid digit %q for base %d", s[i], base)
		}
		result = result.Mul(b).Add(NewU512FromUint64(uint64(d)))
	}
	return result, nil
}

// detectIntroducer strips a recognized base introducer from s and
// reports the base the remaining digits are in.
func detectIntroducer(s string) (base int, digits string, ok bool) {
	switch {
	case len(s) >= 2 && (s[:2] == "0b" || s[:2] == "0B"):
		return 2, s[2:], true
	case len(s) >= 2 && (s[:2] == "0o" || s[:2] == "0O"):
		return 8, s[2:], true
	case len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X"):
		return 16, s[2:], true
	case len(s) >= 3 && (s[0] == 'B' || s[0] == 'b') && s[1] == '\'' && s[len(s)-1] == '\'':
		return 2, s[2 : len(s)-1], true
	case len(s) >= 3 && (s[0] == 'O' || s[0] == 'o') && s[1] == '\'' && s[len(s)-1] == '\'':
		return 8, s[2 : len(s)-1], true
	case len(s) >= 3 && (s[0] == 'X' || s[0] == 'x') && s[1] == '\'' && s[len(s)-1] == '\'':
		return 16, s[2 : len(s)-1], true
	case len(s) >= 2 && s[0] == '0' && s[1] >= '0' && s[1] <= '7':
		return 8, s[1:], true
	default:
		return 0, s, false
	}
}

func digitValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// DecodeEscapedString decodes a C-escaped string literal introduced by
// E'...' (the quotes already stripped by the caller): backslash
// escapes \n \t \r \\ \' \" \0 and \xHH hex bytes.
func DecodeEscapedString(s string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", perrors.New(perrors.InvalidToken, "trailing backslash in escaped literal")
		}
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '\\':
			out.WriteByte('\\')
		case '\'':
			out.WriteByte('\'')
		case '"':
			out.WriteByte('"')
		case '0':
			out.WriteByte(0)
		case 'x':
			if i+2 >= len(s) {
				return "", perrors.New(perrors.InvalidToken, "truncated \\x escape")
			}
			hi, ok1 := digitValue(s[i+1])
			lo, ok2 := digitValue(s[i+2])
			if !ok1 || !ok2 || hi > 15 || lo > 15 {
				return "", perrors.New(perrors.InvalidToken, "invalid \\x escape")
			}
			out.WriteByte(byte(hi<<4 | lo))
			i += 2
		default:
			return "", perrors.New(perrors.InvalidToken, "unknown escape \\%c", s[i])
		}
	}
	return out.String(), nil
}

// --- signed ---

// Text renders the signed value in base 2, 8, 10, or 16, with a
// leading '-' for negative values.
func (a I512) Text(base int) (string, error) {
	switch base {
	case 2, 8, 10, 16:
	default:
		return "", perrors.New(perrors.OutOfRange, "signed base %d must be one of 2, 8, 10, 16", base)
	}

	if a.IsZero() {
		return "0", nil
	}

	neg := a.IsNegative()
	var mag U512
	if neg {
		if a.isMin() {
			// 2^511 magnitude: build directly, it has no I512 negation.
			mag = U512{Limbs: MinI512.Limbs}
		} else {
			mag = U512{Limbs: a.Neg().Limbs}
		}
	} else {
		mag = U512{Limbs: a.Limbs}
	}

	s, err := mag.Text(base)
	if err != nil {
		return "", err
	}
	if neg {
		return "-" + s, nil
	}
	return s, nil
}

// Format renders the signed value with an optional base introducer
// applied after the sign.
func (a I512) Format(base int, introducer bool, upper bool) (string, error) {
	neg := a.IsNegative()
	abs := a
	if neg {
		abs = a.Neg()
		if a.isMin() {
			abs = I512{Limbs: MinI512.Limbs}
		}
	}
	s, err := U512{Limbs: abs.Limbs}.Format(base, introducer, upper)
	if err != nil {
		return "", err
	}
	if neg {
		return "-" + s, nil
	}
	return s, nil
}

// String renders in base 10, satisfying fmt.Stringer.
func (a I512) String() string {
	s, _ := a.Text(10)
	return s
}

// ParseI512 parses a signed integer literal, accepting an optional
// leading '-' before the same introducer grammar ParseU512 supports.
func ParseI512(s string, base int) (I512, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	u, err := ParseU512(s, base)
	if err != nil {
		return I512{}, err
	}
	if u.BitLen() > 511 {
		return I512{}, perrors.New(perrors.OutOfRange, "literal does not fit in a signed 512-bit integer")
	}
	v := I512{Limbs: u.Limbs}
	if neg {
		v = v.Neg()
	}
	return v, nil
}
