package bigint

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// ByteLen is the fixed encoded size of both integer types: eight
// little-endian limbs of eight bytes each.
const ByteLen = limbCount * 8

// Bytes returns the 64-byte little-endian encoding used for on-disk
// column values and primary-key parts.
func (a U512) Bytes() []byte {
	out := make([]byte, ByteLen)
	for i, l := range a.Limbs {
		binary.LittleEndian.PutUint64(out[i*8:], l)
	}
	return out
}

// U512FromBytes decodes the 64-byte little-endian encoding.
func U512FromBytes(b []byte) (U512, error) {
	if len(b) != ByteLen {
		return U512{}, perrors.New(perrors.InvalidSize, "u512 encoding must be %d bytes, got %d", ByteLen, len(b))
	}
	var v U512
	for i := range v.Limbs {
		v.Limbs[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return v, nil
}

// Bytes returns the 64-byte little-endian two's complement encoding.
func (a I512) Bytes() []byte {
	return U512{Limbs: a.Limbs}.Bytes()
}

// I512FromBytes decodes the 64-byte little-endian two's complement
// encoding.
func I512FromBytes(b []byte) (I512, error) {
	u, err := U512FromBytes(b)
	if err != nil {
		return I512{}, err
	}
	return I512{Limbs: u.Limbs}, nil
}
