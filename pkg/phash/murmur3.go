// Package phash implements a streaming, resettable Murmur3 hash used
// to fingerprint primary keys for the primary index bucket lookup
// (spec: "Murmur3 fingerprint F").
package phash

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"
	"hash"
)

const (
	c1 uint64 = 0x87c37b91114253d5
	c2 uint64 = 0x4cf5ad432745937f
)

// Hasher is a streaming, resettable Murmur3 x64-128 implementation
// that folds its two 64-bit output lanes into a single hash.Hash64,
// matching how the table engine derives a primary-index fingerprint
// from an arbitrary-length primary key encoding.
type Hasher struct {
	seed     uint64
	h1, h2   uint64
	length   int
	pending  [16]byte
	pendingN int
}

// New returns a streaming hasher seeded with 0.
func New() *Hasher {
	return NewSeeded(0)
}

// NewSeeded returns a streaming hasher seeded with the given value.
func NewSeeded(seed uint64) *Hasher {
	h := &Hasher{seed: seed}
	h.Reset()
	return h
}

// Reset restores the hasher to its freshly-seeded state.
func (h *Hasher) Reset() {
	h.h1 = h.seed
	h.h2 = h.seed
	h.length = 0
	h.pendingN = 0
}

// Size returns the number of bytes Sum appends: 8 (folded to 64 bits).
func (h *Hasher) Size() int { return 8 }

// BlockSize is the Murmur3 x64-128 block size.
func (h *Hasher) BlockSize() int { return 16 }

// Write implements io.Writer / hash.Hash, folding 16-byte blocks into
// the running state and buffering any remainder for the next call or
// for Sum64's finalization.
func (h *Hasher) Write(p []byte) (int, error) {
	n := len(p)
	h.length += n

	if h.pendingN > 0 {
		need := 16 - h.pendingN
		if need > len(p) {
			need = len(p)
		}
		copy(h.pending[h.pendingN:], p[:need])
		h.pendingN += need
		p = p[need:]
		if h.pendingN < 16 {
			return n, nil
		}
		h.mixBlock(h.pending[:])
		h.pendingN = 0
	}

	for len(p) >= 16 {
		h.mixBlock(p[:16])
		p = p[16:]
	}

	if len(p) > 0 {
		copy(h.pending[:], p)
		h.pendingN = len(p)
	}

	return n, nil
}

func (h *Hasher) mixBlock(b []byte) {
	k1 := binary.LittleEndian.Uint64(b[0:8])
	k2 := binary.LittleEndian.Uint64(b[8:16])

	k1 *= c1
	k1 = rotl64(k1, 31)
	k1 *= c2
	h.h1 ^= k1

	h.h1 = rotl64(h.h1, 27)
	h.h1 += h.h2
	h.h1 = h.h1*5 + 0x52dce729

	k2 *= c2
	k2 = rotl64(k2, 33)
	k2 *= c1
	h.h2 ^= k2

	h.h2 = rotl64(h.h2, 31)
	h.h2 += h.h1
	h.h2 = h.h2*5 + 0x38495ab5
}

// Sum64 finalizes the hash without mutating the hasher, folding the two
// 64-bit lanes of the 128-bit output together with xor so either tail carries full
// avalanche, as the standalone Murmur3 finalizer does for a one-shot
// digest.
func (h *Hasher) Sum64() uint64 {
	h1, h2 := h.h1, h.h2

	var k1, k2 uint64
	tail := h.pending[:h.pendingN]
	switch {
	case h.pendingN >= 15:
		k2 ^= uint64(tail[14]) << 48
		fallthrough
	case h.pendingN >= 14:
		k2 ^= uint64(tail[13]) << 40
		fallthrough
	case h.pendingN >= 13:
		k2 ^= uint64(tail[12]) << 32
		fallthrough
	case h.pendingN >= 12:
		k2 ^= uint64(tail[11]) << 24
		fallthrough
	case h.pendingN >= 11:
		k2 ^= uint64(tail[10]) << 16
		fallthrough
	case h.pendingN >= 10:
		k2 ^= uint64(tail[9]) << 8
		fallthrough
	case h.pendingN >= 9:
		k2 ^= uint64(tail[8])
		k2 *= c2
		k2 = rotl64(k2, 33)
		k2 *= c1
		h2 ^= k2
		fallthrough
	case h.pendingN >= 8:
		k1 ^= uint64(tail[7]) << 56
		fallthrough
	case h.pendingN >= 7:
		k1 ^= uint64(tail[6]) << 48
		fallthrough
	case h.pendingN >= 6:
		k1 ^= uint64(tail[5]) << 40
		fallthrough
	case h.pendingN >= 5:
		k1 ^= uint64(tail[4]) << 32
		fallthrough
	case h.pendingN >= 4:
		k1 ^= uint64(tail[3]) << 24
		fallthrough
	case h.pendingN >= 3:
		k1 ^= uint64(tail[2]) << 16
		fallthrough
	case h.pendingN >= 2:
		k1 ^= uint64(tail[1]) << 8
		fallthrough
	case h.pendingN >= 1:
		k1 ^= uint64(tail[0])
		k1 *= c1
		k1 = rotl64(k1, 31)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint64(h.length)
	h2 ^= uint64(h.length)

	h1 += h2
	h2 += h1

	h1 = fmix64(h1)
	h2 = fmix64(h2)

	h1 += h2
	h2 += h1

	return h1 ^ h2
}

// Sum implements hash.Hash, appending the big-endian Sum64 to b.
func (h *Hasher) Sum(b []byte) []byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], h.Sum64())
	return append(b, out[:]...)
}

func rotl64(x uint64, r uint) uint64 {
	return x<<r | x>>(64-r)
}

func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// Sum64 computes a one-shot Murmur3 fingerprint of data, seeded with 0.
func Sum64(data []byte) uint64 {
	h := New()
	_, _ = h.Write(data)
	return h.Sum64()
}

var _ hash.Hash64 = (*Hasher)(nil)
