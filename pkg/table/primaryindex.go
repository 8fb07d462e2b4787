package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/perrors"
)

// pidxSlotOffset returns the byte offset of bucket k's slot within a
// PIDX page. Slot 0 never lives here — it's stored in
// PTBL.primary_index_reference_zero instead, so the PIDX page's own
// header doesn't cost it a slot (spec.md section 3's rationale).
// Buckets 1..N-1 are packed contiguously starting right after the
// block header.
func pidxSlotOffset(k uint64) int {
	return block.HeaderSize + int(k-1)*8
}

func init() {
	// PIDX's field table can't be a fixed list (its array length
	// depends on page size), so it isn't registered here; GetTopIndex/
	// SetTopIndex are PIDX's only accessors and they compute offsets
	// directly, matching how the diagnostic Field lookup would have to
	// work for a variable-length array field anyway (spec.md section
	// 9 lists ARRAY16/ARRAY32 as distinct kinds for exactly this case).
}

// GetTopIndex reads the root reference for bucket k (spec.md section
// 4.4). k == 0 reads PTBL.primary_index_reference_zero; any other
// bucket reads the PIDX page at its packed slot offset.
func (t *Table) GetTopIndex(k uint64) (Ref, error) {
	n := t.bucketCount()
	if k >= n {
		return NullRef, perrors.New(perrors.OutOfRange, "bucket %d out of range (N=%d)", k, n)
	}
	if k == 0 {
		return t.header.PrimaryRefZero(), nil
	}

	pidx, err := t.df.GetBlock(t.header.PrimaryIndexBlock())
	if err != nil {
		return NullRef, err
	}
	if pidx.Magic != block.PIDX {
		return NullRef, perrors.New(perrors.CorruptedData, "primary index ref is not a PIDX block (magic %s)", pidx.Magic)
	}
	off := pidxSlotOffset(k)
	if off+8 > len(pidx.Page) {
		return NullRef, perrors.New(perrors.OutOfRange, "bucket %d slot past page bounds", k)
	}
	return Ref(binary.LittleEndian.Uint64(pidx.Page[off : off+8])), nil
}

// SetTopIndex writes the root reference for bucket k, mirroring
// GetTopIndex's slot-0 special case.
func (t *Table) SetTopIndex(k uint64, ref Ref) error {
	n := t.bucketCount()
	if k >= n {
		return perrors.New(perrors.OutOfRange, "bucket %d out of range (N=%d)", k, n)
	}
	if k == 0 {
		t.header.SetPrimaryRefZero(ref)
		return nil
	}

	pidx, err := t.df.GetBlock(t.header.PrimaryIndexBlock())
	if err != nil {
		return err
	}
	if pidx.Magic != block.PIDX {
		return perrors.New(perrors.CorruptedData, "primary index ref is not a PIDX block (magic %s)", pidx.Magic)
	}
	off := pidxSlotOffset(k)
	if off+8 > len(pidx.Page) {
		return perrors.New(perrors.OutOfRange, "bucket %d slot past page bounds", k)
	}
	binary.LittleEndian.PutUint64(pidx.Page[off:off+8], uint64(ref))
	pidx.MarkDirty()
	return nil
}

// BucketForKey computes the bucket index for an already-encoded
// primary key.
func (t *Table) BucketForKey(key []byte) uint64 {
	return t.fingerprintBucket(key)
}
