package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"bytes"
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/dbfile"
	"github.com/prinbee/prinbee/pkg/perrors"
)

// DATA block layout: 8-byte header, then a fixed bucket-chain link
// ("next"), then the OID this row carries, then a length-prefixed key
// and a length-prefixed value. One DATA block holds exactly one row;
// spec.md section 4.6/4.7 leaves the branch-node structure of a bucket
// to the implementer, so a singly-linked chain of one-row-per-block
// DATA pages is this rewrite's concrete choice (noted in section 4.8).
const (
	dataNextOffset  = block.HeaderSize
	dataOIDOffset   = block.HeaderSize + 8
	dataKeyLenOff   = block.HeaderSize + 16
	dataPayloadOff  = block.HeaderSize + 20
)

func init() {
	block.Register(block.DATA, []block.FieldSpec{
		{Name: "next", Kind: block.KindReference, Offset: dataNextOffset, Width: 8},
		{Name: "oid", Kind: block.KindOID, Offset: dataOIDOffset, Width: 8},
		{Name: "key_length", Kind: block.KindUint32, Offset: dataKeyLenOff, Width: 4},
	})
}

// Row is an in-memory row bound to a table's current schema: a
// primary-key encoding and a value payload opaque to this package
// (column-level encoding lives above the storage core, per spec.md's
// non-goals around query planning).
type Row struct {
	OID   OID
	Key   []byte
	Value []byte
}

// RowNew returns an empty row bound to t's current schema.
func (t *Table) RowNew() *Row {
	return &Row{}
}

// Insert validates that the primary key doesn't already exist, assigns
// a fresh OID (from the free-OID list if non-empty, otherwise
// last_oid++), and appends the row to the head of its bucket's DATA
// chain. Fails with RowAlreadyExists on a primary-key collision.
func (t *Table) Insert(row *Row) error {
	if len(row.Key) == 0 {
		return perrors.New(perrors.InvalidParameter, "row has no primary key")
	}

	bucket := t.fingerprintBucket(row.Key)
	root, err := t.GetTopIndex(bucket)
	if err != nil {
		return err
	}

	if _, found, err := t.findInChain(root, row.Key); err != nil {
		return err
	} else if found {
		return perrors.New(perrors.RowAlreadyExists, "primary key already exists")
	}

	oid, err := t.allocateOID()
	if err != nil {
		return err
	}
	row.OID = oid

	b, err := t.df.AllocateBlock(block.DATA)
	if err != nil {
		return err
	}
	if err := writeDataBlock(b, root, oid, row.Key, row.Value); err != nil {
		return err
	}

	return t.SetTopIndex(bucket, b.Ref)
}

// Update overwrites the value of an existing row, requiring the
// primary key to already be present.
func (t *Table) Update(row *Row) error {
	bucket := t.fingerprintBucket(row.Key)
	root, err := t.GetTopIndex(bucket)
	if err != nil {
		return err
	}

	ref, found, err := t.findInChain(root, row.Key)
	if err != nil {
		return err
	}
	if !found {
		return perrors.New(perrors.RowNotFound, "primary key not found")
	}

	b, err := t.df.GetBlock(ref)
	if err != nil {
		return err
	}
	next := Ref(binary.LittleEndian.Uint64(b.Page[dataNextOffset : dataNextOffset+8]))
	oid := OID(binary.LittleEndian.Uint64(b.Page[dataOIDOffset : dataOIDOffset+8]))
	row.OID = oid
	return writeDataBlock(b, next, oid, row.Key, row.Value)
}

// Commit inserts row if its primary key is absent, or updates it if
// present.
func (t *Table) Commit(row *Row) error {
	bucket := t.fingerprintBucket(row.Key)
	root, err := t.GetTopIndex(bucket)
	if err != nil {
		return err
	}
	if _, found, err := t.findInChain(root, row.Key); err != nil {
		return err
	} else if found {
		return t.Update(row)
	}
	return t.Insert(row)
}

// Delete removes the row with the given primary key from its bucket's
// chain, splicing around it and returning its DATA block to the free
// list and its OID to the free-OID stack for reuse by a later Insert.
// It increments the header's deleted-row counter.
func (t *Table) Delete(key []byte) error {
	bucket := t.fingerprintBucket(key)
	root, err := t.GetTopIndex(bucket)
	if err != nil {
		return err
	}

	var prevRef Ref
	ref := root
	for ref != NullRef {
		b, err := t.df.GetBlock(ref)
		if err != nil {
			return err
		}
		if b.Magic != block.DATA {
			return perrors.New(perrors.CorruptedData, "bucket chain entry %d is not a DATA block (magic %s)", ref, b.Magic)
		}
		next := Ref(binary.LittleEndian.Uint64(b.Page[dataNextOffset : dataNextOffset+8]))
		klen := binary.LittleEndian.Uint32(b.Page[dataKeyLenOff:dataPayloadOff])
		rowKey := b.Page[dataPayloadOff : dataPayloadOff+int(klen)]

		if bytes.Equal(rowKey, key) {
			oid := OID(binary.LittleEndian.Uint64(b.Page[dataOIDOffset : dataOIDOffset+8]))
			if prevRef == NullRef {
				if err := t.SetTopIndex(bucket, next); err != nil {
					return err
				}
			} else {
				pb, err := t.df.GetBlock(prevRef)
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint64(pb.Page[dataNextOffset:dataNextOffset+8], uint64(next))
				pb.MarkDirty()
			}
			if err := t.df.FreeBlock(b); err != nil {
				return err
			}
			if err := t.PushFreeOID(oid); err != nil {
				return err
			}
			t.header.IncrementDeletedRows()
			return nil
		}

		prevRef = ref
		ref = next
	}

	return perrors.New(perrors.RowNotFound, "primary key not found")
}

// Get looks up a row by primary key.
func (t *Table) Get(key []byte) (*Row, error) {
	bucket := t.fingerprintBucket(key)
	root, err := t.GetTopIndex(bucket)
	if err != nil {
		return nil, err
	}
	ref, found, err := t.findInChain(root, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, perrors.New(perrors.RowNotFound, "primary key not found")
	}
	return t.readDataBlock(ref)
}

func (t *Table) allocateOID() (OID, error) {
	if free := t.header.FirstFreeOID(); free != NullRef {
		b, err := t.df.GetBlock(free)
		if err != nil {
			return 0, err
		}
		if b.Magic != block.IDXP {
			return 0, perrors.New(perrors.CorruptedData, "free-oid ref %d is not an IDXP block", free)
		}
		oid := OID(binary.LittleEndian.Uint64(b.Page[idxpOIDOffset : idxpOIDOffset+8]))
		next := Ref(binary.LittleEndian.Uint64(b.Page[idxpNextOffset : idxpNextOffset+8]))
		t.header.SetFirstFreeOID(next)
		if err := t.df.FreeBlock(b); err != nil {
			return 0, err
		}
		return oid, nil
	}
	return t.header.NextOID(), nil
}

// findInChain walks a bucket's DATA chain looking for key, returning
// its block ref if found.
func (t *Table) findInChain(root Ref, key []byte) (Ref, bool, error) {
	ref := root
	for ref != NullRef {
		b, err := t.df.GetBlock(ref)
		if err != nil {
			return NullRef, false, err
		}
		if b.Magic != block.DATA {
			return NullRef, false, perrors.New(perrors.CorruptedData, "bucket chain entry %d is not a DATA block (magic %s)", ref, b.Magic)
		}
		klen := binary.LittleEndian.Uint32(b.Page[dataKeyLenOff:dataPayloadOff])
		rowKey := b.Page[dataPayloadOff : dataPayloadOff+int(klen)]
		if bytes.Equal(rowKey, key) {
			return ref, true, nil
		}
		ref = Ref(binary.LittleEndian.Uint64(b.Page[dataNextOffset : dataNextOffset+8]))
	}
	return NullRef, false, nil
}

func (t *Table) readDataBlock(ref Ref) (*Row, error) {
	b, err := t.df.GetBlock(ref)
	if err != nil {
		return nil, err
	}
	return decodeDataBlock(b)
}

func decodeDataBlock(b *dbfile.Block) (*Row, error) {
	oid := OID(binary.LittleEndian.Uint64(b.Page[dataOIDOffset : dataOIDOffset+8]))
	klen := binary.LittleEndian.Uint32(b.Page[dataKeyLenOff:dataPayloadOff])
	key := make([]byte, klen)
	copy(key, b.Page[dataPayloadOff:dataPayloadOff+int(klen)])

	valOff := dataPayloadOff + int(klen)
	vlen := binary.LittleEndian.Uint32(b.Page[valOff : valOff+4])
	value := make([]byte, vlen)
	copy(value, b.Page[valOff+4:valOff+4+int(vlen)])

	return &Row{OID: oid, Key: key, Value: value}, nil
}

func writeDataBlock(b *dbfile.Block, next Ref, oid OID, key, value []byte) error {
	valOff := dataPayloadOff + len(key)
	need := valOff + 4 + len(value)
	if need > len(b.Page) {
		return perrors.New(perrors.InvalidSize, "row of %d bytes doesn't fit in a %d-byte page", need, len(b.Page))
	}

	binary.LittleEndian.PutUint64(b.Page[dataNextOffset:dataNextOffset+8], uint64(next))
	binary.LittleEndian.PutUint64(b.Page[dataOIDOffset:dataOIDOffset+8], uint64(oid))
	binary.LittleEndian.PutUint32(b.Page[dataKeyLenOff:dataPayloadOff], uint32(len(key)))
	copy(b.Page[dataPayloadOff:], key)
	binary.LittleEndian.PutUint32(b.Page[valOff:valOff+4], uint32(len(value)))
	copy(b.Page[valOff+4:], value)
	b.MarkDirty()
	return nil
}
