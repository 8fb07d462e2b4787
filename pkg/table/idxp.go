package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/block"
)

// IDXP is described by spec.md section 3 as a secondary-index pointer
// list; this rewrite also repurposes it, by the same analogy the
// schema chain uses for next_schema_block, as a free-OID stack node:
// PTBL.first_free_oid points at the most recently freed OID's IDXP
// node, each node chains to the next via "next", and PushFreeOID and
// allocateOID (row.go) treat the chain as a LIFO, exactly like the free-block
// list (section 3's rationale for first_free_oid is unspecified; this
// is this rewrite's concrete choice, recorded alongside the schema's).
const (
	idxpNextOffset = block.HeaderSize
	idxpOIDOffset  = block.HeaderSize + 8
)

func init() {
	block.Register(block.IDXP, []block.FieldSpec{
		{Name: "next", Kind: block.KindReference, Offset: idxpNextOffset, Width: 8},
		{Name: "oid", Kind: block.KindOID, Offset: idxpOIDOffset, Width: 8},
	})
}

// PushFreeOID returns oid to the free-OID stack so a future Insert can
// reuse it ahead of bumping last_oid.
func (t *Table) PushFreeOID(oid OID) error {
	b, err := t.df.AllocateBlock(block.IDXP)
	if err != nil {
		return err
	}
	current := t.header.FirstFreeOID()
	binary.LittleEndian.PutUint64(b.Page[idxpNextOffset:idxpNextOffset+8], uint64(current))
	binary.LittleEndian.PutUint64(b.Page[idxpOIDOffset:idxpOIDOffset+8], uint64(oid))
	b.MarkDirty()
	t.header.SetFirstFreeOID(b.Ref)
	return nil
}
