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

// ptblBody is the PTBL block's payload, immediately following the
// 8-byte (magic, version) header. Field order matches spec section 3
// exactly; binary.Write/Read serialize struct fields in declaration
// order regardless of in-memory alignment, so this layout is the
// on-disk layout.
type ptblBody struct {
	BlockSize       uint32
	_               uint32 // padding to keep every Ref/OID field 8-byte aligned on disk
	SchemaRef       uint64
	FirstFreeBlock  uint64
	IndirectIndex   uint64 // reserved: not used by this rewrite, preserved bit-for-bit like BloomFilterFlags
	LastOID         uint64
	FirstFreeOID    uint64
	PrimaryIndex    uint64
	PrimaryRefZero  uint64
	ExpirationIndex uint64
	SecondaryIndex  uint64
	TreeIndex       uint64
	DeletedRows     uint64
	BloomFilterFlags uint64
}

const ptblBodySize = 4 + 4 + 8*12

func init() {
	block.Register(block.PTBL, []block.FieldSpec{
		{Name: "block_size", Kind: block.KindUint32, Offset: block.HeaderSize + 0, Width: 4},
		{Name: "schema_ref", Kind: block.KindReference, Offset: block.HeaderSize + 8, Width: 8},
		{Name: "first_free_block", Kind: block.KindReference, Offset: block.HeaderSize + 16, Width: 8},
		{Name: "indirect_index", Kind: block.KindReference, Offset: block.HeaderSize + 24, Width: 8},
		{Name: "last_oid", Kind: block.KindOID, Offset: block.HeaderSize + 32, Width: 8},
		{Name: "first_free_oid", Kind: block.KindOID, Offset: block.HeaderSize + 40, Width: 8},
		{Name: "primary_index_block", Kind: block.KindReference, Offset: block.HeaderSize + 48, Width: 8},
		{Name: "primary_index_reference_zero", Kind: block.KindReference, Offset: block.HeaderSize + 56, Width: 8},
		{Name: "expiration_index_block", Kind: block.KindReference, Offset: block.HeaderSize + 64, Width: 8},
		{Name: "secondary_index_block", Kind: block.KindReference, Offset: block.HeaderSize + 72, Width: 8},
		{Name: "tree_index_block", Kind: block.KindReference, Offset: block.HeaderSize + 80, Width: 8},
		{Name: "deleted_rows", Kind: block.KindUint64, Offset: block.HeaderSize + 88, Width: 8},
		{Name: "bloom_filter_flags", Kind: block.KindUint64, Offset: block.HeaderSize + 96, Width: 8},
	})
}

func loadPTBLBody(page []byte) (ptblBody, error) {
	var body ptblBody
	r := bytes.NewReader(page[block.HeaderSize:])
	if err := binary.Read(r, binary.LittleEndian, &body); err != nil {
		return ptblBody{}, perrors.Wrap(err, perrors.CorruptedData, "decode PTBL body")
	}
	return body, nil
}

func storePTBLBody(page []byte, body ptblBody) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, body); err != nil {
		return perrors.Wrap(err, perrors.CorruptedData, "encode PTBL body")
	}
	copy(page[block.HeaderSize:], buf.Bytes())
	return nil
}

// ptblView wraps the cached PTBL block (always at Ref 0) and gives
// typed, write-through access to its fields. It also satisfies
// dbfile.FreeList, since the header is where the free block list root
// lives.
type ptblView struct {
	b *dbfile.Block
}

func newPTBLView(b *dbfile.Block) (*ptblView, error) {
	if b.Magic != block.PTBL {
		return nil, perrors.New(perrors.CorruptedData, "ref 0 is not a PTBL block (magic %s)", b.Magic)
	}
	return &ptblView{b: b}, nil
}

func (p *ptblView) body() ptblBody {
	body, err := loadPTBLBody(p.b.Page)
	if err != nil {
		// The page was already validated as PTBL-sized by the caller
		// (it came from a cached block of the table's fixed page
		// size); a decode failure here means in-memory corruption,
		// which is unrecoverable.
		panic(err)
	}
	return body
}

func (p *ptblView) mutate(f func(*ptblBody)) {
	body := p.body()
	f(&body)
	if err := storePTBLBody(p.b.Page, body); err != nil {
		panic(err)
	}
	p.b.MarkDirty()
}

// First implements dbfile.FreeList.
func (p *ptblView) First() dbfile.Ref { return dbfile.Ref(p.body().FirstFreeBlock) }

// SetFirst implements dbfile.FreeList.
func (p *ptblView) SetFirst(r dbfile.Ref) {
	p.mutate(func(b *ptblBody) { b.FirstFreeBlock = uint64(r) })
}

func (p *ptblView) BlockSize() uint32     { return p.body().BlockSize }
func (p *ptblView) SchemaRef() Ref        { return Ref(p.body().SchemaRef) }
func (p *ptblView) SetSchemaRef(r Ref)    { p.mutate(func(b *ptblBody) { b.SchemaRef = uint64(r) }) }
func (p *ptblView) LastOID() OID         { return OID(p.body().LastOID) }
func (p *ptblView) FirstFreeOID() Ref    { return Ref(p.body().FirstFreeOID) }
func (p *ptblView) SetFirstFreeOID(r Ref) {
	p.mutate(func(b *ptblBody) { b.FirstFreeOID = uint64(r) })
}

// NextOID returns a fresh monotonic OID and advances last_oid so it
// remains strictly greater than every OID ever handed out.
func (p *ptblView) NextOID() OID {
	body := p.body()
	oid := OID(body.LastOID)
	p.mutate(func(b *ptblBody) { b.LastOID = body.LastOID + 1 })
	return oid
}

func (p *ptblView) PrimaryIndexBlock() Ref { return Ref(p.body().PrimaryIndex) }
func (p *ptblView) SetPrimaryIndexBlock(r Ref) {
	p.mutate(func(b *ptblBody) { b.PrimaryIndex = uint64(r) })
}

func (p *ptblView) PrimaryRefZero() Ref { return Ref(p.body().PrimaryRefZero) }
func (p *ptblView) SetPrimaryRefZero(r Ref) {
	p.mutate(func(b *ptblBody) { b.PrimaryRefZero = uint64(r) })
}

func (p *ptblView) ExpirationIndexBlock() Ref { return Ref(p.body().ExpirationIndex) }
func (p *ptblView) SetExpirationIndexBlock(r Ref) {
	p.mutate(func(b *ptblBody) { b.ExpirationIndex = uint64(r) })
}

func (p *ptblView) SecondaryIndexBlock() Ref { return Ref(p.body().SecondaryIndex) }
func (p *ptblView) SetSecondaryIndexBlock(r Ref) {
	p.mutate(func(b *ptblBody) { b.SecondaryIndex = uint64(r) })
}

func (p *ptblView) TreeIndexBlock() Ref { return Ref(p.body().TreeIndex) }
func (p *ptblView) SetTreeIndexBlock(r Ref) {
	p.mutate(func(b *ptblBody) { b.TreeIndex = uint64(r) })
}

func (p *ptblView) DeletedRows() uint64 { return p.body().DeletedRows }
func (p *ptblView) IncrementDeletedRows() {
	body := p.body()
	p.mutate(func(b *ptblBody) { b.DeletedRows = body.DeletedRows + 1 })
}

// BloomFilterFlags is opaque per the spec's open question: the bits
// are preserved exactly as written, never interpreted.
func (p *ptblView) BloomFilterFlags() uint64 { return p.body().BloomFilterFlags }
func (p *ptblView) SetBloomFilterFlags(v uint64) {
	p.mutate(func(b *ptblBody) { b.BloomFilterFlags = v })
}
