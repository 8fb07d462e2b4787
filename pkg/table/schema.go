package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/dbfile"
	"github.com/prinbee/prinbee/pkg/perrors"
)

// Model is the table's storage model (spec.md section 3's schema
// description).
type Model int

const (
	ModelContent Model = iota
	ModelData
	ModelLog
	ModelQueue
	ModelSequential
	ModelSession
	ModelTree
)

// ColumnType enumerates the primitive types a schema column can carry.
type ColumnType int

const (
	TypeInt8 ColumnType = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeBigIntSigned
	TypeBigIntUnsigned
	TypeBool
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeTime
)

// FieldDef describes one schema column. ID is assigned once, at
// creation, and never reused or renumbered across schema versions
// (spec.md section 3: "rows persisted under an old schema keep their
// meaning").
type FieldDef struct {
	ID          uint32
	Name        string
	Type        ColumnType
	Flags       uint32
	Default     []byte
	Min         []byte
	Max         []byte
	Length      uint32
	Validation  string
	Description string
}

// SortColumn is one column of a secondary index's sort key.
type SortColumn struct {
	ColumnID   uint32
	Descending bool
	NullsFirst bool
	KeyExpr    string
}

// SecondaryIndexDef describes one secondary index (spec.md section 3).
type SecondaryIndexDef struct {
	Name   string
	Flags  uint32
	Sort   []SortColumn
	Filter string
}

// Schema is the compiled logical schema backing a table: name, model,
// replication setting, columns, primary key column order, and
// secondary indexes. It's persisted across a linked chain of SCHM
// blocks (spec.md section 4.5).
type Schema struct {
	df       *dbfile.Dbfile
	firstRef Ref

	Name             string
	Model            Model
	Replication      uint32
	Columns          []FieldDef
	PrimaryKey       []uint32
	SecondaryIndexes []SecondaryIndexDef

	nextColumnID uint32
}

// FirstRef is the ref of the schema chain's first SCHM block.
func (s *Schema) FirstRef() Ref { return s.firstRef }

// ColumnByID finds a column by its immutable id.
func (s *Schema) ColumnByID(id uint32) (FieldDef, bool) {
	for _, c := range s.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return FieldDef{}, false
}

// AddColumn appends a new column, assigning it the next unused column
// id; existing columns and their ids are untouched.
func (s *Schema) AddColumn(name string, t ColumnType, flags uint32) FieldDef {
	col := FieldDef{ID: s.nextColumnID, Name: name, Type: t, Flags: flags}
	s.nextColumnID++
	s.Columns = append(s.Columns, col)
	return col
}

// SCHM block layout: after the 8-byte block header come the
// next_schema_block pointer and a uint32 size_in_bytes counting the
// payload bytes this block holds; the payload follows.
const schmNextOffset = block.HeaderSize
const schmSizeOffset = block.HeaderSize + 8
const schmPayloadOffset = block.HeaderSize + 12

func init() {
	block.Register(block.SCHM, []block.FieldSpec{
		{Name: "next_schema_block", Kind: block.KindReference, Offset: schmNextOffset, Width: 8},
		{Name: "size_in_bytes", Kind: block.KindUint32, Offset: schmSizeOffset, Width: 4},
	})
}

// NewSchema encodes fields into a fresh schema chain and returns the
// Schema bound to it.
func NewSchema(df *dbfile.Dbfile, fields []FieldDef) (*Schema, error) {
	s := &Schema{df: df, Columns: append([]FieldDef(nil), fields...)}
	for _, f := range fields {
		if f.ID >= s.nextColumnID {
			s.nextColumnID = f.ID + 1
		}
	}
	ref, err := s.write()
	if err != nil {
		return nil, err
	}
	s.firstRef = ref
	return s, nil
}

// LoadSchema decodes the schema chain starting at ref.
func LoadSchema(df *dbfile.Dbfile, ref Ref) (*Schema, error) {
	payload, err := readChain(df, ref)
	if err != nil {
		return nil, err
	}
	s, err := decodeSchema(payload)
	if err != nil {
		return nil, err
	}
	s.df = df
	s.firstRef = ref
	for _, f := range s.Columns {
		if f.ID >= s.nextColumnID {
			s.nextColumnID = f.ID + 1
		}
	}
	return s, nil
}

// Save re-encodes the schema and rewrites its chain in place, freeing
// any now-unused trailing blocks and allocating more if it grew
// (spec.md section 4.5: "any residual blocks from a shrinking schema
// are returned to the free list").
func (s *Schema) Save() error {
	ref, err := s.writeOver(s.firstRef)
	if err != nil {
		return err
	}
	s.firstRef = ref
	return nil
}

func readChain(df *dbfile.Dbfile, ref Ref) ([]byte, error) {
	var payload []byte
	for ref != NullRef {
		b, err := df.GetBlock(ref)
		if err != nil {
			return nil, err
		}
		if b.Magic != block.SCHM {
			return nil, perrors.New(perrors.CorruptedData, "schema ref %d is not a SCHM block (magic %s)", ref, b.Magic)
		}
		size := binary.LittleEndian.Uint32(b.Page[schmSizeOffset:schmPayloadOffset])
		if int(schmPayloadOffset)+int(size) > len(b.Page) {
			return nil, perrors.New(perrors.CorruptedData, "SCHM block %d declares size past page bounds", ref)
		}
		payload = append(payload, b.Page[schmPayloadOffset:schmPayloadOffset+int(size)]...)
		next := Ref(binary.LittleEndian.Uint64(b.Page[schmNextOffset : schmNextOffset+8]))
		ref = next
	}
	return payload, nil
}

// write lays out a brand-new chain (used only by NewSchema, where no
// prior chain exists to reuse or free).
func (s *Schema) write() (Ref, error) {
	return s.writeOver(NullRef)
}

// writeOver streams the encoded schema across SCHM blocks, reusing the
// existing chain starting at existing where possible and freeing any
// blocks left over once the new payload is exhausted; it allocates new
// blocks if the encoding grew past the old chain's length.
func (s *Schema) writeOver(existing Ref) (Ref, error) {
	payload := encodeSchema(s)
	payloadCap := int(s.df.PageSize()) - schmPayloadOffset
	if payloadCap <= 0 {
		return NullRef, perrors.New(perrors.InvalidSize, "page size too small to hold any schema payload")
	}

	var oldRefs []Ref
	for r := existing; r != NullRef; {
		b, err := s.df.GetBlock(r)
		if err != nil {
			return NullRef, err
		}
		oldRefs = append(oldRefs, r)
		r = Ref(binary.LittleEndian.Uint64(b.Page[schmNextOffset : schmNextOffset+8]))
	}

	var chainRefs []Ref
	for off := 0; off < len(payload) || len(chainRefs) == 0; off += payloadCap {
		end := off + payloadCap
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[off:end]

		var b *dbfile.Block
		var err error
		if len(chainRefs) < len(oldRefs) {
			b, err = s.df.GetBlock(oldRefs[len(chainRefs)])
		} else {
			b, err = s.df.AllocateBlock(block.SCHM)
		}
		if err != nil {
			return NullRef, err
		}
		if b.Magic != block.SCHM {
			return NullRef, perrors.New(perrors.CorruptedData, "schema chain block %d is not SCHM", b.Ref)
		}

		binary.LittleEndian.PutUint32(b.Page[schmSizeOffset:schmPayloadOffset], uint32(len(chunk)))
		copy(b.Page[schmPayloadOffset:], chunk)
		chainRefs = append(chainRefs, b.Ref)
		b.MarkDirty()

		if off+payloadCap >= len(payload) {
			break
		}
	}

	for i, r := range chainRefs {
		b, err := s.df.GetBlock(r)
		if err != nil {
			return NullRef, err
		}
		var next uint64
		if i+1 < len(chainRefs) {
			next = uint64(chainRefs[i+1])
		}
		binary.LittleEndian.PutUint64(b.Page[schmNextOffset:schmNextOffset+8], next)
		b.MarkDirty()
	}

	for i := len(chainRefs); i < len(oldRefs); i++ {
		b, err := s.df.GetBlock(oldRefs[i])
		if err != nil {
			return NullRef, err
		}
		if err := s.df.FreeBlock(b); err != nil {
			return NullRef, err
		}
	}

	return chainRefs[0], nil
}

// The wire encoding below is a flat, length-prefixed layout private to
// this package: every string is a uint16 length followed by UTF-8
// bytes, every slice is a uint32 count followed by elements. It exists
// only to pack the logical schema into the SCHM chain; there's no
// cross-process or cross-version wire contract to keep stable here
// beyond the chain structure itself, so a single ad hoc format (rather
// than a general-purpose serialization library) keeps this self
// contained and dependency-free where the spec doesn't call for one.
func encodeSchema(s *Schema) []byte {
	buf := new(bytes.Buffer)
	putString(buf, s.Name)
	binary.Write(buf, binary.LittleEndian, uint32(s.Model))
	binary.Write(buf, binary.LittleEndian, s.Replication)
	binary.Write(buf, binary.LittleEndian, s.nextColumnID)

	binary.Write(buf, binary.LittleEndian, uint32(len(s.Columns)))
	for _, c := range s.Columns {
		binary.Write(buf, binary.LittleEndian, c.ID)
		putString(buf, c.Name)
		binary.Write(buf, binary.LittleEndian, uint32(c.Type))
		binary.Write(buf, binary.LittleEndian, c.Flags)
		putBytes(buf, c.Default)
		putBytes(buf, c.Min)
		putBytes(buf, c.Max)
		binary.Write(buf, binary.LittleEndian, c.Length)
		putString(buf, c.Validation)
		putString(buf, c.Description)
	}

	binary.Write(buf, binary.LittleEndian, uint32(len(s.PrimaryKey)))
	for _, id := range s.PrimaryKey {
		binary.Write(buf, binary.LittleEndian, id)
	}

	binary.Write(buf, binary.LittleEndian, uint32(len(s.SecondaryIndexes)))
	for _, idx := range s.SecondaryIndexes {
		putString(buf, idx.Name)
		binary.Write(buf, binary.LittleEndian, idx.Flags)
		binary.Write(buf, binary.LittleEndian, uint32(len(idx.Sort)))
		for _, sc := range idx.Sort {
			binary.Write(buf, binary.LittleEndian, sc.ColumnID)
			binary.Write(buf, binary.LittleEndian, boolByte(sc.Descending))
			binary.Write(buf, binary.LittleEndian, boolByte(sc.NullsFirst))
			putString(buf, sc.KeyExpr)
		}
		putString(buf, idx.Filter)
	}

	return buf.Bytes()
}

func decodeSchema(payload []byte) (*Schema, error) {
	r := bytes.NewReader(payload)
	s := &Schema{}

	var err error
	if s.Name, err = getString(r); err != nil {
		return nil, err
	}
	var model, nCols, nPK, nIdx uint32
	if err := binary.Read(r, binary.LittleEndian, &model); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode schema model")
	}
	s.Model = Model(model)
	if err := binary.Read(r, binary.LittleEndian, &s.Replication); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode schema replication")
	}
	if err := binary.Read(r, binary.LittleEndian, &s.nextColumnID); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode schema next column id")
	}

	if err := binary.Read(r, binary.LittleEndian, &nCols); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode schema column count")
	}
	for i := uint32(0); i < nCols; i++ {
		var c FieldDef
		var typ uint32
		if err := binary.Read(r, binary.LittleEndian, &c.ID); err != nil {
			return nil, err
		}
		if c.Name, err = getString(r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
			return nil, err
		}
		c.Type = ColumnType(typ)
		if err := binary.Read(r, binary.LittleEndian, &c.Flags); err != nil {
			return nil, err
		}
		if c.Default, err = getBytes(r); err != nil {
			return nil, err
		}
		if c.Min, err = getBytes(r); err != nil {
			return nil, err
		}
		if c.Max, err = getBytes(r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &c.Length); err != nil {
			return nil, err
		}
		if c.Validation, err = getString(r); err != nil {
			return nil, err
		}
		if c.Description, err = getString(r); err != nil {
			return nil, err
		}
		s.Columns = append(s.Columns, c)
	}

	if err := binary.Read(r, binary.LittleEndian, &nPK); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nPK; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		s.PrimaryKey = append(s.PrimaryKey, id)
	}

	if err := binary.Read(r, binary.LittleEndian, &nIdx); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nIdx; i++ {
		var idx SecondaryIndexDef
		if idx.Name, err = getString(r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &idx.Flags); err != nil {
			return nil, err
		}
		var nSort uint32
		if err := binary.Read(r, binary.LittleEndian, &nSort); err != nil {
			return nil, err
		}
		for j := uint32(0); j < nSort; j++ {
			var sc SortColumn
			var desc, nullsFirst byte
			if err := binary.Read(r, binary.LittleEndian, &sc.ColumnID); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &desc); err != nil {
				return nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &nullsFirst); err != nil {
				return nil, err
			}
			sc.Descending = desc != 0
			sc.NullsFirst = nullsFirst != 0
			if sc.KeyExpr, err = getString(r); err != nil {
				return nil, err
			}
			idx.Sort = append(idx.Sort, sc)
		}
		if idx.Filter, err = getString(r); err != nil {
			return nil, err
		}
		s.SecondaryIndexes = append(s.SecondaryIndexes, idx)
	}

	return s, nil
}

func putString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", perrors.Wrap(err, perrors.CorruptedData, "decode string length")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", perrors.Wrap(err, perrors.CorruptedData, "decode string body")
	}
	return string(b), nil
}

func putBytes(buf *bytes.Buffer, b []byte) {
	binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode bytes length")
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, perrors.Wrap(err, perrors.CorruptedData, "decode bytes body")
		}
	}
	return b, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
