package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/prinbee/prinbee/pkg/bigint"
	"github.com/prinbee/prinbee/pkg/perrors"
)

// Typed column values. A row's columns are encoded individually per
// their schema type; the primary key is the concatenation of the key
// columns' encodings in key order. All integer widths widen through
// bigint for bounds checks, so the 8-bit column and the 512-bit column
// take the same compare path.

// columnWidth returns the fixed encoded size of a column type, or 0
// for the variable-length types.
func columnWidth(t ColumnType) int {
	switch t {
	case TypeInt8, TypeUint8, TypeBool:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64, TypeTime:
		return 8
	case TypeBigIntSigned, TypeBigIntUnsigned:
		return bigint.ByteLen
	default:
		return 0
	}
}

func columnUnsigned(t ColumnType) bool {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeBigIntUnsigned:
		return true
	}
	return false
}

func columnSigned(t ColumnType) bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeBigIntSigned:
		return true
	}
	return false
}

// widenUnsigned decodes a little-endian unsigned column value into a
// U512.
func widenUnsigned(t ColumnType, raw []byte) (bigint.U512, error) {
	if t == TypeBigIntUnsigned {
		return bigint.U512FromBytes(raw)
	}
	var v uint64
	for i := len(raw) - 1; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	return bigint.NewU512FromUint64(v), nil
}

// widenSigned decodes a little-endian two's complement column value
// into an I512, sign-extending from the column's width.
func widenSigned(t ColumnType, raw []byte) (bigint.I512, error) {
	if t == TypeBigIntSigned {
		return bigint.I512FromBytes(raw)
	}
	var v uint64
	for i := len(raw) - 1; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	shift := uint(64 - len(raw)*8)
	return bigint.NewI512FromInt64(int64(v<<shift) >> shift), nil
}

// checkColumnValue validates one encoded value against its column
// definition: exact width for the fixed-size types, the Length cap for
// strings and blobs, and Min/Max bounds for the integer types.
func checkColumnValue(col FieldDef, raw []byte) error {
	if w := columnWidth(col.Type); w != 0 && len(raw) != w {
		return perrors.New(perrors.InvalidSize, "column %q expects %d bytes, got %d", col.Name, w, len(raw))
	}

	switch col.Type {
	case TypeString, TypeBytes:
		if col.Length != 0 && uint32(len(raw)) > col.Length {
			return perrors.New(perrors.OutOfRange, "column %q exceeds its %d-byte limit", col.Name, col.Length)
		}
		return nil
	}

	switch {
	case columnUnsigned(col.Type):
		v, err := widenUnsigned(col.Type, raw)
		if err != nil {
			return err
		}
		if len(col.Min) != 0 {
			min, err := widenUnsigned(col.Type, col.Min)
			if err != nil {
				return err
			}
			if v.Cmp(min) < 0 {
				return perrors.New(perrors.OutOfRange, "column %q below its minimum", col.Name)
			}
		}
		if len(col.Max) != 0 {
			max, err := widenUnsigned(col.Type, col.Max)
			if err != nil {
				return err
			}
			if v.Cmp(max) > 0 {
				return perrors.New(perrors.OutOfRange, "column %q above its maximum", col.Name)
			}
		}
	case columnSigned(col.Type):
		v, err := widenSigned(col.Type, raw)
		if err != nil {
			return err
		}
		if len(col.Min) != 0 {
			min, err := widenSigned(col.Type, col.Min)
			if err != nil {
				return err
			}
			if v.Cmp(min) < 0 {
				return perrors.New(perrors.OutOfRange, "column %q below its minimum", col.Name)
			}
		}
		if len(col.Max) != 0 {
			max, err := widenSigned(col.Type, col.Max)
			if err != nil {
				return err
			}
			if v.Cmp(max) > 0 {
				return perrors.New(perrors.OutOfRange, "column %q above its maximum", col.Name)
			}
		}
	}
	return nil
}

// BuildRow assembles a Row from per-column encoded values keyed by
// column id. Every value is validated against the schema; every
// primary-key column must be present. The primary key becomes the
// length-prefixed concatenation of the key columns' encodings in key
// order, and the full column set is packed into the row's value
// payload so Columns can reverse it.
func (t *Table) BuildRow(values map[uint32][]byte) (*Row, error) {
	s := t.schema
	for id, raw := range values {
		col, ok := s.ColumnByID(id)
		if !ok {
			return nil, perrors.New(perrors.ColumnNotFound, "no column with id %d", id)
		}
		if err := checkColumnValue(col, raw); err != nil {
			return nil, err
		}
	}

	if len(s.PrimaryKey) == 0 {
		return nil, perrors.New(perrors.LogicError, "schema has no primary key")
	}
	key := new(bytes.Buffer)
	for _, id := range s.PrimaryKey {
		raw, ok := values[id]
		if !ok {
			col, _ := s.ColumnByID(id)
			return nil, perrors.New(perrors.MissingParameter, "primary key column %q has no value", col.Name)
		}
		binary.Write(key, binary.LittleEndian, uint32(len(raw)))
		key.Write(raw)
	}

	ids := make([]uint32, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	payload := new(bytes.Buffer)
	binary.Write(payload, binary.LittleEndian, uint32(len(ids)))
	for _, id := range ids {
		binary.Write(payload, binary.LittleEndian, id)
		binary.Write(payload, binary.LittleEndian, uint32(len(values[id])))
		payload.Write(values[id])
	}

	return &Row{Key: key.Bytes(), Value: payload.Bytes()}, nil
}

// Columns unpacks a row built by BuildRow back into per-column encoded
// values keyed by column id.
func (r *Row) Columns() (map[uint32][]byte, error) {
	rd := bytes.NewReader(r.Value)
	var count uint32
	if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
		return nil, perrors.Wrap(err, perrors.CorruptedData, "decode column count")
	}
	out := make(map[uint32][]byte, count)
	for i := uint32(0); i < count; i++ {
		var id, n uint32
		if err := binary.Read(rd, binary.LittleEndian, &id); err != nil {
			return nil, perrors.Wrap(err, perrors.CorruptedData, "decode column id")
		}
		if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
			return nil, perrors.Wrap(err, perrors.CorruptedData, "decode column length")
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(rd, raw); err != nil {
			return nil, perrors.Wrap(err, perrors.CorruptedData, "decode column value")
		}
		out[id] = raw
	}
	return out, nil
}
