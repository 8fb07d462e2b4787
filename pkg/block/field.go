package block

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// FieldKind enumerates the primitive shapes a block field can take.
type FieldKind int

const (
	KindMagic FieldKind = iota
	KindStructureVersion
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindBitField
	KindReference
	KindOID
	KindTime
	KindFixedBytes
	KindArray16
	KindArray32
	KindFixedString
)

// FieldSpec describes one named field of a block type: its byte
// offset and width within the page buffer, its kind, and the version
// range it's valid for (a zero VersionMax means "still current").
// The block types in pkg/table (all but PIDX, whose slot array depends
// on the page size) register a []FieldSpec here so diagnostic tools
// (CLI dumpers, tests) can address fields by name without each block
// type writing its own reflection code; the block code itself reads
// and writes fields at fixed byte offsets on the hot path.
type FieldSpec struct {
	Name       string
	Kind       FieldKind
	Offset     int
	Width      int
	VersionMin Version
	VersionMax Version // zero means unbounded
}

// Value is the result of a diagnostic field lookup: exactly one of
// the typed accessors below is meaningful, decided by Kind.
type Value struct {
	Kind  FieldKind
	Uint  uint64
	Bytes []byte
}

// Registry maps a block magic to the field table describing its
// current on-disk layout, used only by Field for diagnostics.
type Registry map[Magic][]FieldSpec

// global is populated by pkg/table's init() via Register, keeping the
// field metadata next to the block type definitions that own it while
// letting generic tools resolve it from just a magic + name pair.
var global = Registry{}

// Register adds (or replaces) the field table for a block magic.
func Register(magic Magic, fields []FieldSpec) {
	global[magic] = fields
}

// Field performs a bounds-checked, diagnostic-only lookup of a named
// field within page, which must already be known to carry magic.
func Field(page []byte, magic Magic, name string) (Value, error) {
	fields, ok := global[magic]
	if !ok {
		return Value{}, perrors.New(perrors.TypeNotFound, "no field table registered for magic %s", magic)
	}
	for _, f := range fields {
		if f.Name != name {
			continue
		}
		if f.Offset+f.Width > len(page) {
			return Value{}, perrors.New(perrors.CorruptedData, "field %s extends past page bounds", name)
		}
		return extract(page, f), nil
	}
	return Value{}, perrors.New(perrors.FieldNotFound, "no field named %q on block %s", name, magic)
}

// Fields lists the field table registered for magic, for CLI dumpers
// that want to walk every field rather than look one up by name.
func Fields(magic Magic) ([]FieldSpec, error) {
	fields, ok := global[magic]
	if !ok {
		return nil, perrors.New(perrors.TypeNotFound, "no field table registered for magic %s", magic)
	}
	return fields, nil
}

func extract(page []byte, f FieldSpec) Value {
	raw := page[f.Offset : f.Offset+f.Width]
	switch f.Kind {
	case KindUint8:
		return Value{Kind: f.Kind, Uint: uint64(raw[0])}
	case KindUint16:
		return Value{Kind: f.Kind, Uint: uint64(binary.LittleEndian.Uint16(raw))}
	case KindUint32:
		return Value{Kind: f.Kind, Uint: uint64(binary.LittleEndian.Uint32(raw))}
	case KindUint64, KindReference, KindOID, KindTime:
		return Value{Kind: f.Kind, Uint: binary.LittleEndian.Uint64(raw)}
	default:
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return Value{Kind: f.Kind, Bytes: cp}
	}
}
