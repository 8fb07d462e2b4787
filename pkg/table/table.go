// Package table implements the table file format built on top of
// pkg/dbfile's page cache: the PTBL header, the SCHM schema chain, the
// PIDX primary index with its slot-0-in-header shortcut, and the row
// and cursor operations layered over a simple DATA-block chain per
// bucket.
package table

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"
	"os"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/dbfile"
	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/prinbee/prinbee/pkg/phash"
	"github.com/prinbee/prinbee/pkg/plog"
)

// Ref is a dbfile.Ref: either a file offset of an existing
// page, or dbfile.NullRef.
type Ref = dbfile.Ref

// NullRef is the null reference.
const NullRef = dbfile.NullRef

// OID is a row's object identifier, unique and monotonically assigned
// within a table for its lifetime (spec.md section 3).
type OID uint64

// DefaultPageSize is a conventional value for Create's pageSize
// argument; Create does not apply it itself. spec.md's scenario S2 exercises 4 KiB pages
// explicitly, but nothing else in this package depends on the value.
const DefaultPageSize = 4096

// Table ties together a table file's dbfile page cache, its header,
// its schema, and its primary index.
type Table struct {
	df     *dbfile.Dbfile
	header *ptblView
	schema *Schema
	log    plog.View
}

// Create initializes a brand-new table file at path: writes the PTBL
// header, a schema chain holding fields, and an empty primary index,
// and returns the open Table.
func Create(path string, pageSize uint32, fields []FieldDef, log plog.View) (*Table, error) {
	if pageSize < block.HeaderSize+ptblBodySize {
		return nil, perrors.New(perrors.InvalidSize, "page size %d too small for a PTBL header", pageSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "create table file %s", path)
	}

	df, err := dbfile.New(f, pageSize, log)
	if err != nil {
		f.Close()
		return nil, err
	}

	hb, err := df.InitFirstBlock(block.PTBL)
	if err != nil {
		return nil, err
	}
	if err := storePTBLBody(hb.Page, ptblBody{BlockSize: pageSize}); err != nil {
		return nil, err
	}
	hb.MarkDirty()

	header, err := newPTBLView(hb)
	if err != nil {
		return nil, err
	}
	df.SetFreeList(header)

	pidx, err := df.AllocateBlock(block.PIDX)
	if err != nil {
		return nil, err
	}
	header.SetPrimaryIndexBlock(pidx.Ref)

	schema, err := NewSchema(df, fields)
	if err != nil {
		return nil, err
	}
	header.SetSchemaRef(schema.FirstRef())

	if err := df.Sync(true); err != nil {
		return nil, err
	}

	return &Table{df: df, header: header, schema: schema, log: logOrDiscard(log)}, nil
}

// Open reopens an existing table file, reading its PTBL header and
// schema chain.
func Open(path string, log plog.View) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "open table file %s", path)
	}

	probe := make([]byte, block.HeaderSize+4)
	if _, err := f.ReadAt(probe, 0); err != nil {
		f.Close()
		return nil, perrors.Wrap(err, perrors.IoError, "read table header probe")
	}
	blockSize := binary.LittleEndian.Uint32(probe[block.HeaderSize:])

	df, err := dbfile.New(f, blockSize, log)
	if err != nil {
		f.Close()
		return nil, err
	}

	hb, err := df.GetBlock(dbfile.NullRef)
	if err != nil {
		return nil, err
	}
	header, err := newPTBLView(hb)
	if err != nil {
		return nil, err
	}
	df.SetFreeList(header)

	schema, err := LoadSchema(df, header.SchemaRef())
	if err != nil {
		return nil, err
	}

	return &Table{df: df, header: header, schema: schema, log: logOrDiscard(log)}, nil
}

// Close flushes and closes the underlying file.
func (t *Table) Close() error {
	return t.df.Close()
}

// Schema returns the table's current column definitions.
func (t *Table) Schema() *Schema {
	return t.schema
}

// bucketCount is N = page_size / sizeof(ref) from spec.md section 3.
func (t *Table) bucketCount() uint64 {
	return uint64(t.df.PageSize()) / 8
}

// fingerprintBucket folds a primary key down to its bucket index.
func (t *Table) fingerprintBucket(key []byte) uint64 {
	return phash.Sum64(key) % t.bucketCount()
}

func logOrDiscard(log plog.View) plog.View {
	if log == nil {
		return plog.Discard
	}
	return log
}
