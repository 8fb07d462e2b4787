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

// Conditions selects which rows a Cursor should yield. An empty
// Conditions matches every row in the table. PrimaryKey, when set,
// restricts the scan to a single bucket's chain instead of all of
// them — still a full chain walk, since bucket membership doesn't
// imply key order (spec.md leaves the branch structure open; see
// pkg/table's row.go).
type Conditions struct {
	PrimaryKey []byte
}

// Cursor is a finite, forward-only, restartable lazy sequence of rows
// matching a Conditions object (spec.md section 4.7). It borrows the
// table and walks DATA-block chains on demand; it never materializes
// the whole result set.
type Cursor struct {
	t       *Table
	cond    Conditions
	buckets []uint64
	bi      int
	next    Ref
	started bool
}

// Select returns a cursor over rows matching cond.
func (t *Table) Select(cond Conditions) *Cursor {
	c := &Cursor{t: t, cond: cond}
	if cond.PrimaryKey != nil {
		c.buckets = []uint64{t.fingerprintBucket(cond.PrimaryKey)}
	} else {
		n := t.bucketCount()
		c.buckets = make([]uint64, n)
		for i := range c.buckets {
			c.buckets[i] = uint64(i)
		}
	}
	return c
}

// Restart rewinds the cursor to the beginning of its result set.
func (c *Cursor) Restart() {
	c.bi = 0
	c.next = NullRef
	c.started = false
}

// Next advances the cursor and returns the next matching row, or
// (nil, nil) once the sequence is exhausted.
func (c *Cursor) Next() (*Row, error) {
	for {
		if !c.started || c.next == NullRef {
			if c.bi >= len(c.buckets) {
				return nil, nil
			}
			root, err := c.t.GetTopIndex(c.buckets[c.bi])
			if err != nil {
				return nil, err
			}
			c.bi++
			c.next = root
			c.started = true
			if c.next == NullRef {
				continue
			}
		}

		ref := c.next
		b, err := c.t.df.GetBlock(ref)
		if err != nil {
			return nil, err
		}
		if b.Magic != block.DATA {
			return nil, perrors.New(perrors.CorruptedData, "bucket chain entry %d is not a DATA block (magic %s)", ref, b.Magic)
		}
		c.next = Ref(binary.LittleEndian.Uint64(b.Page[dataNextOffset : dataNextOffset+8]))

		row, err := decodeDataBlock(b)
		if err != nil {
			return nil, err
		}
		if c.cond.PrimaryKey != nil && string(row.Key) != string(c.cond.PrimaryKey) {
			continue
		}
		return row, nil
	}
}
