package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// counterFile is the 8-byte little-endian counter backing
// counters.seq, the source of unique external-attachment ids
// (spec.md section 4.9: "Unique ids come from a counter file
// counters.seq").
type counterFile struct {
	mu   sync.Mutex
	path string
	next uint64
}

func openCounterFile(dir string) (*counterFile, error) {
	path := filepath.Join(dir, "counters.seq")
	c := &counterFile{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) < 8 {
			return nil, perrors.New(perrors.CorruptedData, "counters.seq is truncated")
		}
		c.next = binary.LittleEndian.Uint64(data[:8])
	case os.IsNotExist(err):
		c.next = 1
		if err := c.persist(); err != nil {
			return nil, err
		}
	default:
		return nil, perrors.Wrap(err, perrors.IoError, "read counters.seq")
	}
	return c, nil
}

// Next returns the next unique external-attachment id (truncated to
// 31 bits, since attachment_offsets reserves the high bit as the
// external-vs-inline flag) and durably advances the counter.
func (c *counterFile) Next() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.next
	c.next++
	if err := c.persist(); err != nil {
		return 0, err
	}
	return uint32(id & 0x7fffffff), nil
}

func (c *counterFile) persist() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], c.next)
	if err := os.WriteFile(c.path, buf[:], 0o644); err != nil {
		return perrors.Wrap(err, perrors.IoError, "write counters.seq")
	}
	return nil
}
