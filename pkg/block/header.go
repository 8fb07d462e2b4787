package block

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// Version is the two packed 16-bit numbers every page carries right
// after its magic.
type Version struct {
	Major uint16
	Minor uint16
}

// HeaderSize is the fixed 8-byte (magic + version) prefix every page
// begins with.
const HeaderSize = 8

// CurrentVersion is written onto every freshly-allocated block of any
// type; individual block types may bump this if their layout changes.
var CurrentVersion = Version{Major: 1, Minor: 0}

// ReadMagic reads the 4-byte magic at the start of a page buffer.
func ReadMagic(page []byte) (Magic, error) {
	if len(page) < HeaderSize {
		return Magic{}, perrors.New(perrors.InvalidSize, "page too small for a header: %d bytes", len(page))
	}
	var m Magic
	copy(m[:], page[0:4])
	return m, nil
}

// ReadVersion reads the version pair following the magic.
func ReadVersion(page []byte) (Version, error) {
	if len(page) < HeaderSize {
		return Version{}, perrors.New(perrors.InvalidSize, "page too small for a header: %d bytes", len(page))
	}
	return Version{
		Major: binary.LittleEndian.Uint16(page[4:6]),
		Minor: binary.LittleEndian.Uint16(page[6:8]),
	}, nil
}

// WriteHeader stamps magic and version onto a page buffer. The Dbfile
// allocator calls this once, immediately after zero-filling a new
// page, before constructing the typed block wrapper.
func WriteHeader(page []byte, magic Magic, version Version) error {
	if len(page) < HeaderSize {
		return perrors.New(perrors.InvalidSize, "page too small for a header: %d bytes", len(page))
	}
	copy(page[0:4], magic[:])
	binary.LittleEndian.PutUint16(page[4:6], version.Major)
	binary.LittleEndian.PutUint16(page[6:8], version.Minor)
	return nil
}
