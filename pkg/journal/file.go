package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// fileMagic is the 4-byte tag every journal data file begins with.
var fileMagic = [4]byte{'E', 'V', 'T', 'J'}

// fileHeaderSize is magic(4) + major(1) + minor(1) + pad(2).
const fileHeaderSize = 8

var currentMajor byte = 1
var currentMinor byte = 0

// dataFile is one journal-<i>.events file: its descriptor, its current
// append cursor, and the offset of its first compactable (completed or
// failed) record, if any.
type dataFile struct {
	path       string
	index      int
	f          *os.File
	nextAppend int64
	fileSize   int64
	firstHole  int64 // 0 means "no hole known"
}

// createDataFile initializes a brand-new, empty journal data file.
func createDataFile(path string, index int) (*dataFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "create journal file %s", path)
	}
	header := make([]byte, fileHeaderSize)
	copy(header[0:4], fileMagic[:])
	header[4] = currentMajor
	header[5] = currentMinor
	if _, err := f.WriteAt(header, 0); err != nil {
		f.Close()
		return nil, perrors.Wrap(err, perrors.IoError, "write journal file header")
	}
	return &dataFile{path: path, index: index, f: f, nextAppend: fileHeaderSize, fileSize: fileHeaderSize}, nil
}

// openDataFile opens an existing journal data file, validating its
// header; the caller is responsible for scanning it to recover
// nextAppend and any live events. A missing file is recreated empty:
// under file_management=delete a file is unlinked whenever its last
// live event terminates, so absence is a normal state, not an error.
func openDataFile(path string, index int) (*dataFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if os.IsNotExist(err) {
		return createDataFile(path, index)
	}
	if err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "open journal file %s", path)
	}
	header := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, perrors.Wrap(err, perrors.CorruptedData, "read journal file header %s", path)
	}
	if string(header[0:4]) != string(fileMagic[:]) {
		f.Close()
		return nil, perrors.New(perrors.CorruptedData, "journal file %s has bad magic", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, perrors.Wrap(err, perrors.IoError, "stat journal file %s", path)
	}
	return &dataFile{path: path, index: index, f: f, nextAppend: fileHeaderSize, fileSize: fi.Size()}, nil
}

func (d *dataFile) close() error {
	if d.f == nil {
		return nil
	}
	return d.f.Close()
}

// recreate brings a file back after file_management=delete unlinked
// it; the next append lands right after a fresh header.
func (d *dataFile) recreate() error {
	fresh, err := createDataFile(d.path, d.index)
	if err != nil {
		return err
	}
	d.f = fresh.f
	d.nextAppend = fileHeaderSize
	d.fileSize = fileHeaderSize
	d.firstHole = 0
	return nil
}

// scanResult is what scan() recovers from an on-disk file.
type scanResult struct {
	events    []*Event
	nextAppend int64
	firstHole int64
	truncated bool
}

// scan walks every record from the header forward. A record whose
// status is terminal (Completed/Failed) is skipped from the returned
// live events but still advances the cursor; the first such record's
// offset becomes firstHole, the compaction target. Parsing stops at
// the first structurally bad record or implausible timestamp, and
// nextAppend is reported as that record's start offset so the caller
// truncates there (spec.md section 4.9 item 4).
func (d *dataFile) scan(now int64) (scanResult, error) {
	var res scanResult
	offset := int64(fileHeaderSize)

	for offset+recordHeaderSize <= d.fileSize {
		head := make([]byte, recordHeaderSize)
		if _, err := d.f.ReadAt(head, offset); err != nil {
			break
		}
		if head[0] != recordMagic[0] || head[1] != recordMagic[1] {
			break
		}
		size := binary.LittleEndian.Uint32(head[4:8])
		if size < recordHeaderSize || int64(offset)+int64(size) > d.fileSize {
			break
		}
		sec := int64(binary.LittleEndian.Uint64(head[8:16]))
		if now != 0 && sec > now+int64(maxFutureSkew.Seconds())+1 {
			break
		}

		raw := make([]byte, size)
		if _, err := d.f.ReadAt(raw, offset); err != nil {
			break
		}
		ev, err := decodeEvent(raw)
		if err != nil {
			break
		}
		ev.file = d
		ev.offset = offset

		if !ev.Status.Live() {
			if res.firstHole == 0 {
				res.firstHole = offset
			}
		} else {
			res.events = append(res.events, ev)
		}

		offset += int64(size)
	}

	res.nextAppend = offset
	res.truncated = offset < d.fileSize
	d.nextAppend = offset
	d.firstHole = res.firstHole
	return res, nil
}

// hasRoom reports whether a record of size n fits before
// maximumFileSize and the file hasn't hit maximumEvents live records
// yet.
func (d *dataFile) hasRoom(n int, liveCount, maxEvents int, maxFileSize int64) bool {
	if liveCount >= maxEvents {
		return false
	}
	return d.nextAppend+int64(n) <= maxFileSize
}

// append writes a fully-encoded record at the current cursor and
// advances it. The record's magic is the last thing committed so a
// crash never leaves a partially-written record mistaken for valid
// (spec.md section 4.9's failure semantics): the body is written
// first, starting two bytes into the record, and the two magic bytes
// are written last.
func (d *dataFile) append(rec []byte, sync SyncMode) (int64, error) {
	if d.f == nil {
		if err := d.recreate(); err != nil {
			return 0, err
		}
	}
	offset := d.nextAppend
	if len(rec) < 2 {
		return 0, perrors.New(perrors.InvalidSize, "record too small")
	}
	if _, err := d.f.WriteAt(rec[2:], offset+2); err != nil {
		return 0, perrors.Wrap(err, perrors.IoError, "write journal record body")
	}
	if err := d.syncIfNeeded(sync); err != nil {
		return 0, err
	}
	if _, err := d.f.WriteAt(rec[0:2], offset); err != nil {
		return 0, perrors.Wrap(err, perrors.IoError, "commit journal record magic")
	}
	if err := d.syncIfNeeded(sync); err != nil {
		return 0, err
	}

	d.nextAppend = offset + int64(len(rec))
	if d.nextAppend > d.fileSize {
		d.fileSize = d.nextAppend
	}
	return offset, nil
}

// setStatus rewrites a record's status byte in place.
func (d *dataFile) setStatus(offset int64, status Status, sync SyncMode) error {
	if _, err := d.f.WriteAt([]byte{byte(status)}, offset+statusOffset); err != nil {
		return perrors.Wrap(err, perrors.IoError, "update journal record status")
	}
	return d.syncIfNeeded(sync)
}

func (d *dataFile) syncIfNeeded(mode SyncMode) error {
	switch mode {
	case SyncFull:
		if err := d.f.Sync(); err != nil {
			return perrors.Wrap(err, perrors.IoError, "fsync journal file")
		}
	case SyncFlush:
		// os.File has no userspace buffer of its own in this
		// implementation (every write goes straight to WriteAt), so
		// flush is a no-op beyond what the kernel's page cache already
		// guarantees; full durability still requires SyncFull.
	case SyncNone:
	}
	return nil
}

// readRecordAt re-reads and decodes the record at offset.
func (d *dataFile) readRecordAt(offset int64) (*Event, error) {
	head := make([]byte, recordHeaderSize)
	if _, err := d.f.ReadAt(head, offset); err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "read record header")
	}
	size := binary.LittleEndian.Uint32(head[4:8])
	raw := make([]byte, size)
	if _, err := d.f.ReadAt(raw, offset); err != nil {
		return nil, perrors.Wrap(err, perrors.IoError, "read record body")
	}
	ev, err := decodeEvent(raw)
	if err != nil {
		return nil, err
	}
	ev.file = d
	ev.offset = offset
	return ev, nil
}

// compact copies every live record down to the first hole, rewriting
// f_next_append; it never moves records across files (spec.md section
// 4.9's compaction paragraph). It returns the relocated live events so
// the caller can update its in-memory indexes.
func (d *dataFile) compact(sync SyncMode) ([]*Event, error) {
	if d.firstHole == 0 {
		return nil, nil
	}

	writeCursor := d.firstHole
	var relocated []*Event
	readCursor := d.firstHole

	for readCursor < d.nextAppend {
		head := make([]byte, recordHeaderSize)
		if _, err := d.f.ReadAt(head, readCursor); err != nil {
			return nil, perrors.Wrap(err, perrors.IoError, "compact: read header")
		}
		size := int64(binary.LittleEndian.Uint32(head[4:8]))

		if head[statusOffset] == byte(StatusCompleted) || head[statusOffset] == byte(StatusFailed) {
			readCursor += size
			continue
		}

		raw := make([]byte, size)
		if _, err := d.f.ReadAt(raw, readCursor); err != nil {
			return nil, perrors.Wrap(err, perrors.IoError, "compact: read record")
		}
		if writeCursor != readCursor {
			if _, err := d.f.WriteAt(raw, writeCursor); err != nil {
				return nil, perrors.Wrap(err, perrors.IoError, "compact: rewrite record")
			}
		}

		ev, err := decodeEvent(raw)
		if err != nil {
			return nil, err
		}
		ev.file = d
		ev.offset = writeCursor
		relocated = append(relocated, ev)

		writeCursor += size
		readCursor += size
	}

	// Terminate the live region: the tail still holds the old copies of
	// whatever was relocated, and those are well-formed records. Zeroing
	// the two magic bytes at the new append point stops any future scan
	// from walking into them and resurrecting a duplicate.
	if writeCursor+2 <= d.fileSize {
		if _, err := d.f.WriteAt([]byte{0, 0}, writeCursor); err != nil {
			return nil, perrors.Wrap(err, perrors.IoError, "compact: write end marker")
		}
	}

	d.nextAppend = writeCursor
	d.firstHole = 0
	if err := d.syncIfNeeded(sync); err != nil {
		return nil, err
	}
	return relocated, nil
}

// resetEmpty is called once every live event in the file has
// completed or failed; it applies the configured file_management
// policy.
func (d *dataFile) resetEmpty(mgmt FileManagement) (deleted bool, err error) {
	switch mgmt {
	case FileKeep:
		marker := []byte{0, 0}
		if _, err := d.f.WriteAt(marker, fileHeaderSize); err != nil {
			return false, perrors.Wrap(err, perrors.IoError, "write end marker")
		}
		d.nextAppend = fileHeaderSize
		d.firstHole = 0
		return false, nil
	case FileTruncate:
		if err := d.f.Truncate(fileHeaderSize); err != nil {
			return false, perrors.Wrap(err, perrors.IoError, "truncate journal file")
		}
		d.nextAppend = fileHeaderSize
		d.fileSize = fileHeaderSize
		d.firstHole = 0
		return false, nil
	case FileDelete:
		if err := d.f.Close(); err != nil {
			return false, perrors.Wrap(err, perrors.IoError, "close journal file before delete")
		}
		d.f = nil
		if err := os.Remove(d.path); err != nil {
			return false, perrors.Wrap(err, perrors.IoError, "delete journal file")
		}
		d.nextAppend = fileHeaderSize
		d.fileSize = fileHeaderSize
		d.firstHole = 0
		return true, nil
	}
	return false, perrors.New(perrors.InvalidParameter, "unknown file_management %q", mgmt)
}

// truncateGarbage drops anything written past nextAppend, used when
// closing a journal under file_management=truncate per spec.md's
// "truncate() on drop" failure-semantics note.
func (d *dataFile) truncateGarbage() error {
	if d.f == nil || d.fileSize <= d.nextAppend {
		return nil
	}
	if err := d.f.Truncate(d.nextAppend); err != nil {
		return perrors.Wrap(err, perrors.IoError, "truncate trailing garbage")
	}
	d.fileSize = d.nextAppend
	return nil
}
