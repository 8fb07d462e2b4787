package journal

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/binary"
	"time"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// Status is an event's lifecycle state (spec.md section 4.9).
type Status uint8

const (
	StatusReady        Status = 1
	StatusForwarded    Status = 2
	StatusAcknowledged Status = 3
	StatusCompleted    Status = 4
	StatusFailed       Status = 100
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusForwarded:
		return "forwarded"
	case StatusAcknowledged:
		return "acknowledged"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates every status change add_event's state
// machine permits (spec.md section 4.9 item 2).
var legalTransitions = map[Status]map[Status]bool{
	StatusReady: {
		StatusForwarded: true,
		StatusFailed:    true,
		StatusCompleted: true,
	},
	StatusForwarded: {
		StatusAcknowledged: true,
		StatusFailed:       true,
		StatusCompleted:    true,
	},
	StatusAcknowledged: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// Live reports whether a status is one next_event should still yield
// (Ready, Forwarded, or Acknowledged).
func (s Status) Live() bool {
	return s == StatusReady || s == StatusForwarded || s == StatusAcknowledged
}

// recordMagic is the 2-byte per-record tag, "ev".
var recordMagic = [2]byte{'e', 'v'}

// recordHeaderSize is the fixed-width prefix before the variable-length
// attachment-offset table, request id, and inline attachment bytes.
const recordHeaderSize = 2 + 1 + 1 + 4 + 8 + 8 + 1 + 7

// statusOffset is the byte offset of the status field within a record,
// used by status-transition updates that rewrite it in place without
// re-encoding the whole record.
const statusOffset = 2

// Attachment describes one of an event's attachments, either inline
// (its bytes live in the record itself) or external (stored as
// <dir>/<id>.bin).
type Attachment struct {
	ExternalID uint32 // meaningful only when External is true
	External   bool
	data       []byte // inline bytes, or loaded lazily for external ones
	size       int64
}

// IsFile reports whether the attachment is stored as an external file.
func (a *Attachment) IsFile() bool { return a.External }

// Size returns the attachment's byte length.
func (a *Attachment) Size() int64 {
	if a.External {
		return a.size
	}
	return int64(len(a.data))
}

// Bytes returns the attachment's inline payload. External attachments
// must be read through (*Journal).ReadAttachment.
func (a *Attachment) Bytes() []byte { return a.data }

// Event is a decoded journal record.
type Event struct {
	Status      Status
	RequestID   []byte
	Time        time.Time
	Attachments []Attachment

	file   *dataFile
	offset int64
}

// attachmentOffsetExternalBit marks an attachment_offsets entry as
// carrying an external-file id rather than an inline byte offset
// (spec.md section 4.9: "high bit set -> low 31 bits are an
// external-file id").
const attachmentOffsetExternalBit = 1 << 31

func encodeEvent(status Status, requestID []byte, t time.Time, inline [][]byte, external []uint32) ([]byte, error) {
	if len(requestID) == 0 || len(requestID) > 255 {
		return nil, perrors.New(perrors.InvalidParameter, "request_id must be 1..255 bytes, got %d", len(requestID))
	}
	attachmentCount := len(inline) + len(external)
	if attachmentCount > 255 {
		return nil, perrors.New(perrors.Full, "event carries %d attachments, max 255", attachmentCount)
	}

	offsetTableSize := attachmentCount * 4
	headerAndOffsets := recordHeaderSize + offsetTableSize
	requestIDEnd := headerAndOffsets + len(requestID)

	inlineTotal := 0
	for _, b := range inline {
		inlineTotal += len(b)
	}
	total := requestIDEnd + inlineTotal

	buf := make([]byte, total)
	copy(buf[0:2], recordMagic[:])
	buf[2] = byte(status)
	buf[3] = byte(len(requestID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(total))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.Unix()))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(t.Nanosecond()))
	buf[24] = byte(attachmentCount)
	// buf[25:32] stays zero (pad)

	offTableStart := recordHeaderSize
	inlineCursor := requestIDEnd
	idx := 0
	for _, b := range inline {
		off := uint32(inlineCursor)
		binary.LittleEndian.PutUint32(buf[offTableStart+idx*4:offTableStart+idx*4+4], off)
		copy(buf[inlineCursor:inlineCursor+len(b)], b)
		inlineCursor += len(b)
		idx++
	}
	for _, extID := range external {
		binary.LittleEndian.PutUint32(buf[offTableStart+idx*4:offTableStart+idx*4+4], extID|attachmentOffsetExternalBit)
		idx++
	}

	copy(buf[headerAndOffsets:requestIDEnd], requestID)
	return buf, nil
}

// decodeEvent parses a single record starting at raw[0]. raw must
// contain at least the full record (callers read recordHeaderSize
// bytes first to learn the declared size, then re-read that many).
func decodeEvent(raw []byte) (*Event, error) {
	if len(raw) < recordHeaderSize {
		return nil, perrors.New(perrors.UnexpectedEof, "record shorter than header")
	}
	if raw[0] != recordMagic[0] || raw[1] != recordMagic[1] {
		return nil, perrors.New(perrors.CorruptedData, "bad record magic")
	}
	status := Status(raw[2])
	requestIDSize := int(raw[3])
	size := binary.LittleEndian.Uint32(raw[4:8])
	if int(size) > len(raw) {
		return nil, perrors.New(perrors.UnexpectedEof, "record declares %d bytes, have %d", size, len(raw))
	}
	sec := int64(binary.LittleEndian.Uint64(raw[8:16]))
	nsec := int64(binary.LittleEndian.Uint64(raw[16:24]))
	attachmentCount := int(raw[24])

	offTableStart := recordHeaderSize
	offTableEnd := offTableStart + attachmentCount*4
	if offTableEnd > len(raw) {
		return nil, perrors.New(perrors.UnexpectedEof, "attachment offset table past record end")
	}
	offsets := make([]uint32, attachmentCount)
	for i := 0; i < attachmentCount; i++ {
		offsets[i] = binary.LittleEndian.Uint32(raw[offTableStart+i*4 : offTableStart+i*4+4])
	}

	requestIDStart := offTableEnd
	requestIDEnd := requestIDStart + requestIDSize
	if requestIDEnd > len(raw) {
		return nil, perrors.New(perrors.UnexpectedEof, "request id past record end")
	}
	requestID := append([]byte(nil), raw[requestIDStart:requestIDEnd]...)

	attachments := make([]Attachment, attachmentCount)
	var inlineOffsets []int
	for _, off := range offsets {
		if off&attachmentOffsetExternalBit == 0 {
			inlineOffsets = append(inlineOffsets, int(off))
		}
	}
	inlineIdx := 0
	for i, off := range offsets {
		if off&attachmentOffsetExternalBit != 0 {
			attachments[i] = Attachment{External: true, ExternalID: off &^ attachmentOffsetExternalBit}
			continue
		}
		start := int(off)
		var end int
		if inlineIdx+1 < len(inlineOffsets) {
			end = inlineOffsets[inlineIdx+1]
		} else {
			end = int(size)
		}
		if start < 0 || end > len(raw) || start > end {
			return nil, perrors.New(perrors.CorruptedData, "inline attachment bounds invalid")
		}
		attachments[i] = Attachment{data: append([]byte(nil), raw[start:end]...)}
		inlineIdx++
	}

	return &Event{
		Status:      status,
		RequestID:   requestID,
		Time:        time.Unix(sec, nsec).UTC(),
		Attachments: attachments,
	}, nil
}
