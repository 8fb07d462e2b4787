// Package perrors implements the closed error-kind taxonomy used
// throughout the prinbee storage core. Every public entry point in
// pkg/bigint, pkg/block, pkg/dbfile, pkg/table, pkg/journal and
// pkg/language fails by returning one of these kinds instead of
// panicking; process abort is reserved for invariant violations that
// leave in-memory state unrecoverable (a corrupted page cache).
package perrors

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the error categories from the storage core's
// error-handling design.
type Kind int

const (
	_ Kind = iota

	// LogicError is raised when a caller violates a contract: division
	// by zero, changing an id that was already assigned, and similar.
	LogicError
	// OutOfRange is raised when a numeric or index argument falls
	// outside the domain the operation accepts.
	OutOfRange
	// InvalidParameter is raised when a public API argument fails a
	// validity check (bad filename, size, identifier length).
	InvalidParameter
	// InvalidNumber is raised by numeric parsing/conversion.
	InvalidNumber
	// InvalidToken is raised by lexical parsing of a literal.
	InvalidToken
	// InvalidSize is raised when a size argument/field is malformed.
	InvalidSize
	// InvalidType is raised when a type tag doesn't match what's expected.
	InvalidType
	// InvalidEntity is raised when a described entity is malformed.
	InvalidEntity
	// InvalidName is raised when a name fails validation.
	InvalidName
	// FileNotFound is raised when a required file is missing.
	FileNotFound
	// FileNotOpened is raised when an operation requires an open file handle.
	FileNotOpened
	// FileStillInUse is raised when a file cannot be removed or replaced
	// because something still references it.
	FileStillInUse
	// CorruptedData is raised when a block or record has an unexpected
	// magic or is otherwise self-inconsistent.
	CorruptedData
	// BlockNotFound is raised when a page reference doesn't resolve.
	BlockNotFound
	// PageNotFound is raised when a requested page offset is out of file bounds.
	PageNotFound
	// RowNotFound is raised when a row lookup fails.
	RowNotFound
	// ColumnNotFound is raised when a schema column lookup fails.
	ColumnNotFound
	// SchemaNotFound is raised when a schema version lookup fails.
	SchemaNotFound
	// FieldNotFound is raised when block.Field finds no field of that name.
	FieldNotFound
	// TypeNotFound is raised when a block type's field table is unknown.
	TypeNotFound
	// RowAlreadyExists is raised when a primary key collides on insert.
	RowAlreadyExists
	// IdAlreadyAssigned is raised when an id is reassigned.
	IdAlreadyAssigned
	// DefinedTwice is raised on duplicate definitions.
	DefinedTwice
	// NodeAlreadyInTree is raised on duplicate index insertion.
	NodeAlreadyInTree
	// Full is raised when a fixed-capacity container is at its upper bound.
	Full
	// IoError wraps an underlying read/write/fsync/link/symlink failure.
	IoError
	// UnexpectedEof is raised when a stream ends before a structure is complete.
	UnexpectedEof
	// UnexpectedToken is raised by a parser encountering unexpected input.
	UnexpectedToken
	// MissingParameter is raised when a required parameter is absent.
	MissingParameter
	// UnknownParameter is raised when an unrecognized parameter is given.
	UnknownParameter
)

var kindNames = map[Kind]string{
	LogicError:        "logic_error",
	OutOfRange:        "out_of_range",
	InvalidParameter:  "invalid_parameter",
	InvalidNumber:     "invalid_number",
	InvalidToken:      "invalid_token",
	InvalidSize:       "invalid_size",
	InvalidType:       "invalid_type",
	InvalidEntity:     "invalid_entity",
	InvalidName:       "invalid_name",
	FileNotFound:      "file_not_found",
	FileNotOpened:     "file_not_opened",
	FileStillInUse:    "file_still_in_use",
	CorruptedData:     "corrupted_data",
	BlockNotFound:     "block_not_found",
	PageNotFound:      "page_not_found",
	RowNotFound:       "row_not_found",
	ColumnNotFound:    "column_not_found",
	SchemaNotFound:    "schema_not_found",
	FieldNotFound:     "field_not_found",
	TypeNotFound:      "type_not_found",
	RowAlreadyExists:  "row_already_exists",
	IdAlreadyAssigned: "id_already_assigned",
	DefinedTwice:      "defined_twice",
	NodeAlreadyInTree: "node_already_in_tree",
	Full:              "full",
	IoError:           "io_error",
	UnexpectedEof:     "unexpected_eof",
	UnexpectedToken:   "unexpected_token",
	MissingParameter:  "missing_parameter",
	UnknownParameter:  "unknown_parameter",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the concrete error value returned by the storage core. It
// carries a Kind so callers can branch on error category with Is, and
// a wrapped cause (via github.com/pkg/errors) so diagnostics keep a
// stack trace from the point the error was first raised.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an existing error, preserving it
// as the cause chain.
func Wrap(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(err)}
}

// Is reports whether err is a *Error of the given kind, unwrapping
// through any wrapping chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the Kind carried by err, or 0 if err is not a *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.kind
	}
	return 0
}
