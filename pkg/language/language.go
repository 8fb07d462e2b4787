// Package language implements the on-disk language registry: a
// 16-bit language_id mapped to a locale's country/language names and
// their 2/3-letter codes, persisted in an INI-style file with one
// section per id (spec.md section 4.8).
package language

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/thanhpk/randstr"

	"github.com/prinbee/prinbee/pkg/perrors"
)

// Entry is one locale record.
type Entry struct {
	ID               uint16
	Country          string
	Language         string
	Country2Letters  string
	Language2Letters string
	Language3Letters string
}

// Key is the registry lookup key: <lang-2-or-3>_<country-2?>, per
// spec.md section 4.8.
func (e Entry) Key() string {
	lang := e.Language2Letters
	if lang == "" {
		lang = e.Language3Letters
	}
	if e.Country2Letters == "" {
		return lang
	}
	return lang + "_" + e.Country2Letters
}

// DuplicatePolicy controls how Load reacts to two entries sharing a
// Key.
type DuplicatePolicy int

const (
	// DuplicateForbidden fails the load outright.
	DuplicateForbidden DuplicatePolicy = iota
	// DuplicateSilent keeps the first entry seen and drops the rest
	// without comment.
	DuplicateSilent
	// DuplicateVerbose behaves like DuplicateSilent but records every
	// dropped id so the caller can report them.
	DuplicateVerbose
)

// Registry holds the loaded language table, indexed both by id and by
// key.
type Registry struct {
	byID      map[uint16]Entry
	byKey     map[string]uint16
	Dropped   []uint16 // populated under DuplicateVerbose
	path      string
	duplicate DuplicatePolicy
}

// New returns an empty registry with the given duplicate-detection
// policy.
func New(policy DuplicatePolicy) *Registry {
	return &Registry{
		byID:      make(map[uint16]Entry),
		byKey:     make(map[string]uint16),
		duplicate: policy,
	}
}

// Get looks up an entry by id.
func (r *Registry) Get(id uint16) (Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Lookup finds an entry by its key (spec.md section 4.8's
// <lang>_<country> pattern).
func (r *Registry) Lookup(key string) (Entry, bool) {
	id, ok := r.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return r.byID[id], true
}

// All returns every entry, ordered by id.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put inserts or replaces an entry by id, enforcing the registry's
// duplicate-key policy against every other id.
func (r *Registry) Put(e Entry) error {
	key := e.Key()
	if existingID, ok := r.byKey[key]; ok && existingID != e.ID {
		switch r.duplicate {
		case DuplicateForbidden:
			return perrors.New(perrors.InvalidEntity, "language key %q already used by id %d", key, existingID)
		case DuplicateVerbose:
			r.Dropped = append(r.Dropped, e.ID)
			return nil
		case DuplicateSilent:
			return nil
		}
	}
	r.byID[e.ID] = e
	r.byKey[key] = e.ID
	return nil
}

// UnusedIDs returns every id in 1..65535 not currently assigned, used
// by the language-manager CLI tool to pick ids for newly merged
// locales (spec.md section 6).
func (r *Registry) UnusedIDs() []uint16 {
	var out []uint16
	for id := 1; id <= 65535; id++ {
		if _, ok := r.byID[uint16(id)]; !ok {
			out = append(out, uint16(id))
		}
	}
	return out
}

// sectionPrefix is the literal section-name prefix spec.md section 4.8
// specifies: "l::<numeric-id>". This isn't expressible as a TOML table
// header (TOML nests with dotted or quoted keys, never a literal "::"
// separator), so the registry file is read and written with a small
// line-oriented INI parser rather than the toml package the rest of
// this module's config layer uses; see the one-off encode/decode
// below.
const sectionPrefix = "l::"

// Load reads a registry from path.
func Load(path string, policy DuplicatePolicy) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.FileNotFound, "open language file %s", path)
	}
	defer f.Close()

	r := New(policy)
	r.path = path
	if err := decodeINI(f, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Save writes the registry back to its source path (or to path, if
// given) atomically: the new content is written to a temporary file,
// the old file is renamed to a ".bak" sibling, and the temporary file
// is renamed into place (spec.md section 4.8: "saving is atomic via a
// .bak rename").
func (r *Registry) Save(path string) error {
	if path == "" {
		path = r.path
	}
	if path == "" {
		return perrors.New(perrors.InvalidParameter, "language registry has no associated path")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return perrors.Wrap(err, perrors.InvalidParameter, "expand language file path")
	}

	tmp := expanded + "." + randstr.Hex(4) + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return perrors.Wrap(err, perrors.IoError, "create temp language file")
	}
	if err := encodeINI(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return perrors.Wrap(err, perrors.IoError, "close temp language file")
	}

	if _, err := os.Stat(expanded); err == nil {
		if err := os.Rename(expanded, expanded+".bak"); err != nil {
			return perrors.Wrap(err, perrors.IoError, "back up existing language file")
		}
	}
	if err := os.Rename(tmp, expanded); err != nil {
		return perrors.Wrap(err, perrors.IoError, "rename new language file into place")
	}
	r.path = expanded
	return nil
}

func decodeINI(r io.Reader, reg *Registry) error {
	scanner := bufio.NewScanner(r)
	var current *Entry
	lineNo := 0

	flush := func() error {
		if current == nil {
			return nil
		}
		return reg.Put(*current)
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if err := flush(); err != nil {
				return err
			}
			name := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if !strings.HasPrefix(name, sectionPrefix) {
				return perrors.New(perrors.InvalidToken, "language file line %d: unexpected section %q", lineNo, name)
			}
			idStr := strings.TrimPrefix(name, sectionPrefix)
			id, err := strconv.ParseUint(idStr, 10, 16)
			if err != nil {
				return perrors.Wrap(err, perrors.InvalidNumber, "language file line %d: bad id %q", lineNo, idStr)
			}
			current = &Entry{ID: uint16(id)}
			continue
		}

		if current == nil {
			return perrors.New(perrors.InvalidToken, "language file line %d: key outside any section", lineNo)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return perrors.New(perrors.InvalidToken, "language file line %d: expected key=value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "country":
			current.Country = value
		case "language":
			current.Language = value
		case "country_2_letters":
			current.Country2Letters = value
		case "language_2_letters":
			current.Language2Letters = value
		case "language_3_letters":
			current.Language3Letters = value
		default:
			return perrors.New(perrors.InvalidToken, "language file line %d: unknown key %q", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan language file")
	}
	return flush()
}

func encodeINI(w io.Writer, reg *Registry) error {
	bw := bufio.NewWriter(w)
	for _, e := range reg.All() {
		fmt.Fprintf(bw, "[%s%d]\n", sectionPrefix, e.ID)
		fmt.Fprintf(bw, "country = %s\n", e.Country)
		fmt.Fprintf(bw, "language = %s\n", e.Language)
		fmt.Fprintf(bw, "country_2_letters = %s\n", e.Country2Letters)
		fmt.Fprintf(bw, "language_2_letters = %s\n", e.Language2Letters)
		fmt.Fprintf(bw, "language_3_letters = %s\n", e.Language3Letters)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
