package language

/**
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2026 prinbee.io Pty Ltd
 */

import (
	"encoding/hex"
	"math/rand"

	"github.com/thanhpk/randstr"
)

// Candidate is a locale discovered from an external source (e.g. the
// Unicode CLDR locale set) not yet present in the registry.
type Candidate struct {
	Country          string
	Language         string
	Country2Letters  string
	Language2Letters string
	Language3Letters string
}

// Assign merges candidates into the registry, handing each a
// previously unused id. Ids are drawn in random order rather than
// sequentially, matching the language-manager tool's documented
// behavior (spec.md section 6); the shuffle itself is seeded from
// randstr.Hex so two runs of the tool don't pick the same order from
// the same process-start seed.
func (r *Registry) Assign(candidates []Candidate) ([]Entry, error) {
	unused := r.UnusedIDs()
	shuffle(unused, seedFromRandstr())

	assigned := make([]Entry, 0, len(candidates))
	for i, c := range candidates {
		if i >= len(unused) {
			break
		}
		e := Entry{
			ID:               unused[i],
			Country:          c.Country,
			Language:         c.Language,
			Country2Letters:  c.Country2Letters,
			Language2Letters: c.Language2Letters,
			Language3Letters: c.Language3Letters,
		}
		if err := r.Put(e); err != nil {
			return nil, err
		}
		assigned = append(assigned, e)
	}
	return assigned, nil
}

func seedFromRandstr() int64 {
	raw, err := hex.DecodeString(randstr.Hex(8))
	if err != nil || len(raw) < 8 {
		return 1
	}
	var seed int64
	for _, b := range raw[:8] {
		seed = seed<<8 | int64(b)
	}
	if seed == 0 {
		seed = 1
	}
	return seed
}

func shuffle(ids []uint16, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}
