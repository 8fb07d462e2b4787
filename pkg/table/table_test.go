package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, pageSize uint32) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.table")
	fields := []FieldDef{
		{ID: 0, Name: "id", Type: TypeUint64},
		{ID: 1, Name: "value", Type: TypeString},
	}
	tbl, err := Create(path, pageSize, fields, nil)
	require.NoError(t, err)
	return tbl
}

// Property 7: get_top_index(k) after set_top_index(k, x) returns x,
// including k == 0 (the PTBL fallback).
func TestTopIndexRoundTrip(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	n := tbl.bucketCount()
	for _, k := range []uint64{0, 1, n / 2, n - 1} {
		require.NoError(t, tbl.SetTopIndex(k, Ref(0x2000+k)))
		got, err := tbl.GetTopIndex(k)
		require.NoError(t, err)
		require.Equal(t, Ref(0x2000+k), got)
	}
}

// S2 — Primary-index slot 0 fallback: create a table with 4 KiB
// pages, set the bucket-0 root, close, reopen, and confirm the value
// round-trips through the PTBL header rather than the PIDX page, and
// that the PIDX page's own slot 0 still carries its own magic (i.e.
// nothing was ever written into the header region of the PIDX page).
func TestS2PrimaryIndexSlotZeroFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2.table")
	fields := []FieldDef{{ID: 0, Name: "id", Type: TypeUint64}}
	tbl, err := Create(path, 4096, fields, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.SetTopIndex(0, Ref(0x2000)))
	pidxRef := tbl.header.PrimaryIndexBlock()
	require.NoError(t, tbl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	page := make([]byte, 4096)
	_, err = f.ReadAt(page, int64(pidxRef))
	require.NoError(t, err)
	magic, err := block.ReadMagic(page)
	require.NoError(t, err)
	require.Equal(t, block.PIDX, magic)

	tbl2, err := Open(path, nil)
	require.NoError(t, err)
	defer tbl2.Close()

	got, err := tbl2.GetTopIndex(0)
	require.NoError(t, err)
	require.Equal(t, Ref(0x2000), got)
}

func TestInsertGetUpdateDelete(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	row := tbl.RowNew()
	row.Key = []byte("alice")
	row.Value = []byte("first")
	require.NoError(t, tbl.Insert(row))

	got, err := tbl.Get([]byte("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got.Value)

	err = tbl.Insert(&Row{Key: []byte("alice"), Value: []byte("dup")})
	require.Error(t, err)
	require.True(t, perrors.Is(err, perrors.RowAlreadyExists))

	require.NoError(t, tbl.Update(&Row{Key: []byte("alice"), Value: []byte("second")}))
	got, err = tbl.Get([]byte("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got.Value)

	require.NoError(t, tbl.Delete([]byte("alice")))
	_, err = tbl.Get([]byte("alice"))
	require.Error(t, err)
}

func TestCommitInsertsThenUpdates(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	require.NoError(t, tbl.Commit(&Row{Key: []byte("k"), Value: []byte("v1")}))
	require.NoError(t, tbl.Commit(&Row{Key: []byte("k"), Value: []byte("v2")}))

	got, err := tbl.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got.Value)
}

func TestCursorVisitsAllInsertedRows(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	for _, k := range keys {
		require.NoError(t, tbl.Insert(&Row{Key: k, Value: k}))
	}

	cur := tbl.Select(Conditions{})
	seen := map[string]bool{}
	for {
		row, err := cur.Next()
		require.NoError(t, err)
		if row == nil {
			break
		}
		seen[string(row.Key)] = true
	}
	for _, k := range keys {
		require.True(t, seen[string(k)], "expected to see key %q", k)
	}
}

func TestSchemaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.table")
	fields := []FieldDef{
		{ID: 0, Name: "id", Type: TypeUint64},
		{ID: 1, Name: "name", Type: TypeString, Length: 64},
	}
	tbl, err := Create(path, 4096, fields, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	tbl2, err := Open(path, nil)
	require.NoError(t, err)
	defer tbl2.Close()

	require.Len(t, tbl2.Schema().Columns, 2)
	require.Equal(t, "name", tbl2.Schema().Columns[1].Name)
}

// TestOIDAllocationIsMonotonicThenReusesFreedOIDs exercises row_insert's
// documented OID policy: the free-OID list, when non-empty, is drawn
// from ahead of bumping last_oid.
func TestOIDAllocationIsMonotonicThenReusesFreedOIDs(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	row1 := &Row{Key: []byte("a"), Value: []byte("x")}
	require.NoError(t, tbl.Insert(row1))
	row2 := &Row{Key: []byte("b"), Value: []byte("y")}
	require.NoError(t, tbl.Insert(row2))
	require.Equal(t, row1.OID+1, row2.OID)

	require.NoError(t, tbl.PushFreeOID(row1.OID))
	oid, err := tbl.allocateOID()
	require.NoError(t, err)
	require.Equal(t, row1.OID, oid)
}

// Deleting a row returns its OID to the free list, so the next insert
// reuses it instead of bumping last_oid.
func TestDeleteRecyclesOID(t *testing.T) {
	tbl := newTestTable(t, 4096)
	defer tbl.Close()

	row := &Row{Key: []byte("victim"), Value: []byte("v")}
	require.NoError(t, tbl.Insert(row))
	freed := row.OID

	require.NoError(t, tbl.Delete([]byte("victim")))

	replacement := &Row{Key: []byte("replacement"), Value: []byte("w")}
	require.NoError(t, tbl.Insert(replacement))
	require.Equal(t, freed, replacement.OID)
}

