package table

import (
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee/pkg/bigint"
	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTypedTable(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typed.table")
	fields := []FieldDef{
		{ID: 0, Name: "id", Type: TypeBigIntUnsigned},
		{ID: 1, Name: "count", Type: TypeUint8, Max: []byte{100}},
		{ID: 2, Name: "delta", Type: TypeInt16, Min: []byte{0x9c, 0xff}}, // -100 little-endian
		{ID: 3, Name: "name", Type: TypeString, Length: 16},
	}
	tbl, err := Create(path, 4096, fields, nil)
	require.NoError(t, err)
	tbl.schema.PrimaryKey = []uint32{0}
	return tbl
}

func TestBuildRowRoundTrip(t *testing.T) {
	tbl := newTypedTable(t)
	defer tbl.Close()

	id := bigint.One.Shl(100) // a key only a 512-bit column can hold
	values := map[uint32][]byte{
		0: id.Bytes(),
		1: {42},
		3: []byte("alice"),
	}

	row, err := tbl.BuildRow(values)
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(row))

	got, err := tbl.Get(row.Key)
	require.NoError(t, err)
	cols, err := got.Columns()
	require.NoError(t, err)

	back, err := bigint.U512FromBytes(cols[0])
	require.NoError(t, err)
	assert.Equal(t, 0, id.Cmp(back))
	assert.Equal(t, []byte{42}, cols[1])
	assert.Equal(t, []byte("alice"), cols[3])
}

func TestBuildRowEnforcesBounds(t *testing.T) {
	tbl := newTypedTable(t)
	defer tbl.Close()

	// count has Max 100.
	_, err := tbl.BuildRow(map[uint32][]byte{0: bigint.One.Bytes(), 1: {101}})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))

	// delta has Min -100; -200 little-endian is 0x38 0xff.
	_, err = tbl.BuildRow(map[uint32][]byte{0: bigint.One.Bytes(), 2: {0x38, 0xff}})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))

	// -50 is inside the bound.
	_, err = tbl.BuildRow(map[uint32][]byte{0: bigint.One.Bytes(), 2: {0xce, 0xff}})
	require.NoError(t, err)
}

func TestBuildRowRejectsBadColumns(t *testing.T) {
	tbl := newTypedTable(t)
	defer tbl.Close()

	_, err := tbl.BuildRow(map[uint32][]byte{99: {1}})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.ColumnNotFound))

	// Missing the primary-key column.
	_, err = tbl.BuildRow(map[uint32][]byte{1: {1}})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.MissingParameter))

	// Wrong width for a fixed-size column.
	_, err = tbl.BuildRow(map[uint32][]byte{0: {1, 2, 3}})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.InvalidSize))

	// Over the string length cap.
	_, err = tbl.BuildRow(map[uint32][]byte{
		0: bigint.One.Bytes(),
		3: []byte("seventeen bytes!!"),
	})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))
}

func TestBigIntBoundsUseFullWidth(t *testing.T) {
	tbl := newTypedTable(t)
	defer tbl.Close()

	max := bigint.One.Shl(200)
	tbl.schema.Columns[0].Max = max.Bytes()

	over := max.Add(bigint.One)
	_, err := tbl.BuildRow(map[uint32][]byte{0: over.Bytes()})
	require.Error(t, err)
	assert.True(t, perrors.Is(err, perrors.OutOfRange))

	_, err = tbl.BuildRow(map[uint32][]byte{0: max.Bytes()})
	require.NoError(t, err)
}
