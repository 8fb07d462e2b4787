package dbfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee/pkg/block"
	"github.com/stretchr/testify/require"
)

// memFreeList is a minimal FreeList used by tests that don't need a
// full PTBL header block.
type memFreeList struct {
	ref Ref
}

func (m *memFreeList) First() Ref     { return m.ref }
func (m *memFreeList) SetFirst(r Ref) { m.ref = r }

func newTestDbfile(t *testing.T) *Dbfile {
	t.Helper()
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "test.table"))
	require.NoError(t, err)

	d, err := New(f, 4096, nil)
	require.NoError(t, err)
	// Ref 0 always carries the table header in real usage, so data
	// blocks never sit at the null reference.
	_, err = d.InitFirstBlock(block.PTBL)
	require.NoError(t, err)
	d.SetFreeList(&memFreeList{})
	return d
}

// Property 6: for any block B returned by GetBlock(r): B.Ref == r,
// B.Magic matches the expected type, FreeBlock(B) followed by
// AllocateBlock(T) returns a block at offset r with magic T.
func TestAllocateGetFreeRoundTrip(t *testing.T) {
	d := newTestDbfile(t)

	b, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	require.Equal(t, block.DATA, b.Magic)
	ref := b.Ref

	got, err := d.GetBlock(ref)
	require.NoError(t, err)
	require.Equal(t, ref, got.Ref)
	require.Equal(t, block.DATA, got.Magic)

	require.NoError(t, d.FreeBlock(got))

	reused, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	require.Equal(t, ref, reused.Ref)
	require.Equal(t, block.DATA, reused.Magic)
}

func TestAllocateExtendsFileWhenFreeListEmpty(t *testing.T) {
	d := newTestDbfile(t)

	first, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	second, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)

	require.NotEqual(t, first.Ref, second.Ref)
	require.Equal(t, first.Ref+Ref(d.PageSize()), second.Ref)
}

func TestGetBlockPastEndOfFileFails(t *testing.T) {
	d := newTestDbfile(t)
	_, err := d.GetBlock(Ref(100 * d.PageSize()))
	require.Error(t, err)
}

func TestGetBlockUnknownMagicFails(t *testing.T) {
	d := newTestDbfile(t)
	b, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)

	junk := make([]byte, d.PageSize())
	copy(junk[0:4], "XXXX")
	require.NoError(t, d.writePage(b.Ref, junk))
	entry := d.cache[b.Ref]
	d.lru.Remove(entry.elem)
	delete(d.cache, b.Ref)

	_, err = d.GetBlock(b.Ref)
	require.Error(t, err)
}

func TestFreeListLIFOOrder(t *testing.T) {
	d := newTestDbfile(t)

	a, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	b, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)

	require.NoError(t, d.FreeBlock(a))
	require.NoError(t, d.FreeBlock(b))

	first, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	require.Equal(t, b.Ref, first.Ref)

	second, err := d.AllocateBlock(block.DATA)
	require.NoError(t, err)
	require.Equal(t, a.Ref, second.Ref)
}
