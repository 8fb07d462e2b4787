package language

import (
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee/pkg/perrors"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	reg := New(DuplicateForbidden)
	require.NoError(t, reg.Put(Entry{
		ID: 1, Country: "United States", Language: "English",
		Country2Letters: "US", Language2Letters: "en", Language3Letters: "eng",
	}))
	require.NoError(t, reg.Put(Entry{
		ID: 2, Country: "France", Language: "French",
		Country2Letters: "FR", Language2Letters: "fr", Language3Letters: "fre",
	}))

	path := filepath.Join(t.TempDir(), "lang.ini")
	require.NoError(t, reg.Save(path))

	loaded, err := Load(path, DuplicateForbidden)
	require.NoError(t, err)
	require.Len(t, loaded.All(), 2)

	en, ok := loaded.Lookup("en_US")
	require.True(t, ok)
	require.Equal(t, "United States", en.Country)
}

func TestSaveIsAtomicWithBackup(t *testing.T) {
	reg := New(DuplicateForbidden)
	require.NoError(t, reg.Put(Entry{ID: 1, Language2Letters: "en", Country2Letters: "US"}))
	path := filepath.Join(t.TempDir(), "lang.ini")
	require.NoError(t, reg.Save(path))

	require.NoError(t, reg.Put(Entry{ID: 2, Language2Letters: "fr", Country2Letters: "FR"}))
	require.NoError(t, reg.Save(path))

	require.FileExists(t, path+".bak")
	reloaded, err := Load(path, DuplicateForbidden)
	require.NoError(t, err)
	require.Len(t, reloaded.All(), 2)
}

func TestDuplicateForbidden(t *testing.T) {
	reg := New(DuplicateForbidden)
	require.NoError(t, reg.Put(Entry{ID: 1, Language2Letters: "en", Country2Letters: "US"}))
	err := reg.Put(Entry{ID: 2, Language2Letters: "en", Country2Letters: "US"})
	require.Error(t, err)
	require.True(t, perrors.Is(err, perrors.InvalidEntity))
}

func TestDuplicateVerboseRecordsDropped(t *testing.T) {
	reg := New(DuplicateVerbose)
	require.NoError(t, reg.Put(Entry{ID: 1, Language2Letters: "en", Country2Letters: "US"}))
	require.NoError(t, reg.Put(Entry{ID: 2, Language2Letters: "en", Country2Letters: "US"}))
	require.Equal(t, []uint16{2}, reg.Dropped)
	require.Len(t, reg.All(), 1)
}

func TestAssignUsesUnusedIDsOnly(t *testing.T) {
	reg := New(DuplicateForbidden)
	require.NoError(t, reg.Put(Entry{ID: 1, Language2Letters: "en", Country2Letters: "US"}))

	assigned, err := reg.Assign([]Candidate{
		{Language2Letters: "fr", Country2Letters: "FR"},
		{Language2Letters: "de", Country2Letters: "DE"},
	})
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	for _, e := range assigned {
		require.NotEqual(t, uint16(1), e.ID)
	}
	require.NotEqual(t, assigned[0].ID, assigned[1].ID)
}
