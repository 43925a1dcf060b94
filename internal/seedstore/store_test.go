package seedstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pslhy/DAFL/internal/scheduler"
	"github.com/pslhy/DAFL/internal/seedstore"
)

func Test_Store_Write_ThenRead_RoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := seedstore.New(dir)
	require.NoError(t, err)

	d := seedstore.Descriptor{ID: 1, ParentID: scheduler.NoSeed, MutationOp: "seed", MutationPos: 0}

	path, err := store.Write(d, []byte("hello fuzzer"))
	require.NoError(t, err)
	require.FileExists(t, path)

	data, err := store.Read(d)
	require.NoError(t, err)
	require.Equal(t, []byte("hello fuzzer"), data)
}

func Test_Store_New_RejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := seedstore.New("")
	require.ErrorIs(t, err, seedstore.ErrSeedDirEmpty)
}

func Test_Store_Read_MissingSeed_ReturnsNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := seedstore.New(dir)
	require.NoError(t, err)

	_, err = store.Read(seedstore.Descriptor{ID: 99, ParentID: scheduler.NoSeed, MutationOp: "seed"})
	require.ErrorIs(t, err, seedstore.ErrSeedNotFound)
}

func Test_Store_List_ReturnsWrittenFileNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := seedstore.New(dir)
	require.NoError(t, err)

	_, err = store.Write(seedstore.Descriptor{ID: 1, ParentID: scheduler.NoSeed, MutationOp: "seed"}, []byte("a"))
	require.NoError(t, err)
	_, err = store.Write(seedstore.Descriptor{ID: 2, ParentID: 1, MutationOp: "havoc", MutationPos: 3}, []byte("b"))
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		"id:000001,src:orig,op:seed,pos:0",
		"id:000002,src:000001,op:havoc,pos:3",
	}, names)
}

func Test_Store_List_EmptyWhenDirMissing(t *testing.T) {
	t.Parallel()

	store, err := seedstore.New(filepath.Join(t.TempDir(), "does-not-exist-yet"))
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	require.Empty(t, names)
}

func Test_Store_Write_CreatesDirIfMissing(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "seeds")
	store, err := seedstore.New(dir)
	require.NoError(t, err)

	_, err = store.Write(seedstore.Descriptor{ID: 1, ParentID: scheduler.NoSeed, MutationOp: "seed"}, []byte("x"))
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	require.NoError(t, statErr)
}
