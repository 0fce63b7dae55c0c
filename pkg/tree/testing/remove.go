package testing

import (
	"context"
	"testing"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunDeleteTests(test *testing.T) {
	test.Run("Delete_File", suite.TestDelete_File)
	test.Run("Delete_EmptyFolder", suite.TestDelete_EmptyFolder)
	test.Run("Delete_NonEmptyFolder", suite.TestDelete_NonEmptyFolder)
	test.Run("Delete_NotFound", suite.TestDelete_NotFound)
	test.Run("Delete_ReleasesName", suite.TestDelete_ReleasesName)
}

func (suite *StoreTestSuite) RunUsedBytesTests(test *testing.T) {
	test.Run("UsedBytes_SumsSizes", suite.TestUsedBytes_SumsSizes)
	test.Run("UsedBytes_TracksDeletes", suite.TestUsedBytes_TracksDeletes)
}

// TestDelete_File verifies a file disappears from both identity and name
// lookups.
func (suite *StoreTestSuite) TestDelete_File(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "gone.txt", 10)
	MustInsert(test, store, file)

	err := store.DeleteItem(ctx, file.ID)
	require.NoError(test, err)

	_, err = store.GetItem(ctx, file.ID)
	AssertErrorCode(test, tree.ErrNotFound, err)
	_, err = store.GetChild(ctx, root.ID, "gone.txt")
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestDelete_EmptyFolder verifies an empty folder can be deleted.
func (suite *StoreTestSuite) TestDelete_EmptyFolder(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "scratch")
	MustInsert(test, store, folder)

	err := store.DeleteItem(ctx, folder.ID)
	require.NoError(test, err)

	_, err = store.GetItem(ctx, folder.ID)
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestDelete_NonEmptyFolder verifies recursion is the caller's job: the
// store refuses to delete a folder that still has children.
func (suite *StoreTestSuite) TestDelete_NonEmptyFolder(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "full")
	MustInsert(test, store, folder)
	MustInsert(test, store, NewFile(folder.ID, "inside.txt", 5))

	err := store.DeleteItem(ctx, folder.ID)
	AssertErrorCode(test, tree.ErrConflict, err)

	// The folder and its child are untouched.
	_, err = store.GetItem(ctx, folder.ID)
	require.NoError(test, err)
	_, err = store.GetChild(ctx, folder.ID, "inside.txt")
	require.NoError(test, err)
}

// TestDelete_NotFound verifies deleting an unknown item fails cleanly.
func (suite *StoreTestSuite) TestDelete_NotFound(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	err := store.DeleteItem(ctx, tree.NewItemID())
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestDelete_ReleasesName verifies a deleted item's name can be reused by
// a fresh item.
func (suite *StoreTestSuite) TestDelete_ReleasesName(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	first := NewFile(root.ID, "slot.txt", 10)
	MustInsert(test, store, first)
	require.NoError(test, store.DeleteItem(ctx, first.ID))

	second := NewFile(root.ID, "slot.txt", 20)
	MustInsert(test, store, second)

	loaded, err := store.GetChild(ctx, root.ID, "slot.txt")
	require.NoError(test, err)
	assert.Equal(test, second.ID, loaded.ID)
	assert.NotEqual(test, first.ID, loaded.ID)
}

// TestUsedBytes_SumsSizes verifies accounting over several files.
func (suite *StoreTestSuite) TestUsedBytes_SumsSizes(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	MustInsert(test, store, NewFile(root.ID, "a.bin", 100))
	MustInsert(test, store, NewFile(root.ID, "b.bin", 250))
	folder := NewFolder(root.ID, "nested")
	MustInsert(test, store, folder)
	MustInsert(test, store, NewFile(folder.ID, "c.bin", 50))

	used, err := store.UsedBytes(ctx)
	require.NoError(test, err)
	assert.Equal(test, uint64(400), used)
}

// TestUsedBytes_TracksDeletes verifies accounting shrinks after deletion.
func (suite *StoreTestSuite) TestUsedBytes_TracksDeletes(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	keep := NewFile(root.ID, "keep.bin", 300)
	drop := NewFile(root.ID, "drop.bin", 200)
	MustInsert(test, store, keep)
	MustInsert(test, store, drop)

	require.NoError(test, store.DeleteItem(ctx, drop.ID))

	used, err := store.UsedBytes(ctx)
	require.NoError(test, err)
	assert.Equal(test, uint64(300), used)
}
