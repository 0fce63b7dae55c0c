package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunUpdateTests(test *testing.T) {
	test.Run("Update_Rename", suite.TestUpdate_Rename)
	test.Run("Update_RenameCollision", suite.TestUpdate_RenameCollision)
	test.Run("Update_Reparent", suite.TestUpdate_Reparent)
	test.Run("Update_Selective", suite.TestUpdate_Selective)
	test.Run("Update_NotFound", suite.TestUpdate_NotFound)
	test.Run("Update_RootImmovable", suite.TestUpdate_RootImmovable)
}

// TestUpdate_Rename verifies a rename moves the name binding and keeps the
// identity.
func (suite *StoreTestSuite) TestUpdate_Rename(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "old.txt", 10)
	MustInsert(test, store, file)

	newName := "new.txt"
	err := store.UpdateMetadata(ctx, file.ID, tree.MetadataUpdate{Name: &newName})
	require.NoError(test, err)

	renamed, err := store.GetChild(ctx, root.ID, "new.txt")
	require.NoError(test, err)
	assert.Equal(test, file.ID, renamed.ID, "rename must keep the identity")

	_, err = store.GetChild(ctx, root.ID, "old.txt")
	AssertErrorCode(test, tree.ErrNotFound, err, "old name should be released")
}

// TestUpdate_RenameCollision verifies a rename onto an existing sibling
// name is rejected.
func (suite *StoreTestSuite) TestUpdate_RenameCollision(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "a.txt", 10)
	MustInsert(test, store, file)
	MustInsert(test, store, NewFile(root.ID, "b.txt", 10))

	collision := "b.txt"
	err := store.UpdateMetadata(ctx, file.ID, tree.MetadataUpdate{Name: &collision})
	AssertErrorCode(test, tree.ErrConflict, err)

	// Renaming to its own current name is a no-op, not a collision.
	same := "a.txt"
	err = store.UpdateMetadata(ctx, file.ID, tree.MetadataUpdate{Name: &same})
	require.NoError(test, err)
}

// TestUpdate_Reparent verifies moving an item between folders.
func (suite *StoreTestSuite) TestUpdate_Reparent(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "archive")
	MustInsert(test, store, folder)
	file := NewFile(root.ID, "doc.txt", 10)
	MustInsert(test, store, file)

	err := store.UpdateMetadata(ctx, file.ID, tree.MetadataUpdate{ParentID: &folder.ID})
	require.NoError(test, err)

	moved, err := store.GetChild(ctx, folder.ID, "doc.txt")
	require.NoError(test, err)
	assert.Equal(test, file.ID, moved.ID)
	assert.Equal(test, folder.ID, moved.ParentID)

	_, err = store.GetChild(ctx, root.ID, "doc.txt")
	AssertErrorCode(test, tree.ErrNotFound, err, "source folder should no longer list the item")
}

// TestUpdate_Selective verifies only non-nil fields are applied.
func (suite *StoreTestSuite) TestUpdate_Selective(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "data.bin", 100)
	MustInsert(test, store, file)

	newSize := uint64(250)
	newModified := time.Now().Add(time.Hour).Truncate(time.Second)
	err := store.UpdateMetadata(ctx, file.ID, tree.MetadataUpdate{
		Size:     &newSize,
		Modified: &newModified,
	})
	require.NoError(test, err)

	loaded, err := store.GetItem(ctx, file.ID)
	require.NoError(test, err)
	assert.Equal(test, uint64(250), loaded.Size)
	assert.WithinDuration(test, newModified, loaded.Modified, time.Second)
	assert.Equal(test, "data.bin", loaded.Name, "unset fields must stay untouched")
	assert.Equal(test, file.ContentID, loaded.ContentID)
}

// TestUpdate_NotFound verifies updating an unknown item fails cleanly.
func (suite *StoreTestSuite) TestUpdate_NotFound(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	size := uint64(1)
	err := store.UpdateMetadata(ctx, tree.NewItemID(), tree.MetadataUpdate{Size: &size})
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestUpdate_RootImmovable verifies the root cannot be renamed or
// reparented.
func (suite *StoreTestSuite) TestUpdate_RootImmovable(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "inner")
	MustInsert(test, store, folder)

	name := "renamed-root"
	err := store.UpdateMetadata(ctx, root.ID, tree.MetadataUpdate{Name: &name})
	AssertErrorCode(test, tree.ErrConflict, err)

	err = store.UpdateMetadata(ctx, root.ID, tree.MetadataUpdate{ParentID: &folder.ID})
	AssertErrorCode(test, tree.ErrConflict, err)
}
