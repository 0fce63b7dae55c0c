package testing

import (
	"context"
	"testing"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunRootTests(test *testing.T) {
	test.Run("Root_Exists", suite.TestRoot_Exists)
	test.Run("Root_IsFolder", suite.TestRoot_IsFolder)
	test.Run("Root_CannotBeDeleted", suite.TestRoot_CannotBeDeleted)
}

func (suite *StoreTestSuite) RunInsertTests(test *testing.T) {
	test.Run("Insert_File", suite.TestInsert_File)
	test.Run("Insert_Folder", suite.TestInsert_Folder)
	test.Run("Insert_DuplicateName", suite.TestInsert_DuplicateName)
	test.Run("Insert_DuplicateID", suite.TestInsert_DuplicateID)
	test.Run("Insert_MissingParent", suite.TestInsert_MissingParent)
	test.Run("Insert_ParentIsFile", suite.TestInsert_ParentIsFile)
	test.Run("Insert_SameNameDifferentFolders", suite.TestInsert_SameNameDifferentFolders)
}

// TestRoot_Exists verifies a fresh store has a resolvable root.
func (suite *StoreTestSuite) TestRoot_Exists(test *testing.T) {
	store := suite.NewStore()

	root := MustRoot(test, store)
	assert.True(test, root.IsRoot(), "root must have an empty ParentID")
	assert.NotEmpty(test, root.ID, "root must have an identity")
}

// TestRoot_IsFolder verifies the root is a folder with folder attributes.
func (suite *StoreTestSuite) TestRoot_IsFolder(test *testing.T) {
	store := suite.NewStore()

	root := MustRoot(test, store)
	assert.Equal(test, tree.KindFolder, root.Kind)
	assert.True(test, root.Attributes.Has(tree.AttrFolder))
}

// TestRoot_CannotBeDeleted verifies the root resists deletion.
func (suite *StoreTestSuite) TestRoot_CannotBeDeleted(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	err := store.DeleteItem(ctx, root.ID)
	AssertErrorCode(test, tree.ErrConflict, err, "deleting the root should be rejected")
}

// TestInsert_File verifies a file can be inserted and read back.
func (suite *StoreTestSuite) TestInsert_File(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "report.txt", 1024)
	MustInsert(test, store, file)

	loaded, err := store.GetItem(ctx, file.ID)
	require.NoError(test, err)
	assert.Equal(test, file.ID, loaded.ID)
	assert.Equal(test, "report.txt", loaded.Name)
	assert.Equal(test, tree.KindFile, loaded.Kind)
	assert.Equal(test, uint64(1024), loaded.Size)
	assert.Equal(test, file.ContentID, loaded.ContentID)
}

// TestInsert_Folder verifies a folder can be inserted and starts empty.
func (suite *StoreTestSuite) TestInsert_Folder(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "documents")
	MustInsert(test, store, folder)

	loaded, err := store.GetItem(ctx, folder.ID)
	require.NoError(test, err)
	assert.True(test, loaded.IsFolder())

	children, err := store.ListChildren(ctx, folder.ID)
	require.NoError(test, err)
	assert.Empty(test, children, "new folder should be empty")
}

// TestInsert_DuplicateName verifies sibling-name uniqueness.
func (suite *StoreTestSuite) TestInsert_DuplicateName(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	MustInsert(test, store, NewFile(root.ID, "same.txt", 10))

	err := store.Insert(ctx, NewFile(root.ID, "same.txt", 20))
	AssertErrorCode(test, tree.ErrConflict, err, "duplicate sibling name should conflict")

	// A folder with the colliding name is also rejected.
	err = store.Insert(ctx, NewFolder(root.ID, "same.txt"))
	AssertErrorCode(test, tree.ErrConflict, err, "names are unique across kinds")
}

// TestInsert_DuplicateID verifies identity uniqueness.
func (suite *StoreTestSuite) TestInsert_DuplicateID(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	first := NewFile(root.ID, "first.txt", 10)
	MustInsert(test, store, first)

	second := NewFile(root.ID, "second.txt", 10)
	second.ID = first.ID
	err := store.Insert(ctx, second)
	AssertErrorCode(test, tree.ErrConflict, err, "reusing an identity should conflict")
}

// TestInsert_MissingParent verifies inserting under an unknown folder fails.
func (suite *StoreTestSuite) TestInsert_MissingParent(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	err := store.Insert(ctx, NewFile(tree.NewItemID(), "orphan.txt", 10))
	AssertErrorCode(test, tree.ErrNotFound, err, "missing parent should be not-found")
}

// TestInsert_ParentIsFile verifies a file cannot have children.
func (suite *StoreTestSuite) TestInsert_ParentIsFile(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "plain.txt", 10)
	MustInsert(test, store, file)

	err := store.Insert(ctx, NewFile(file.ID, "child.txt", 10))
	AssertErrorCode(test, tree.ErrConflict, err, "files cannot be parents")
}

// TestInsert_SameNameDifferentFolders verifies names are only unique among
// siblings.
func (suite *StoreTestSuite) TestInsert_SameNameDifferentFolders(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folderA := NewFolder(root.ID, "a")
	folderB := NewFolder(root.ID, "b")
	MustInsert(test, store, folderA)
	MustInsert(test, store, folderB)

	MustInsert(test, store, NewFile(folderA.ID, "notes.txt", 10))
	MustInsert(test, store, NewFile(folderB.ID, "notes.txt", 20))

	inA, err := store.GetChild(ctx, folderA.ID, "notes.txt")
	require.NoError(test, err)
	inB, err := store.GetChild(ctx, folderB.ID, "notes.txt")
	require.NoError(test, err)
	assert.NotEqual(test, inA.ID, inB.ID)
}
