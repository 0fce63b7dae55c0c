package testing

import (
	"context"
	"testing"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunLookupTests(test *testing.T) {
	test.Run("GetItem_NotFound", suite.TestGetItem_NotFound)
	test.Run("GetChild_Success", suite.TestGetChild_Success)
	test.Run("GetChild_NotFound", suite.TestGetChild_NotFound)
	test.Run("GetChild_MissingFolder", suite.TestGetChild_MissingFolder)
	test.Run("ListChildren_Contents", suite.TestListChildren_Contents)
	test.Run("ListChildren_Empty", suite.TestListChildren_Empty)
	test.Run("ListChildren_MissingFolder", suite.TestListChildren_MissingFolder)
	test.Run("ListChildren_IsolatedCopy", suite.TestListChildren_IsolatedCopy)
}

// TestGetItem_NotFound verifies lookups of unknown identities fail cleanly.
func (suite *StoreTestSuite) TestGetItem_NotFound(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	_, err := store.GetItem(ctx, tree.NewItemID())
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestGetChild_Success verifies name resolution within a folder.
func (suite *StoreTestSuite) TestGetChild_Success(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	file := NewFile(root.ID, "hello.txt", 5)
	MustInsert(test, store, file)

	child, err := store.GetChild(ctx, root.ID, "hello.txt")
	require.NoError(test, err)
	assert.Equal(test, file.ID, child.ID)
}

// TestGetChild_NotFound verifies resolving an unknown name fails cleanly.
func (suite *StoreTestSuite) TestGetChild_NotFound(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	_, err := store.GetChild(ctx, root.ID, "nothing-here")
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestGetChild_MissingFolder verifies resolving inside an unknown folder
// fails cleanly.
func (suite *StoreTestSuite) TestGetChild_MissingFolder(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	_, err := store.GetChild(ctx, tree.NewItemID(), "anything")
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestListChildren_Contents verifies a folder listing returns exactly its
// immediate children, not descendants.
func (suite *StoreTestSuite) TestListChildren_Contents(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "projects")
	MustInsert(test, store, folder)
	MustInsert(test, store, NewFile(root.ID, "top.txt", 1))
	MustInsert(test, store, NewFile(folder.ID, "nested.txt", 1))

	children, err := store.ListChildren(ctx, root.ID)
	require.NoError(test, err)
	require.Len(test, children, 2)

	names := []string{children[0].Name, children[1].Name}
	assert.ElementsMatch(test, []string{"projects", "top.txt"}, names)
}

// TestListChildren_Empty verifies an empty folder lists as an empty slice,
// not an error.
func (suite *StoreTestSuite) TestListChildren_Empty(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	folder := NewFolder(root.ID, "empty")
	MustInsert(test, store, folder)

	children, err := store.ListChildren(ctx, folder.ID)
	require.NoError(test, err)
	assert.NotNil(test, children)
	assert.Empty(test, children)
}

// TestListChildren_MissingFolder verifies listing an unknown folder fails
// cleanly.
func (suite *StoreTestSuite) TestListChildren_MissingFolder(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	_, err := store.ListChildren(ctx, tree.NewItemID())
	AssertErrorCode(test, tree.ErrNotFound, err)
}

// TestListChildren_IsolatedCopy verifies mutating a listing result does not
// leak into the store.
func (suite *StoreTestSuite) TestListChildren_IsolatedCopy(test *testing.T) {
	store := suite.NewStore()
	ctx := context.Background()

	root := MustRoot(test, store)
	MustInsert(test, store, NewFile(root.ID, "stable.txt", 7))

	children, err := store.ListChildren(ctx, root.ID)
	require.NoError(test, err)
	require.Len(test, children, 1)
	children[0].Name = "mutated"
	children[0].Size = 9999

	reloaded, err := store.GetChild(ctx, root.ID, "stable.txt")
	require.NoError(test, err)
	assert.Equal(test, uint64(7), reloaded.Size)
}
