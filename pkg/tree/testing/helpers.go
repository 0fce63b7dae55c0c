package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewFile creates a file item ready for insertion under the given parent.
func NewFile(parentID tree.ItemID, name string, size uint64) *tree.Item {
	now := time.Now()
	return &tree.Item{
		ID:         tree.NewItemID(),
		ParentID:   parentID,
		Name:       name,
		Kind:       tree.KindFile,
		Created:    now,
		Modified:   now,
		Size:       size,
		ContentID:  tree.NewContentID(),
		Attributes: tree.DeriveAttributes(tree.KindFile),
	}
}

// NewFolder creates a folder item ready for insertion under the given
// parent.
func NewFolder(parentID tree.ItemID, name string) *tree.Item {
	now := time.Now()
	return &tree.Item{
		ID:         tree.NewItemID(),
		ParentID:   parentID,
		Name:       name,
		Kind:       tree.KindFolder,
		Created:    now,
		Modified:   now,
		Attributes: tree.DeriveAttributes(tree.KindFolder),
	}
}

// MustRoot fetches the store root, failing the test on error.
func MustRoot(test *testing.T, store tree.Store) *tree.Item {
	test.Helper()
	root, err := store.Root(context.Background())
	require.NoError(test, err, "Root should always be resolvable")
	require.NotNil(test, root)
	return root
}

// MustInsert inserts an item, failing the test on error.
func MustInsert(test *testing.T, store tree.Store, item *tree.Item) {
	test.Helper()
	err := store.Insert(context.Background(), item)
	require.NoError(test, err, "Insert of %q should succeed", item.Name)
}

// AssertErrorCode asserts that an error is a *tree.TreeError carrying the
// expected code.
func AssertErrorCode(test *testing.T, expected tree.ErrorCode, err error, msgAndArgs ...interface{}) {
	test.Helper()
	require.Error(test, err, msgAndArgs...)
	terr, ok := tree.AsTreeError(err)
	require.True(test, ok, "error should be a *tree.TreeError, got: %v", err)
	assert.Equal(test, expected, terr.Code, msgAndArgs...)
}
