package badger

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/davtree/pkg/tree"
	storetesting "github.com/marmos91/davtree/pkg/tree/testing"
	"github.com/stretchr/testify/require"
)

func newTestStore(test *testing.T) *BadgerStore {
	test.Helper()

	// In-memory mode keeps the suite fast and avoids disk cleanup races
	// between parallel subtests.
	opts := badgerdb.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badgerdb.ERROR)
	store, err := NewBadgerStore(context.Background(), Config{BadgerOptions: &opts})
	require.NoError(test, err)
	test.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// TestBadgerStore runs the shared Store conformance suite against the
// BadgerDB implementation.
func TestBadgerStore(test *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() tree.Store {
			return newTestStore(test)
		},
	}
	suite.Run(test)
}

// TestBadgerStore_RootSurvivesReopen verifies the root identity is stable
// across close/reopen of the same database directory.
func TestBadgerStore_RootSurvivesReopen(test *testing.T) {
	dir := test.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(test, err)

	root, err := store.Root(ctx)
	require.NoError(test, err)
	file := storetesting.NewFile(root.ID, "persisted.txt", 42)
	require.NoError(test, store.Insert(ctx, file))
	require.NoError(test, store.Close())

	reopened, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(test, err)
	defer reopened.Close()

	rootAgain, err := reopened.Root(ctx)
	require.NoError(test, err)
	require.Equal(test, root.ID, rootAgain.ID, "root identity must survive reopen")

	loaded, err := reopened.GetChild(ctx, rootAgain.ID, "persisted.txt")
	require.NoError(test, err)
	require.Equal(test, file.ID, loaded.ID)
	require.Equal(test, uint64(42), loaded.Size)
}
