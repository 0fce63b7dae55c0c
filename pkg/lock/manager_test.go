package lock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/davtree/pkg/tree"
	"github.com/marmos91/davtree/pkg/tree/memory"
	storetesting "github.com/marmos91/davtree/pkg/tree/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertCode(test *testing.T, expected tree.ErrorCode, err error) {
	test.Helper()
	require.Error(test, err)
	terr, ok := tree.AsTreeError(err)
	require.True(test, ok, "expected a *tree.TreeError, got: %v", err)
	assert.Equal(test, expected, terr.Code)
}

func TestLock_ExclusiveGrantsToken(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	token, err := manager.Lock(ctx, root.ID, Options{Owner: "alice", Exclusive: true})
	require.NoError(test, err)
	assert.True(test, strings.HasPrefix(token, "urn:uuid:"))
	assert.Equal(test, 1, manager.Count())
}

func TestLock_ExclusiveConflicts(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	_, err := manager.Lock(ctx, root.ID, Options{Owner: "alice", Exclusive: true})
	require.NoError(test, err)

	// Exclusive conflicts with everything, in both directions.
	_, err = manager.Lock(ctx, root.ID, Options{Owner: "bob", Exclusive: true})
	assertCode(test, tree.ErrLocked, err)
	_, err = manager.Lock(ctx, root.ID, Options{Owner: "bob", Exclusive: false})
	assertCode(test, tree.ErrLocked, err)
}

func TestLock_SharedHoldersCoexist(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	tokenA, err := manager.Lock(ctx, root.ID, Options{Owner: "alice"})
	require.NoError(test, err)
	tokenB, err := manager.Lock(ctx, root.ID, Options{Owner: "bob"})
	require.NoError(test, err)
	assert.NotEqual(test, tokenA, tokenB)

	// But a shared lock still blocks an exclusive request.
	_, err = manager.Lock(ctx, root.ID, Options{Owner: "carol", Exclusive: true})
	assertCode(test, tree.ErrLocked, err)
}

func TestUnlock_ReleasesHolder(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	token, err := manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)

	require.NoError(test, manager.Unlock(ctx, root.ID, token))
	assert.Equal(test, 0, manager.Count())

	// The item is free again.
	_, err = manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)
}

func TestUnlock_UnknownTokenConflicts(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	err := manager.Unlock(ctx, root.ID, "urn:uuid:not-a-holder")
	assertCode(test, tree.ErrConflict, err)
}

func TestLock_ExpiresAfterTTL(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	token, err := manager.Lock(ctx, root.ID, Options{Exclusive: true, TTL: 10 * time.Millisecond})
	require.NoError(test, err)

	time.Sleep(20 * time.Millisecond)

	// The expired holder no longer satisfies nor blocks anything.
	ok, err := manager.HasToken(ctx, root.ID, []string{token})
	require.NoError(test, err)
	assert.True(test, ok, "expired lock leaves the item unlocked")

	_, err = manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)
}

func TestRefresh_ExtendsExpiry(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	token, err := manager.Lock(ctx, root.ID, Options{Exclusive: true, TTL: 20 * time.Millisecond})
	require.NoError(test, err)

	require.NoError(test, manager.Refresh(ctx, root.ID, token, time.Minute))
	time.Sleep(30 * time.Millisecond)

	// Still held after the original TTL passed.
	_, err = manager.Lock(ctx, root.ID, Options{Exclusive: true})
	assertCode(test, tree.ErrLocked, err)

	err = manager.Refresh(ctx, root.ID, "urn:uuid:other", time.Minute)
	assertCode(test, tree.ErrConflict, err)
}

func TestLock_DefaultTTLBackfillsOmittedRequest(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	manager.SetTTLBounds(10*time.Millisecond, time.Hour)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	_, err := manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)

	time.Sleep(20 * time.Millisecond)

	// With no TTL asked for, the configured default applies and the lock
	// has expired by now.
	_, err = manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)
}

func TestLock_RequestedTTLClampedToMax(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	manager.SetTTLBounds(5*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	token, err := manager.Lock(ctx, root.ID, Options{Exclusive: true, TTL: time.Hour})
	require.NoError(test, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(test, 0, manager.Count(), "the hour-long request was capped")

	// Refresh obeys the same cap.
	token, err = manager.Lock(ctx, root.ID, Options{Exclusive: true, TTL: 5 * time.Millisecond})
	require.NoError(test, err)
	require.NoError(test, manager.Refresh(ctx, root.ID, token, time.Hour))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(test, 0, manager.Count())
}

func TestHasToken_Semantics(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	// Unlocked items accept any caller, tokens or not.
	ok, err := manager.HasToken(ctx, root.ID, nil)
	require.NoError(test, err)
	assert.True(test, ok)

	token, err := manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)

	ok, err = manager.HasToken(ctx, root.ID, nil)
	require.NoError(test, err)
	assert.False(test, ok)

	ok, err = manager.HasToken(ctx, root.ID, []string{"urn:uuid:wrong", token})
	require.NoError(test, err)
	assert.True(test, ok, "any submitted token may satisfy the lock")
}

func TestHasTokenForSubtree_RequiresEveryDescendant(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)

	folder := storetesting.NewFolder(root.ID, "docs")
	storetesting.MustInsert(test, store, folder)
	nested := storetesting.NewFolder(folder.ID, "inner")
	storetesting.MustInsert(test, store, nested)
	file := storetesting.NewFile(nested.ID, "deep.txt", 1)
	storetesting.MustInsert(test, store, file)

	ok, err := manager.HasTokenForSubtree(ctx, folder.ID, nil)
	require.NoError(test, err)
	assert.True(test, ok, "a fully unlocked subtree is satisfied")

	// A lock anywhere in the subtree blocks the whole check...
	token, err := manager.Lock(ctx, file.ID, Options{Exclusive: true})
	require.NoError(test, err)
	ok, err = manager.HasTokenForSubtree(ctx, folder.ID, nil)
	require.NoError(test, err)
	assert.False(test, ok)

	// ...and the matching token opens it again.
	ok, err = manager.HasTokenForSubtree(ctx, folder.ID, []string{token})
	require.NoError(test, err)
	assert.True(test, ok)
}

func TestSetCountObserver_TracksTableSize(test *testing.T) {
	store := memory.NewMemoryStore()
	manager := NewManager(store)
	ctx := context.Background()
	root := storetesting.MustRoot(test, store)
	file := storetesting.NewFile(root.ID, "a.txt", 1)
	storetesting.MustInsert(test, store, file)

	var observed []int
	manager.SetCountObserver(func(count int) {
		observed = append(observed, count)
	})

	tokenA, err := manager.Lock(ctx, root.ID, Options{Exclusive: true})
	require.NoError(test, err)
	_, err = manager.Lock(ctx, file.ID, Options{Exclusive: true})
	require.NoError(test, err)
	require.NoError(test, manager.Unlock(ctx, root.ID, tokenA))

	assert.Equal(test, []int{1, 2, 1}, observed)
}
