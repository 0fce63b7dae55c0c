package memory

import (
	"context"
	"testing"

	"github.com/marmos91/davtree/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "blob-1", []byte("hello world")))

	data, err := store.ReadAll(ctx, "blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), data)
}

func TestReadAll_Missing(t *testing.T) {
	store := NewMemoryContentStore()

	_, err := store.ReadAll(context.Background(), "nope")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestWrite_CallerCannotMutateStoredBytes(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	buf := []byte("original")
	require.NoError(t, store.Write(ctx, "blob-1", buf))
	buf[0] = 'X'

	data, err := store.ReadAll(ctx, "blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}

func TestDuplicate_IndependentCopy(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "blob-1", []byte("shared bytes")))

	dupID, err := store.Duplicate(ctx, "blob-1")
	require.NoError(t, err)
	assert.NotEqual(t, "blob-1", dupID)

	// Deleting the original leaves the duplicate intact.
	require.NoError(t, store.Delete(ctx, "blob-1"))
	data, err := store.ReadAll(ctx, dupID)
	require.NoError(t, err)
	assert.Equal(t, []byte("shared bytes"), data)
}

func TestDuplicate_Missing(t *testing.T) {
	store := NewMemoryContentStore()

	_, err := store.Duplicate(context.Background(), "nope")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "blob-1", []byte("bye")))
	require.NoError(t, store.Delete(ctx, "blob-1"))
	require.NoError(t, store.Delete(ctx, "blob-1"), "deleting missing content succeeds")

	exists, err := store.Exists(ctx, "blob-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsedBytes(t *testing.T) {
	store := NewMemoryContentStore()
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "a", make([]byte, 100)))
	require.NoError(t, store.Write(ctx, "b", make([]byte, 250)))

	used, err := store.UsedBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(350), used)
}
