package tree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeError_MessageWithPath(t *testing.T) {
	err := &TreeError{Code: ErrLocked, Message: "item is locked", Path: "/docs/a.txt"}
	assert.Equal(t, "item is locked: /docs/a.txt", err.Error())

	bare := &TreeError{Code: ErrConflict, Message: "name collision"}
	assert.Equal(t, "name collision", bare.Error())
}

func TestAsTreeError_Unwraps(t *testing.T) {
	inner := &TreeError{Code: ErrForbidden, Message: "cycle"}
	wrapped := fmt.Errorf("copying subtree: %w", inner)

	te, ok := AsTreeError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrForbidden, te.Code)

	_, ok = AsTreeError(errors.New("disk on fire"))
	assert.False(t, ok)
}

func TestCodeOf_ClassifiesPlainErrorsAsStoreFailure(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(&TreeError{Code: ErrNotFound, Message: "gone"}))
	assert.Equal(t, ErrStoreFailure, CodeOf(errors.New("io timeout")))
	assert.True(t, IsStoreFailure(errors.New("io timeout")))
	assert.False(t, IsStoreFailure(&TreeError{Code: ErrLocked, Message: "locked"}))
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "locked", ErrLocked.String())
	assert.Equal(t, "conflict", ErrConflict.String())
	assert.Equal(t, "forbidden", ErrForbidden.String())
	assert.Equal(t, "not-found", ErrNotFound.String())
	assert.Equal(t, "store-failure", ErrStoreFailure.String())
	assert.Equal(t, "unknown", ErrorCode(99).String())
}

func TestDeriveAttributes(t *testing.T) {
	require.True(t, DeriveAttributes(KindFolder).Has(AttrFolder))
	require.False(t, DeriveAttributes(KindFile).Has(AttrFolder))
	require.True(t, DeriveAttributes(KindFile).Has(AttrNormal))
}
