// Package content manages the raw bytes referenced by file items.
//
// The tree engine manages structure and metadata only; an item's bytes
// live here, referenced by an opaque ContentID. The separation allows
// independent storage backends (memory, S3) and lets orphaned content be
// garbage collected instead of failing deletes.
package content

import (
	"context"
	"errors"
)

// ErrContentNotFound indicates the requested content does not exist.
var ErrContentNotFound = errors.New("content not found")

// ContentStore stores and retrieves file bytes by opaque content ID.
//
// The ContentID format is implementation-specific (a UUID for the memory
// store, an object key for S3) and must be treated as opaque by callers.
//
// Error Contract:
// ErrContentNotFound is returned for missing content; all other errors are
// infrastructure failures. Delete is idempotent: deleting missing content
// succeeds.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same ContentID are last-write-wins.
type ContentStore interface {
	// Write stores data under the given content ID, replacing any
	// previous bytes.
	Write(ctx context.Context, contentID string, data []byte) error

	// ReadAll returns the complete bytes for a content ID.
	ReadAll(ctx context.Context, contentID string) ([]byte, error)

	// Duplicate creates an independent copy of existing content and
	// returns the new content ID.
	Duplicate(ctx context.Context, contentID string) (string, error)

	// Delete removes the content. Deleting missing content succeeds.
	Delete(ctx context.Context, contentID string) error

	// Exists reports whether content with this ID is stored.
	Exists(ctx context.Context, contentID string) (bool, error)

	// UsedBytes returns the total stored bytes.
	UsedBytes(ctx context.Context) (uint64, error)
}

// ListableStore is an optional interface for stores that can enumerate
// every content ID they hold. It is required by the garbage collector,
// which diffs stored content against the IDs still referenced by the
// tree to find orphans.
type ListableStore interface {
	ContentStore

	// ListAll returns every content ID currently in the store. The
	// order is unspecified.
	ListAll(ctx context.Context) ([]string, error)
}
