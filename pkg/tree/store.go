package tree

import (
	"context"
	"time"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store is the abstract hierarchical item store the engine operates over.
//
// The engine is a stateless orchestration layer: all durable state lives in
// the store, which is responsible for its own internal concurrency control
// when invoked by independent operations. Implementations must guarantee
// read-your-writes within one logical operation: an item inserted by the
// engine must be visible to the engine's next read in the same operation.
//
// Error Contract:
// Business errors (missing item, duplicate sibling name) are returned as
// *TreeError with the appropriate code. Infrastructure errors (I/O, codec,
// corruption) are returned as plain wrapped errors and abort the whole
// operation regardless of recursion depth.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Root returns the namespace root item.
	//
	// The root always exists, has an empty ParentID, and cannot be deleted
	// or moved.
	Root(ctx context.Context) (*Item, error)

	// GetItem retrieves an item by identity.
	//
	// Returns:
	//   - *Item: the item
	//   - error: ErrNotFound if no item has this identity
	GetItem(ctx context.Context, id ItemID) (*Item, error)

	// GetChild resolves a sibling-unique name within a folder.
	//
	// Returns:
	//   - *Item: the child item
	//   - error: ErrNotFound if the folder has no child with this name
	GetChild(ctx context.Context, parentID ItemID, name string) (*Item, error)

	// ListChildren returns the immediate children of a folder in the
	// store's natural order. Returns an empty slice (not an error) for an
	// empty folder.
	ListChildren(ctx context.Context, parentID ItemID) ([]Item, error)

	// Insert materializes a new item.
	//
	// The item's ID, ParentID, Name and Kind must be populated by the
	// caller.
	//
	// Returns:
	//   - error: ErrConflict if a sibling with the same name exists,
	//     ErrNotFound if the parent does not exist
	Insert(ctx context.Context, item *Item) error

	// UpdateMetadata applies a selective metadata update to an item.
	// Only fields with non-nil pointers in update are modified.
	//
	// Returns:
	//   - error: ErrNotFound if the item does not exist, ErrConflict if a
	//     name change collides with an existing sibling
	UpdateMetadata(ctx context.Context, id ItemID, update MetadataUpdate) error

	// DeleteItem destroys a single item.
	//
	// The caller is responsible for having destroyed the item's children
	// first; implementations reject deleting a folder that still has
	// children with ErrConflict, and reject deleting the root.
	DeleteItem(ctx context.Context, id ItemID) error

	// UsedBytes returns the total content bytes accounted to the store.
	UsedBytes(ctx context.Context) (uint64, error)
}

// MetadataUpdate describes a selective item metadata change.
//
// Only non-nil fields are applied; everything else is left untouched.
// This mirrors the selective set-attributes pattern: callers state exactly
// what they change and implementations never clobber unrelated fields.
type MetadataUpdate struct {
	// Name renames the item within its parent.
	Name *string

	// ParentID reparents the item.
	ParentID *ItemID

	// Modified sets the last-change timestamp.
	Modified *time.Time

	// Size sets the content size in bytes.
	Size *uint64

	// ContentID repoints the item's content reference.
	ContentID *string

	// Attributes replaces the attribute bitset.
	Attributes *Attribute
}

// ============================================================================
// Collaborator Contracts
// ============================================================================

// LockOracle answers whether a caller holds valid lock tokens.
//
// It is consulted as a precondition gate immediately before each mutating
// step (re-read-then-act); a race between the check and the store write is
// an accepted design risk since the store remains the source of truth.
//
// "Has token" for an item means: the item is unlocked, OR one of the
// submitted tokens is a currently valid holder's token for that item.
// The oracle has no side effects.
type LockOracle interface {
	// HasToken reports whether the submitted tokens satisfy the lock on a
	// single item.
	HasToken(ctx context.Context, id ItemID, tokens []string) (bool, error)

	// HasTokenForSubtree recursively requires every item in the subtree
	// rooted at id (the item itself, and all descendant files and folders)
	// to individually satisfy HasToken.
	HasTokenForSubtree(ctx context.Context, id ItemID, tokens []string) (bool, error)
}

// NotificationSink receives fire-and-forget change notifications.
//
// Sinks must never block a mutation and cannot fail one: the methods return
// nothing, and implementations swallow (at most log) their own errors.
type NotificationSink interface {
	NotifyCreated(path string)
	NotifyMoved(oldPath, newPath string)
	NotifyDeleted(path string)
}

// Quota reports remaining storage capacity.
//
// The value is derived as (configured total) − (used bytes) and is not
// transactionally tied to writes: a race can transiently permit an
// over-quota write. Enforcement is best-effort by design.
type Quota interface {
	AvailableBytes(ctx context.Context) (uint64, error)
}
