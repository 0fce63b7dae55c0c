package tree

import (
	"time"

	"github.com/google/uuid"
)

// ItemID is an opaque identifier for an item in the hierarchical namespace.
//
// Identifiers are assigned by the engine when an item is materialized and
// never change for the lifetime of the item. Renaming or changing attributes
// preserves the ID; copy and move materialize new items with fresh IDs.
type ItemID string

// NewItemID generates a fresh item identifier.
//
// Identifiers are random UUIDs, which makes them:
//   - Unique without any counter or coordination
//   - Non-guessable by clients
//   - Stable across server restarts (they are stored, not derived)
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

// NewContentID generates a fresh content identifier for a file's bytes.
func NewContentID() string {
	return uuid.NewString()
}

// ItemKind is the closed set of item kinds.
//
// The engine dispatches on kind with exhaustive switches. Adding a new kind
// is a compile-visible change: every switch over ItemKind has an explicit
// default that fails loudly rather than silently treating unknown kinds as
// files.
type ItemKind int

const (
	// KindFile is a leaf item carrying content bytes.
	KindFile ItemKind = iota

	// KindFolder is an interior item containing named children.
	KindFolder
)

func (k ItemKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Attribute is a bitset of item flags.
type Attribute uint32

const (
	// AttrNone means no flags are set.
	AttrNone Attribute = 0

	// AttrNormal marks a plain file.
	AttrNormal Attribute = 1 << 0

	// AttrFolder marks a folder.
	AttrFolder Attribute = 1 << 1

	// AttrHidden marks an item hidden from default listings.
	AttrHidden Attribute = 1 << 2

	// AttrReadOnly marks an item whose content must not be modified.
	AttrReadOnly Attribute = 1 << 3
)

// Has reports whether all bits in flag are set.
func (a Attribute) Has(flag Attribute) bool {
	return a&flag == flag
}

// DeriveAttributes returns the default attribute bits for a freshly
// materialized item of the given kind.
func DeriveAttributes(kind ItemKind) Attribute {
	if kind == KindFolder {
		return AttrFolder
	}
	return AttrNormal
}

// Item is a node (file or folder) in the hierarchical namespace.
//
// Identity is the ID. Name is unique among siblings sharing the same
// ParentID. The root item has an empty ParentID and cannot be deleted or
// moved.
//
// Items are owned by the Store; the engine holds no item state between
// calls.
type Item struct {
	// ID is the opaque identity of the item.
	ID ItemID

	// ParentID is the identity of the containing folder.
	// Empty for the root item.
	ParentID ItemID

	// Name is the sibling-unique display name.
	Name string

	// Kind discriminates files from folders.
	Kind ItemKind

	// Created is when the item was materialized.
	Created time.Time

	// Modified is the last metadata or content change time.
	Modified time.Time

	// Size is the content size in bytes. Always 0 for folders.
	Size uint64

	// ContentID references the item's bytes in the content store.
	// Empty for folders.
	ContentID string

	// Attributes is the item's flag bitset.
	Attributes Attribute
}

// IsRoot reports whether the item is the namespace root.
func (it *Item) IsRoot() bool {
	return it.ParentID == ""
}

// IsFolder reports whether the item is a folder.
func (it *Item) IsFolder() bool {
	return it.Kind == KindFolder
}
