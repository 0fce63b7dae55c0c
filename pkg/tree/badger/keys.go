package badger

import (
	"github.com/marmos91/davtree/pkg/tree"
)

// BadgerDB key schema.
//
// The store namespaces every entry with a short prefix so that related
// records can be read with point lookups and prefix range scans:
//
//	"root"                    -> root item UUID (bytes)
//	"i:<itemUUID>"            -> JSON-encoded tree.Item
//	"c:<parentUUID>:<name>"   -> child item UUID (bytes)
//
// Parent UUIDs are fixed-format (no ':' or '/' characters), so the child
// namespace is unambiguous and children of a folder can be listed with a
// single prefix scan over "c:<parentUUID>:". Names are stored raw; a name
// never contains the separator because the path codec rejects it at the
// boundary.

const (
	prefixItem  = "i:"
	prefixChild = "c:"
	rootPointer = "root"
)

// keyRoot returns the key holding the root item's identity.
func keyRoot() []byte {
	return []byte(rootPointer)
}

// keyItem returns the key for an item record.
func keyItem(id tree.ItemID) []byte {
	return []byte(prefixItem + string(id))
}

// keyChild returns the key binding a (parent, name) pair to a child
// identity.
func keyChild(parentID tree.ItemID, name string) []byte {
	return []byte(prefixChild + string(parentID) + ":" + name)
}

// keyChildPrefix returns the scan prefix for a folder's children.
func keyChildPrefix(parentID tree.ItemID) []byte {
	return []byte(prefixChild + string(parentID) + ":")
}
