package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/davtree/pkg/tree"
)

// MemoryStore implements tree.Store using in-memory storage.
//
// This implementation provides a fully functional item store backed by
// in-memory maps. It is suitable for:
//   - Testing and development environments
//   - Ephemeral trees where persistence is not required
//   - Reference behavior for other Store implementations
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the
// store safe for concurrent access from multiple goroutines. This
// coarse-grained locking is simple and correct.
//
// Storage Model:
//   - items: maps item IDs to item metadata (the primary storage)
//   - children: maps folder IDs to their child entries (name → ID),
//     maintaining the tree structure and sibling-name uniqueness
//
// Invariants maintained by every operation:
//   - every non-root item's ParentID names an existing folder
//   - every entry in children corresponds to a valid item in items
//   - parent-child relationships are bidirectional
//   - the root item always exists, with an empty ParentID
type MemoryStore struct {
	mu sync.RWMutex

	// items maps item IDs to item metadata.
	items map[tree.ItemID]*tree.Item

	// children maps folder IDs to child entries by name.
	children map[tree.ItemID]map[string]tree.ItemID

	// rootID is the identity of the namespace root.
	rootID tree.ItemID
}

// NewMemoryStore creates an in-memory store with a fresh root folder.
//
// The returned store is immediately ready for use and safe for concurrent
// access from multiple goroutines.
func NewMemoryStore() *MemoryStore {
	now := time.Now()
	root := &tree.Item{
		ID:         tree.NewItemID(),
		Name:       "",
		Kind:       tree.KindFolder,
		Created:    now,
		Modified:   now,
		Attributes: tree.DeriveAttributes(tree.KindFolder),
	}
	return &MemoryStore{
		items:    map[tree.ItemID]*tree.Item{root.ID: root},
		children: map[tree.ItemID]map[string]tree.ItemID{root.ID: {}},
		rootID:   root.ID,
	}
}

// Root returns the namespace root item.
func (s *MemoryStore) Root(ctx context.Context) (*tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyItem(s.items[s.rootID]), nil
}

// GetItem retrieves an item by identity.
func (s *MemoryStore) GetItem(ctx context.Context, id tree.ItemID) (*tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, &tree.TreeError{Code: tree.ErrNotFound, Message: "item not found"}
	}
	return copyItem(item), nil
}

// GetChild resolves a sibling-unique name within a folder.
func (s *MemoryStore) GetChild(ctx context.Context, parentID tree.ItemID, name string) (*tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, exists := s.children[parentID]
	if !exists {
		return nil, &tree.TreeError{Code: tree.ErrNotFound, Message: "folder not found"}
	}
	childID, exists := entries[name]
	if !exists {
		return nil, &tree.TreeError{Code: tree.ErrNotFound, Message: "no child with this name", Path: name}
	}
	return copyItem(s.items[childID]), nil
}

// ListChildren returns the immediate children of a folder.
//
// The order is the store's natural (map iteration) order; callers needing
// a defined order sort the result themselves.
func (s *MemoryStore) ListChildren(ctx context.Context, parentID tree.ItemID) ([]tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, exists := s.children[parentID]
	if !exists {
		if _, ok := s.items[parentID]; !ok {
			return nil, &tree.TreeError{Code: tree.ErrNotFound, Message: "folder not found"}
		}
		return []tree.Item{}, nil
	}

	out := make([]tree.Item, 0, len(entries))
	for _, childID := range entries {
		out = append(out, *copyItem(s.items[childID]))
	}
	return out, nil
}

// Insert materializes a new item.
func (s *MemoryStore) Insert(ctx context.Context, item *tree.Item) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || item.Name == "" {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "item must have an ID and a name"}
	}
	if _, exists := s.items[item.ID]; exists {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "item ID already in use"}
	}

	parent, exists := s.items[item.ParentID]
	if !exists {
		return &tree.TreeError{Code: tree.ErrNotFound, Message: "parent folder not found"}
	}
	if parent.Kind != tree.KindFolder {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "parent is not a folder", Path: parent.Name}
	}
	if _, exists := s.children[item.ParentID][item.Name]; exists {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "a sibling with this name already exists", Path: item.Name}
	}

	stored := copyItem(item)
	s.items[stored.ID] = stored
	s.children[stored.ParentID][stored.Name] = stored.ID
	if stored.Kind == tree.KindFolder {
		s.children[stored.ID] = map[string]tree.ItemID{}
	}
	return nil
}

// UpdateMetadata applies a selective metadata update.
func (s *MemoryStore) UpdateMetadata(ctx context.Context, id tree.ItemID, update tree.MetadataUpdate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return &tree.TreeError{Code: tree.ErrNotFound, Message: "item not found"}
	}

	newName := item.Name
	if update.Name != nil {
		newName = *update.Name
	}
	newParentID := item.ParentID
	if update.ParentID != nil {
		newParentID = *update.ParentID
	}

	if newName != item.Name || newParentID != item.ParentID {
		if item.ID == s.rootID {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "cannot rename or reparent the root item"}
		}
		newParent, exists := s.items[newParentID]
		if !exists {
			return &tree.TreeError{Code: tree.ErrNotFound, Message: "new parent folder not found"}
		}
		if newParent.Kind != tree.KindFolder {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "new parent is not a folder", Path: newParent.Name}
		}
		if existingID, exists := s.children[newParentID][newName]; exists && existingID != id {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "a sibling with this name already exists", Path: newName}
		}

		delete(s.children[item.ParentID], item.Name)
		s.children[newParentID][newName] = id
		item.Name = newName
		item.ParentID = newParentID
	}

	if update.Modified != nil {
		item.Modified = *update.Modified
	}
	if update.Size != nil {
		item.Size = *update.Size
	}
	if update.ContentID != nil {
		item.ContentID = *update.ContentID
	}
	if update.Attributes != nil {
		item.Attributes = *update.Attributes
	}
	return nil
}

// DeleteItem destroys a single item.
//
// The root cannot be deleted, and a folder must be empty: recursive
// destruction is the engine's job, item by item.
func (s *MemoryStore) DeleteItem(ctx context.Context, id tree.ItemID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return &tree.TreeError{Code: tree.ErrNotFound, Message: "item not found"}
	}
	if id == s.rootID {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "cannot delete the root item"}
	}
	if item.Kind == tree.KindFolder && len(s.children[id]) > 0 {
		return &tree.TreeError{Code: tree.ErrConflict, Message: "folder still has children", Path: item.Name}
	}

	delete(s.children[item.ParentID], item.Name)
	delete(s.children, id)
	delete(s.items, id)
	return nil
}

// UsedBytes returns the sum of all item sizes.
func (s *MemoryStore) UsedBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for _, item := range s.items {
		total += item.Size
	}
	return total, nil
}

// copyItem returns an independent copy so callers can never alias the
// store's internal state.
func copyItem(item *tree.Item) *tree.Item {
	out := *item
	return &out
}
