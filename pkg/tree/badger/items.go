package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/davtree/pkg/tree"
)

// Root returns the namespace root item.
func (s *BadgerStore) Root(ctx context.Context) (*tree.Item, error) {
	return s.GetItem(ctx, s.rootID)
}

// GetItem retrieves an item by identity.
func (s *BadgerStore) GetItem(ctx context.Context, id tree.ItemID) (*tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var item *tree.Item
	err := s.db.View(func(txn *badger.Txn) error {
		loaded, err := getItemTxn(txn, id)
		if err != nil {
			return err
		}
		item = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetChild resolves a sibling-unique name within a folder.
func (s *BadgerStore) GetChild(ctx context.Context, parentID tree.ItemID, name string) (*tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var item *tree.Item
	err := s.db.View(func(txn *badger.Txn) error {
		parent, err := getItemTxn(txn, parentID)
		if err != nil {
			return &tree.TreeError{Code: tree.ErrNotFound, Message: "folder not found"}
		}
		if parent.Kind != tree.KindFolder {
			return &tree.TreeError{Code: tree.ErrNotFound, Message: "folder not found"}
		}

		childID, err := getChildIDTxn(txn, parentID, name)
		if err != nil {
			return err
		}
		loaded, err := getItemTxn(txn, childID)
		if err != nil {
			return err
		}
		item = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListChildren returns the immediate children of a folder.
//
// Children are read with a single prefix scan over the folder's child
// namespace; the resulting order is the store's key order (lexicographic
// by name), which callers must not rely on.
func (s *BadgerStore) ListChildren(ctx context.Context, parentID tree.ItemID) ([]tree.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var out []tree.Item
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getItemTxn(txn, parentID); err != nil {
			return &tree.TreeError{Code: tree.ErrNotFound, Message: "folder not found"}
		}

		prefix := keyChildPrefix(parentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		out = []tree.Item{}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var childID tree.ItemID
			if err := it.Item().Value(func(val []byte) error {
				childID = tree.ItemID(val)
				return nil
			}); err != nil {
				return fmt.Errorf("failed to read child entry: %w", err)
			}
			child, err := getItemTxn(txn, childID)
			if err != nil {
				return fmt.Errorf("dangling child entry %s: %w", childID, err)
			}
			out = append(out, *child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Insert materializes a new item.
func (s *BadgerStore) Insert(ctx context.Context, item *tree.Item) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		if item.ID == "" || item.Name == "" {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "item must have an ID and a name"}
		}
		if _, err := txn.Get(keyItem(item.ID)); err == nil {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "item ID already in use"}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to check item key: %w", err)
		}

		parent, err := getItemTxn(txn, item.ParentID)
		if err != nil {
			return &tree.TreeError{Code: tree.ErrNotFound, Message: "parent folder not found"}
		}
		if parent.Kind != tree.KindFolder {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "parent is not a folder", Path: parent.Name}
		}
		if _, err := txn.Get(keyChild(item.ParentID, item.Name)); err == nil {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "a sibling with this name already exists", Path: item.Name}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to check child key: %w", err)
		}

		data, err := encodeItem(item)
		if err != nil {
			return err
		}
		if err := txn.Set(keyItem(item.ID), data); err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}
		if err := txn.Set(keyChild(item.ParentID, item.Name), []byte(item.ID)); err != nil {
			return fmt.Errorf("failed to store child entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateUsedCache()
	return nil
}

// UpdateMetadata applies a selective metadata update.
func (s *BadgerStore) UpdateMetadata(ctx context.Context, id tree.ItemID, update tree.MetadataUpdate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := getItemTxn(txn, id)
		if err != nil {
			return err
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
			if id == s.rootID {
				return &tree.TreeError{Code: tree.ErrConflict, Message: "cannot rename or reparent the root item"}
			}
			newParent, err := getItemTxn(txn, newParentID)
			if err != nil {
				return &tree.TreeError{Code: tree.ErrNotFound, Message: "new parent folder not found"}
			}
			if newParent.Kind != tree.KindFolder {
				return &tree.TreeError{Code: tree.ErrConflict, Message: "new parent is not a folder", Path: newParent.Name}
			}
			if existingID, err := getChildIDTxn(txn, newParentID, newName); err == nil && existingID != id {
				return &tree.TreeError{Code: tree.ErrConflict, Message: "a sibling with this name already exists", Path: newName}
			} else if err != nil && !isNotFound(err) {
				return err
			}

			if err := txn.Delete(keyChild(item.ParentID, item.Name)); err != nil {
				return fmt.Errorf("failed to remove old child entry: %w", err)
			}
			if err := txn.Set(keyChild(newParentID, newName), []byte(id)); err != nil {
				return fmt.Errorf("failed to store new child entry: %w", err)
			}
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

		data, err := encodeItem(item)
		if err != nil {
			return err
		}
		if err := txn.Set(keyItem(id), data); err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if update.Size != nil {
		s.invalidateUsedCache()
	}
	return nil
}

// DeleteItem destroys a single item.
//
// The root cannot be deleted, and a folder must be empty: recursive
// destruction is the engine's job, item by item.
func (s *BadgerStore) DeleteItem(ctx context.Context, id tree.ItemID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := getItemTxn(txn, id)
		if err != nil {
			return err
		}
		if id == s.rootID {
			return &tree.TreeError{Code: tree.ErrConflict, Message: "cannot delete the root item"}
		}
		if item.Kind == tree.KindFolder {
			empty, err := folderEmptyTxn(txn, id)
			if err != nil {
				return err
			}
			if !empty {
				return &tree.TreeError{Code: tree.ErrConflict, Message: "folder still has children", Path: item.Name}
			}
		}

		if err := txn.Delete(keyChild(item.ParentID, item.Name)); err != nil {
			return fmt.Errorf("failed to remove child entry: %w", err)
		}
		if err := txn.Delete(keyItem(id)); err != nil {
			return fmt.Errorf("failed to remove item: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateUsedCache()
	return nil
}

// UsedBytes returns the sum of all item sizes.
//
// The result of the scan is cached for a short TTL and invalidated on any
// size-changing mutation, so quota checks during a deep recursive copy do
// not rescan the whole database for every file.
func (s *BadgerStore) UsedBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	s.usedCache.mu.Lock()
	if s.usedCache.hasValue && time.Since(s.usedCache.timestamp) < s.usedCache.ttl {
		value := s.usedCache.value
		s.usedCache.mu.Unlock()
		return value, nil
	}
	s.usedCache.mu.Unlock()

	var total uint64
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixItem)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				item, err := decodeItem(val)
				if err != nil {
					return err
				}
				total += item.Size
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.usedCache.mu.Lock()
	s.usedCache.value = total
	s.usedCache.hasValue = true
	s.usedCache.timestamp = time.Now()
	s.usedCache.mu.Unlock()
	return total, nil
}

// getItemTxn reads and decodes an item record inside a transaction.
func getItemTxn(txn *badger.Txn, id tree.ItemID) (*tree.Item, error) {
	entry, err := txn.Get(keyItem(id))
	if err == badger.ErrKeyNotFound {
		return nil, &tree.TreeError{Code: tree.ErrNotFound, Message: "item not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}

	var item *tree.Item
	err = entry.Value(func(val []byte) error {
		decoded, err := decodeItem(val)
		if err != nil {
			return err
		}
		item = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// getChildIDTxn resolves a (parent, name) pair to a child identity inside
// a transaction.
func getChildIDTxn(txn *badger.Txn, parentID tree.ItemID, name string) (tree.ItemID, error) {
	entry, err := txn.Get(keyChild(parentID, name))
	if err == badger.ErrKeyNotFound {
		return "", &tree.TreeError{Code: tree.ErrNotFound, Message: "no child with this name", Path: name}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read child entry: %w", err)
	}

	var childID tree.ItemID
	err = entry.Value(func(val []byte) error {
		childID = tree.ItemID(val)
		return nil
	})
	if err != nil {
		return "", err
	}
	return childID, nil
}

// folderEmptyTxn reports whether a folder has no children.
func folderEmptyTxn(txn *badger.Txn, id tree.ItemID) (bool, error) {
	prefix := keyChildPrefix(id)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	return !it.ValidForPrefix(prefix), nil
}

// isNotFound reports whether an error is an ErrNotFound business error.
func isNotFound(err error) bool {
	terr, ok := tree.AsTreeError(err)
	return ok && terr.Code == tree.ErrNotFound
}
