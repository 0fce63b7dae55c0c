package tree

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/davtree/internal/logger"
)

// ============================================================================
// Coordinator
// ============================================================================

// ContentManager is the minimal content coordination the coordinator needs.
//
// Copy duplicates content so that the copy has independent bytes; Delete
// releases a file's bytes after its metadata is destroyed. A nil manager is
// valid: the engine then performs metadata-only operations and content
// cleanup is left to garbage collection.
type ContentManager interface {
	// Duplicate creates an independent copy of the content identified by
	// contentID and returns the new content identifier.
	Duplicate(ctx context.Context, contentID string) (string, error)

	// Delete removes the content identified by contentID.
	Delete(ctx context.Context, contentID string) error
}

// OperationMetrics is an optional observability hook for tree operations.
// A nil value disables metrics collection entirely.
type OperationMetrics interface {
	// RecordOperation records a completed operation with its name,
	// duration, and outcome.
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordMultistatus records how many per-item failures an operation
	// collected.
	RecordMultistatus(operation string, entries int)
}

// CoordinatorOptions carries the optional collaborators of a Coordinator.
type CoordinatorOptions struct {
	// Notify receives fire-and-forget change notifications. nil disables
	// notifications.
	Notify NotificationSink

	// Quota gates content-bearing materializations. nil means unlimited.
	Quota Quota

	// Content duplicates and releases file bytes. nil means metadata-only
	// operation.
	Content ContentManager

	// Metrics records operation outcomes. nil disables metrics.
	Metrics OperationMetrics
}

// Coordinator orchestrates create, copy, move and delete across a subtree.
//
// It consults the LockOracle before every mutating step, computes paths via
// the PathCodec, records per-child failures into a Multistatus, and invokes
// the abstract Store for all durable changes. The coordinator itself is
// stateless: it holds no item state between calls and is safe for
// concurrent use as long as its collaborators are.
//
// Error policy (applies to Copy, Move and Delete):
//   - Policy errors (Locked, Conflict, Forbidden, NotFound) raised against
//     the top-level target abort the whole operation before any mutation.
//   - The same errors raised while processing a descendant are caught at
//     that recursion level and appended to the collector; siblings continue.
//   - Store failures always propagate unchanged regardless of depth.
type Coordinator struct {
	store   Store
	locks   LockOracle
	notify  NotificationSink
	quota   Quota
	content ContentManager
	metrics OperationMetrics
	codec   PathCodec
}

// NewCoordinator creates a coordinator over the given store and lock
// oracle. Optional collaborators are supplied via opts; zero-value options
// are valid and disable the corresponding concern.
func NewCoordinator(store Store, locks LockOracle, opts CoordinatorOptions) *Coordinator {
	notify := opts.Notify
	if notify == nil {
		notify = noopSink{}
	}
	return &Coordinator{
		store:   store,
		locks:   locks,
		notify:  notify,
		quota:   opts.Quota,
		content: opts.Content,
		metrics: opts.Metrics,
	}
}

// noopSink discards all notifications.
type noopSink struct{}

func (noopSink) NotifyCreated(string)       {}
func (noopSink) NotifyMoved(string, string) {}
func (noopSink) NotifyDeleted(string)       {}

// ============================================================================
// Create
// ============================================================================

// CreateFile materializes a new empty file under parentID and returns a
// handle to it.
//
// The parent folder's lock is validated first; on a Locked error nothing is
// created. The new item gets a freshly generated identifier, zero size, the
// current time for both created and modified, and attributes derived from
// its kind.
func (c *Coordinator) CreateFile(ctx context.Context, parentID ItemID, name string, tokens []string) (item *Item, err error) {
	defer c.record("CreateFile", time.Now(), &err)

	parent, parentPath, err := c.validateCreate(ctx, parentID, name, tokens)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item = &Item{
		ID:         NewItemID(),
		ParentID:   parent.ID,
		Name:       name,
		Kind:       KindFile,
		Created:    now,
		Modified:   now,
		Size:       0,
		ContentID:  NewContentID(),
		Attributes: DeriveAttributes(KindFile),
	}

	if err := c.store.Insert(ctx, item); err != nil {
		return nil, err
	}
	c.touch(ctx, parent.ID)

	path := c.codec.Join(parentPath, c.codec.Encode(name))
	c.notify.NotifyCreated(path)
	logger.Debug("CreateFile: materialized '%s'", path)
	return item, nil
}

// CreateFolder materializes a new empty folder under parentID.
//
// Folders are addressed by path going forward, so no handle is returned.
func (c *Coordinator) CreateFolder(ctx context.Context, parentID ItemID, name string, tokens []string) (err error) {
	defer c.record("CreateFolder", time.Now(), &err)

	parent, parentPath, err := c.validateCreate(ctx, parentID, name, tokens)
	if err != nil {
		return err
	}

	now := time.Now()
	item := &Item{
		ID:         NewItemID(),
		ParentID:   parent.ID,
		Name:       name,
		Kind:       KindFolder,
		Created:    now,
		Modified:   now,
		Attributes: DeriveAttributes(KindFolder),
	}

	if err := c.store.Insert(ctx, item); err != nil {
		return err
	}
	c.touch(ctx, parent.ID)

	path := c.codec.FolderPath(c.codec.Join(parentPath, c.codec.Encode(name)))
	c.notify.NotifyCreated(path)
	logger.Debug("CreateFolder: materialized '%s'", path)
	return nil
}

// validateCreate runs the shared create preconditions: the parent must be
// an existing folder whose lock the caller satisfies, and the name must be
// non-empty.
func (c *Coordinator) validateCreate(ctx context.Context, parentID ItemID, name string, tokens []string) (*Item, string, error) {
	if name == "" {
		return nil, "", &TreeError{Code: ErrConflict, Message: "item name must not be empty"}
	}

	parent, err := c.store.GetItem(ctx, parentID)
	if err != nil {
		return nil, "", err
	}
	if !parent.IsFolder() {
		return nil, "", &TreeError{Code: ErrConflict, Message: "parent is not a folder", Path: parent.Name}
	}

	parentPath, err := c.pathOf(ctx, parent)
	if err != nil {
		return nil, "", err
	}
	if err := c.requireToken(ctx, parent.ID, tokens, parentPath); err != nil {
		return nil, "", err
	}
	return parent, parentPath, nil
}

// ============================================================================
// Copy
// ============================================================================

// Copy copies sourceID under destParentID as destName.
//
// Top-level validation order:
//  1. destParentID must be an existing folder → Conflict otherwise
//  2. the caller must hold destParent's lock → Locked otherwise
//  3. destParent must not be the source or inside its subtree → Forbidden
//
// A same-name destination item is deleted first; if that delete fails the
// failure is collected and this copy branch is abandoned, leaving the
// original destination item intact. With deep set and a folder source,
// every child is copied recursively; child-level policy failures are
// collected into ms without aborting siblings. Store failures always
// propagate.
func (c *Coordinator) Copy(ctx context.Context, sourceID, destParentID ItemID, destName string, deep bool, tokens []string, ms *Multistatus) (err error) {
	defer c.record("Copy", time.Now(), &err)
	defer c.recordMultistatus("Copy", ms)

	// Validating: resolve both ends and gate on locks and structure before
	// any mutation.
	source, err := c.store.GetItem(ctx, sourceID)
	if err != nil {
		return err
	}
	destParent, destParentPath, err := c.validateDestination(ctx, destParentID, tokens)
	if err != nil {
		return err
	}
	if err := c.checkCycle(ctx, source, destParent); err != nil {
		return err
	}

	return c.copyItem(ctx, source, destParent, destParentPath, destName, deep, tokens, ms)
}

// copyItem materializes one copy and recurses into children.
//
// Policy errors for the item itself are returned to the caller (which
// collects them for child items and raises them for the top-level target);
// child-level policy errors are collected here.
func (c *Coordinator) copyItem(ctx context.Context, source, destParent *Item, destParentPath, destName string, deep bool, tokens []string, ms *Multistatus) error {
	destPath := c.codec.Join(destParentPath, c.codec.Encode(destName))
	if source.IsFolder() {
		destPath = c.codec.FolderPath(destPath)
	}

	// An existing same-name destination is removed first. If the removal
	// fails the original destination item survives and only this branch is
	// abandoned.
	if existing, err := c.store.GetChild(ctx, destParent.ID, destName); err == nil {
		removed, derr := c.deleteItem(ctx, existing, tokens, ms)
		if derr != nil {
			if IsStoreFailure(derr) {
				return derr
			}
			ms.Add(destPath, derr)
			return nil
		}
		if !removed {
			return nil
		}
	} else if CodeOf(err) != ErrNotFound {
		return err
	}

	// Applying: materialize the copy, duplicating content when a content
	// manager is attached.
	now := time.Now()
	item := &Item{
		ID:         NewItemID(),
		ParentID:   destParent.ID,
		Name:       destName,
		Kind:       source.Kind,
		Created:    now,
		Modified:   now,
		Attributes: source.Attributes,
	}
	if source.Kind == KindFile && c.content != nil && source.ContentID != "" {
		if err := c.checkQuota(ctx, source.Size, destPath); err != nil {
			return err
		}
		contentID, err := c.content.Duplicate(ctx, source.ContentID)
		if err != nil {
			return fmt.Errorf("duplicating content for %s: %w", destPath, err)
		}
		item.ContentID = contentID
		item.Size = source.Size
	}

	if err := c.store.Insert(ctx, item); err != nil {
		return err
	}
	c.touch(ctx, destParent.ID)
	c.notify.NotifyCreated(destPath)

	// RecursingChildren: each child copy isolates its own failure so the
	// remaining siblings still make progress.
	if deep && source.IsFolder() {
		children, err := c.store.ListChildren(ctx, source.ID)
		if err != nil {
			return err
		}
		for i := range children {
			child := &children[i]
			if cerr := c.copyItem(ctx, child, item, destPath, child.Name, true, tokens, ms); cerr != nil {
				if IsStoreFailure(cerr) {
					return cerr
				}
				childPath := c.codec.Join(destPath, c.codec.Encode(child.Name))
				if child.IsFolder() {
					childPath = c.codec.FolderPath(childPath)
				}
				ms.Add(childPath, cerr)
			}
		}
	}

	logger.Debug("Copy: materialized '%s' (deep=%v)", destPath, deep)
	return nil
}

// ============================================================================
// Move
// ============================================================================

// Move relocates sourceID under destParentID as destName.
//
// On top of the destination validations shared with Copy, moving requires:
//   - the source must not be the root → Conflict otherwise
//   - independently held tokens for the source item, the destination
//     parent, and the source's parent → Locked otherwise
//
// A move is copy-then-delete-source, never a metadata-only rename: a fresh
// destination item is materialized (an existing destination file is deleted
// first; an existing destination folder is reused as the merge target), and
// every child of the source is moved into it item by item so that each
// child's own lock token is independently verified. The source item is
// deleted only if every child moved successfully; otherwise it is retained
// and the failures are reported through ms.
func (c *Coordinator) Move(ctx context.Context, sourceID, destParentID ItemID, destName string, tokens []string, ms *Multistatus) (err error) {
	defer c.record("Move", time.Now(), &err)
	defer c.recordMultistatus("Move", ms)

	// Validating.
	source, err := c.store.GetItem(ctx, sourceID)
	if err != nil {
		return err
	}
	if source.IsRoot() {
		return &TreeError{Code: ErrConflict, Message: "cannot move the root item", Path: Separator}
	}
	destParent, destParentPath, err := c.validateDestination(ctx, destParentID, tokens)
	if err != nil {
		return err
	}
	if err := c.checkCycle(ctx, source, destParent); err != nil {
		return err
	}

	sourcePath, err := c.pathOf(ctx, source)
	if err != nil {
		return err
	}
	if err := c.requireToken(ctx, source.ID, tokens, sourcePath); err != nil {
		return err
	}
	sourceParent, err := c.store.GetItem(ctx, source.ParentID)
	if err != nil {
		return err
	}
	sourceParentPath, err := c.pathOf(ctx, sourceParent)
	if err != nil {
		return err
	}
	if err := c.requireToken(ctx, sourceParent.ID, tokens, sourceParentPath); err != nil {
		return err
	}

	_, err = c.moveItem(ctx, source, destParent, destParentPath, destName, tokens, ms)
	return err
}

// moveItem moves one item and recurses into its children.
//
// The returned bool reports whether the item was moved completely (itself
// and every descendant); an incomplete move retains the source item with
// its unmoved children, the failures having already been collected.
func (c *Coordinator) moveItem(ctx context.Context, source, destParent *Item, destParentPath, destName string, tokens []string, ms *Multistatus) (bool, error) {
	sourcePath, err := c.pathOf(ctx, source)
	if err != nil {
		return false, err
	}
	if err := c.requireToken(ctx, source.ID, tokens, sourcePath); err != nil {
		return false, err
	}

	destPath := c.codec.Join(destParentPath, c.codec.Encode(destName))
	if source.IsFolder() {
		destPath = c.codec.FolderPath(destPath)
	}

	// Resolve the destination item. An existing folder is reused as the
	// merge target when the source is also a folder; any other existing
	// item is deleted and a fresh destination item is materialized rather
	// than overwritten in place, so clients observe a new identity.
	var target *Item
	existing, err := c.store.GetChild(ctx, destParent.ID, destName)
	switch {
	case err == nil && existing.IsFolder() && source.IsFolder():
		target = existing
	case err == nil:
		removed, derr := c.deleteItem(ctx, existing, tokens, ms)
		if derr != nil {
			if IsStoreFailure(derr) {
				return false, derr
			}
			ms.Add(destPath, derr)
			return false, nil
		}
		if !removed {
			return false, nil
		}
	case CodeOf(err) != ErrNotFound:
		return false, err
	}

	if target == nil {
		now := time.Now()
		target = &Item{
			ID:         NewItemID(),
			ParentID:   destParent.ID,
			Name:       destName,
			Kind:       source.Kind,
			Created:    now,
			Modified:   now,
			Attributes: source.Attributes,
		}
		if source.Kind == KindFile {
			// The bytes travel with the move: the new item takes over the
			// source's content reference.
			target.ContentID = source.ContentID
			target.Size = source.Size
		}
		if err := c.store.Insert(ctx, target); err != nil {
			return false, err
		}
		c.touch(ctx, destParent.ID)
	}

	// RecursingChildren: children are moved one by one, never as a bulk
	// subtree relocation, so each child's lock is checked on its own.
	allMoved := true
	if source.IsFolder() {
		children, err := c.store.ListChildren(ctx, source.ID)
		if err != nil {
			return false, err
		}
		for i := range children {
			child := &children[i]
			complete, cerr := c.moveItem(ctx, child, target, destPath, child.Name, tokens, ms)
			if cerr != nil {
				if IsStoreFailure(cerr) {
					return false, cerr
				}
				childPath := c.codec.Join(sourcePath, c.codec.Encode(child.Name))
				if child.IsFolder() {
					childPath = c.codec.FolderPath(childPath)
				}
				ms.Add(childPath, cerr)
				allMoved = false
				continue
			}
			if !complete {
				allMoved = false
			}
		}
	}

	// Finalizing: the source is destroyed only when its whole subtree made
	// it across; otherwise it stays behind holding the failed children.
	if !allMoved {
		logger.Debug("Move: retaining '%s', some children failed to move", sourcePath)
		return false, nil
	}

	if err := c.store.DeleteItem(ctx, source.ID); err != nil {
		return false, err
	}
	c.touch(ctx, source.ParentID)
	c.notify.NotifyMoved(sourcePath, destPath)
	logger.Debug("Move: '%s' -> '%s'", sourcePath, destPath)
	return true, nil
}

// ============================================================================
// Delete
// ============================================================================

// Delete removes the subtree rooted at itemID.
//
// Top-level validation: the root cannot be deleted (Conflict), and tokens
// must be held for both the item and its parent (Locked). Children are
// deleted recursively with per-child failures collected into ms; the item
// itself is destroyed only if every child was destroyed, otherwise it
// persists with its remaining children and ms is non-empty.
func (c *Coordinator) Delete(ctx context.Context, itemID ItemID, tokens []string, ms *Multistatus) (err error) {
	defer c.record("Delete", time.Now(), &err)
	defer c.recordMultistatus("Delete", ms)

	// Validating.
	item, err := c.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.IsRoot() {
		return &TreeError{Code: ErrConflict, Message: "cannot delete the root item", Path: Separator}
	}

	path, err := c.pathOf(ctx, item)
	if err != nil {
		return err
	}
	if err := c.requireToken(ctx, item.ID, tokens, path); err != nil {
		return err
	}
	parentPath, err := c.parentPathOf(ctx, item)
	if err != nil {
		return err
	}
	if err := c.requireToken(ctx, item.ParentID, tokens, parentPath); err != nil {
		return err
	}

	_, err = c.deleteItem(ctx, item, tokens, ms)
	return err
}

// deleteItem deletes one item and recurses into its children.
//
// The returned bool reports whether the item and its whole subtree were
// destroyed. Policy errors for the item itself are returned to the caller;
// child-level failures are collected here and leave the item in place.
func (c *Coordinator) deleteItem(ctx context.Context, item *Item, tokens []string, ms *Multistatus) (bool, error) {
	path, err := c.pathOf(ctx, item)
	if err != nil {
		return false, err
	}
	if err := c.requireToken(ctx, item.ID, tokens, path); err != nil {
		return false, err
	}

	// RecursingChildren.
	if item.IsFolder() {
		allDeleted := true
		children, err := c.store.ListChildren(ctx, item.ID)
		if err != nil {
			return false, err
		}
		for i := range children {
			child := &children[i]
			complete, cerr := c.deleteItem(ctx, child, tokens, ms)
			if cerr != nil {
				if IsStoreFailure(cerr) {
					return false, cerr
				}
				childPath := c.codec.Join(path, c.codec.Encode(child.Name))
				if child.IsFolder() {
					childPath = c.codec.FolderPath(childPath)
				}
				ms.Add(childPath, cerr)
				allDeleted = false
				continue
			}
			if !complete {
				allDeleted = false
			}
		}
		if !allDeleted {
			logger.Debug("Delete: retaining '%s', some children failed to delete", path)
			return false, nil
		}
	}

	// Finalizing: destroy the item, then release its bytes. Content
	// release failures are logged and left to garbage collection; the
	// metadata delete has already succeeded and must not be reported as a
	// failure.
	if err := c.store.DeleteItem(ctx, item.ID); err != nil {
		return false, err
	}
	if item.Kind == KindFile && c.content != nil && item.ContentID != "" {
		if err := c.content.Delete(ctx, item.ContentID); err != nil {
			logger.Warn("Delete: failed to release content %s for '%s': %v", item.ContentID, path, err)
		}
	}
	c.touch(ctx, item.ParentID)
	c.notify.NotifyDeleted(path)
	logger.Debug("Delete: destroyed '%s'", path)
	return true, nil
}

// ============================================================================
// Shared helpers
// ============================================================================

// validateDestination resolves and gates a copy/move destination parent:
// it must be an existing folder (Conflict otherwise) whose lock the caller
// satisfies (Locked otherwise).
func (c *Coordinator) validateDestination(ctx context.Context, destParentID ItemID, tokens []string) (*Item, string, error) {
	destParent, err := c.store.GetItem(ctx, destParentID)
	if err != nil {
		if CodeOf(err) == ErrNotFound {
			return nil, "", &TreeError{Code: ErrConflict, Message: "destination parent is not a valid folder"}
		}
		return nil, "", err
	}
	if !destParent.IsFolder() {
		return nil, "", &TreeError{Code: ErrConflict, Message: "destination parent is not a folder", Path: destParent.Name}
	}

	destParentPath, err := c.pathOf(ctx, destParent)
	if err != nil {
		return nil, "", err
	}
	if err := c.requireToken(ctx, destParent.ID, tokens, destParentPath); err != nil {
		return nil, "", err
	}
	return destParent, destParentPath, nil
}

// checkCycle rejects operations that would place a folder inside its own
// subtree. The test is path-based and exact-segment aware.
func (c *Coordinator) checkCycle(ctx context.Context, source, destParent *Item) error {
	if source.ID == destParent.ID {
		return &TreeError{Code: ErrForbidden, Message: "destination is the source itself", Path: source.Name}
	}
	sourcePath, err := c.pathOf(ctx, source)
	if err != nil {
		return err
	}
	destPath, err := c.pathOf(ctx, destParent)
	if err != nil {
		return err
	}
	if c.codec.IsAncestorOf(sourcePath, destPath) {
		return &TreeError{Code: ErrForbidden, Message: "destination is inside the source subtree", Path: destPath}
	}
	return nil
}

// requireToken gates one mutating step on the lock oracle.
func (c *Coordinator) requireToken(ctx context.Context, id ItemID, tokens []string, path string) error {
	ok, err := c.locks.HasToken(ctx, id, tokens)
	if err != nil {
		return err
	}
	if !ok {
		return &TreeError{Code: ErrLocked, Message: "missing or invalid lock token", Path: path}
	}
	return nil
}

// checkQuota rejects a materialization that would exceed the remaining
// capacity. The check is best-effort and racy by design; the store is the
// source of truth.
func (c *Coordinator) checkQuota(ctx context.Context, size uint64, path string) error {
	if c.quota == nil || size == 0 {
		return nil
	}
	available, err := c.quota.AvailableBytes(ctx)
	if err != nil {
		return err
	}
	if size > available {
		return &TreeError{Code: ErrConflict, Message: "insufficient storage quota", Path: path}
	}
	return nil
}

// pathOf recomputes an item's encoded path from its ID→ParentID chain.
// Folder paths carry the trailing separator; the root path is "/".
func (c *Coordinator) pathOf(ctx context.Context, item *Item) (string, error) {
	if item.IsRoot() {
		return Separator, nil
	}

	var segments []string
	current := item
	for !current.IsRoot() {
		segments = append(segments, c.codec.Encode(current.Name))
		parent, err := c.store.GetItem(ctx, current.ParentID)
		if err != nil {
			return "", err
		}
		current = parent
	}

	path := ""
	for i := len(segments) - 1; i >= 0; i-- {
		path += Separator + segments[i]
	}
	if item.IsFolder() {
		path = c.codec.FolderPath(path)
	}
	return path, nil
}

// parentPathOf returns the path of an item's parent folder.
func (c *Coordinator) parentPathOf(ctx context.Context, item *Item) (string, error) {
	parent, err := c.store.GetItem(ctx, item.ParentID)
	if err != nil {
		return "", err
	}
	return c.pathOf(ctx, parent)
}

// touch bumps a folder's modified time after a child change. A vanished
// folder (raced by a concurrent delete) is not an error here.
func (c *Coordinator) touch(ctx context.Context, id ItemID) {
	now := time.Now()
	if err := c.store.UpdateMetadata(ctx, id, MetadataUpdate{Modified: &now}); err != nil {
		if CodeOf(err) != ErrNotFound {
			logger.Warn("failed to update parent timestamp: %v", err)
		}
	}
}

// record reports one finished operation to the metrics hook.
func (c *Coordinator) record(operation string, start time.Time, err *error) {
	if c.metrics != nil {
		c.metrics.RecordOperation(operation, time.Since(start), *err)
	}
}

// recordMultistatus reports the collected failure count to the metrics
// hook.
func (c *Coordinator) recordMultistatus(operation string, ms *Multistatus) {
	if c.metrics != nil && ms != nil {
		c.metrics.RecordMultistatus(operation, ms.Len())
	}
}
