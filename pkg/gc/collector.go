// Package gc provides garbage collection for orphaned content.
//
// The tree engine never lets a content-store failure block a structural
// delete: when releasing an item's bytes fails, the item is removed from
// the tree anyway and its content is left behind as an orphan. Orphans
// can also accumulate after crashes between a structural mutation and
// the matching content release.
//
// The collector periodically walks the tree to gather every referenced
// ContentID, lists everything the content store holds, and deletes the
// difference.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/internal/ratelimiter"
	"github.com/marmos91/davtree/pkg/content"
	"github.com/marmos91/davtree/pkg/tree"
)

// Collector performs periodic garbage collection on a content store.
//
// The collector runs in the background and periodically scans for orphaned
// content (content not referenced by any tree item) and deletes it.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	treeStore    tree.Store
	contentStore content.ListableStore
	config       Config
	deleteRate   *ratelimiter.RateLimiter
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether garbage collection is active (default: false)
	Enabled bool

	// Interval is how often to run garbage collection (default: 24h)
	Interval time.Duration

	// DryRun mode logs what would be deleted without actually deleting
	// (default: false). Useful for testing and validation.
	DryRun bool

	// DeletesPerSecond throttles orphan deletion so collection never
	// starves foreground operations of backend throughput. Zero means
	// unthrottled.
	DeletesPerSecond uint
}

// NewCollector creates a new garbage collector.
//
// The collector will be initialized but not started. Call Start() to begin
// background garbage collection.
//
// Parameters:
//   - treeStore: Tree store to walk for referenced content
//   - contentStore: Content store to scan and delete orphans from; it must
//     implement content.ListableStore
//   - config: Garbage collection configuration
//
// Returns:
//   - *Collector: Initialized collector (not started)
//   - error: Returns error if the content store cannot enumerate its IDs
func NewCollector(
	treeStore tree.Store,
	contentStore content.ContentStore,
	config Config,
) (*Collector, error) {
	listable, ok := contentStore.(content.ListableStore)
	if !ok {
		return nil, fmt.Errorf("content store does not implement ListableStore interface")
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}

	return &Collector{
		treeStore:    treeStore,
		contentStore: listable,
		config:       config,
		deleteRate:   ratelimiter.New(config.DeletesPerSecond, config.DeletesPerSecond),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins background garbage collection.
//
// This starts a goroutine that periodically runs garbage collection at the
// configured interval. The goroutine will run until Stop() is called.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s dry_run=%v",
		c.config.Interval, c.config.DryRun)

	go c.worker()
}

// Stop stops the garbage collector and waits for it to finish.
//
// This signals the worker goroutine to stop and waits for it to complete
// any in-progress collection.
//
// Parameters:
//   - ctx: Context for timeout (shutdown is abandoned if context expires)
//
// Returns:
//   - error: Returns error if context expires before shutdown completes
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping garbage collector...")

	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate garbage collection run.
//
// This is useful for testing, manual triggers and initial cleanup on
// startup. The method blocks until collection completes or the context is
// cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - *Stats: Collection statistics
//   - error: Returns error if collection fails or context is cancelled
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running garbage collection (manual trigger)...")
	return c.collect(ctx)
}

// worker is the background goroutine that runs periodic garbage collection.
func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	logger.Info("Garbage collector worker started")

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			logger.Info("Garbage collector worker stopping...")
			return
		}
	}
}

// collect performs a single garbage collection run.
//
// This is the core GC algorithm:
//  1. Walk the tree from the root and gather every referenced ContentID
//  2. List all ContentIDs in the content store
//  3. Compute orphaned = existing - referenced
//  4. Delete orphaned content
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - *Stats: Collection statistics
//   - error: Returns error if collection fails
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Info("GC: Phase 1 - Walking tree for referenced content...")

	referenced := make(map[string]struct{})
	root, err := c.treeStore.Root(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load tree root: %w", err)
	}
	if err := c.gatherReferenced(ctx, root.ID, referenced); err != nil {
		return stats, fmt.Errorf("failed to walk tree: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))

	logger.Info("GC: Found %d referenced content items", stats.ReferencedCount)

	logger.Info("GC: Phase 2 - Listing content store...")

	existing, err := c.contentStore.ListAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	logger.Info("GC: Found %d existing content items", stats.ExistingCount)

	orphaned := make([]string, 0)
	for _, id := range existing {
		if _, isReferenced := referenced[id]; !isReferenced {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		logger.Info("GC: No orphaned content found")
		stats.EndTime = time.Now()
		return stats, nil
	}

	logger.Info("GC: Found %d orphaned content items", stats.OrphanedCount)

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - Would delete %d items:", stats.OrphanedCount)
		for i, id := range orphaned {
			if i < 10 {
				logger.Info("  - %s", id)
			}
		}
		if len(orphaned) > 10 {
			logger.Info("  ... and %d more", len(orphaned)-10)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	logger.Info("GC: Phase 3 - Deleting orphaned content...")

	for _, id := range orphaned {
		if err := c.deleteRate.Wait(ctx); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		if err := c.contentStore.Delete(ctx, id); err != nil {
			logger.Debug("GC: Failed to delete %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	stats.EndTime = time.Now()

	logger.Info("GC: Completed - deleted %d items, %d failed, duration=%s",
		stats.DeletedCount, stats.FailedCount, stats.Duration())

	return stats, nil
}

// gatherReferenced walks the subtree rooted at folderID and records the
// ContentID of every file item it finds.
func (c *Collector) gatherReferenced(
	ctx context.Context,
	folderID tree.ItemID,
	referenced map[string]struct{},
) error {
	children, err := c.treeStore.ListChildren(ctx, folderID)
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.IsFolder() {
			if err := c.gatherReferenced(ctx, child.ID, referenced); err != nil {
				return err
			}
			continue
		}
		if child.ContentID != "" {
			referenced[child.ContentID] = struct{}{}
		}
	}
	return nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time // When collection started
	EndTime         time.Time // When collection ended
	ReferencedCount uint64    // Number of ContentIDs referenced by the tree
	ExistingCount   uint64    // Number of ContentIDs in the content store
	OrphanedCount   uint64    // Number of orphaned ContentIDs found
	DeletedCount    uint64    // Number of orphans successfully deleted
	FailedCount     uint64    // Number of orphans that failed to delete
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
