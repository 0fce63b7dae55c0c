package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/pkg/tree"
)

// BadgerStore implements tree.Store using BadgerDB for persistence.
//
// This implementation provides a persistent item store backed by BadgerDB,
// a fast embedded key-value store. It is suitable for:
//   - Production environments requiring persistence across restarts
//   - Systems where item identity must survive server crashes
//   - Multi-GB metadata storage requirements
//
// Storage Model:
// The store uses a key-value model with namespaced prefixes (see keys.go
// for the schema). Point lookups are O(1) and directory listings are
// prefix range scans.
//
// Thread Safety:
// BadgerDB transactions provide isolation; a single additional mutex
// serializes mutations so sibling-uniqueness checks and inserts are not
// racy between engine operations.
type BadgerStore struct {
	// mu serializes mutating operations.
	mu sync.Mutex

	// db is the BadgerDB database handle
	db *badger.DB

	// rootID is the identity of the namespace root, loaded or created at
	// open time.
	rootID tree.ItemID

	// usedCache caches the used-bytes scan result. Computing used bytes
	// requires scanning all item entries, which is too slow to repeat for
	// every quota check.
	usedCache struct {
		mu        sync.Mutex
		value     uint64
		hasValue  bool
		timestamp time.Time
		ttl       time.Duration
	}
}

// Config contains configuration for creating a BadgerDB item store.
type Config struct {
	// DBPath is the directory where BadgerDB will store its files.
	DBPath string

	// BadgerOptions allows customization of BadgerDB behavior.
	// If nil, sensible defaults are used.
	BadgerOptions *badger.Options

	// UsedBytesTTL is how long a used-bytes scan result is served from
	// cache. Zero means a 5 second default.
	UsedBytesTTL time.Duration
}

// NewBadgerStore opens (or creates) a BadgerDB-backed store and ensures
// the namespace root exists.
func NewBadgerStore(ctx context.Context, config Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		// Metadata entries are small; compression overhead is not worth it.
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerStore{db: db}
	store.usedCache.ttl = config.UsedBytesTTL
	if store.usedCache.ttl == 0 {
		store.usedCache.ttl = 5 * time.Second
	}

	if err := store.ensureRoot(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("BadgerStore: opened at %s (root %s)", config.DBPath, store.rootID)
	return store, nil
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// ensureRoot loads the root pointer, creating a fresh root folder on first
// open.
func (s *BadgerStore) ensureRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := txn.Get(keyRoot())
		if err == nil {
			return entry.Value(func(val []byte) error {
				s.rootID = tree.ItemID(val)
				return nil
			})
		}
		if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to read root pointer: %w", err)
		}

		now := time.Now()
		root := &tree.Item{
			ID:         tree.NewItemID(),
			Name:       "",
			Kind:       tree.KindFolder,
			Created:    now,
			Modified:   now,
			Attributes: tree.DeriveAttributes(tree.KindFolder),
		}
		rootBytes, err := encodeItem(root)
		if err != nil {
			return err
		}
		if err := txn.Set(keyItem(root.ID), rootBytes); err != nil {
			return fmt.Errorf("failed to store root item: %w", err)
		}
		if err := txn.Set(keyRoot(), []byte(root.ID)); err != nil {
			return fmt.Errorf("failed to store root pointer: %w", err)
		}
		s.rootID = root.ID
		return nil
	})
}

// invalidateUsedCache drops the cached used-bytes value after a mutation
// that changes sizes.
func (s *BadgerStore) invalidateUsedCache() {
	s.usedCache.mu.Lock()
	s.usedCache.hasValue = false
	s.usedCache.mu.Unlock()
}
