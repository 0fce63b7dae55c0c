// Package lock provides the in-memory lock-token table backing the
// engine's LockOracle.
//
// A lock associates an item with one or more holders, each identified by
// an opaque token. Exclusive locks admit a single holder; shared locks
// admit any number of shared holders. Locks may expire after a TTL and are
// pruned lazily on access.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/davtree/internal/logger"
	"github.com/marmos91/davtree/pkg/tree"
)

// holder is one client's grip on a lock.
type holder struct {
	token     string
	owner     string
	exclusive bool

	// expires is the holder's expiry time; zero means no expiry.
	expires time.Time
}

func (h *holder) expired(now time.Time) bool {
	return !h.expires.IsZero() && now.After(h.expires)
}

// Options configures a lock acquisition.
type Options struct {
	// Owner is an informational identifier of the lock holder.
	Owner string

	// Exclusive requests an exclusive lock. A shared lock (false) can
	// coexist with other shared holders.
	Exclusive bool

	// TTL is how long the lock remains valid. Zero falls back to the
	// manager's default TTL when one is configured, otherwise no expiry.
	TTL time.Duration
}

// Manager is an in-memory lock-token table implementing tree.LockOracle.
//
// Subtree checks walk the store recursively: every descendant must
// individually satisfy the single-item check. The manager has no
// side effects on the tree itself.
//
// Thread Safety:
// All operations are protected by a single mutex; even read paths
// mutate the table because lookups prune expired holders in place.
type Manager struct {
	mu      sync.Mutex
	store   tree.Store
	locks   map[tree.ItemID][]holder
	onCount func(int)

	defaultTTL time.Duration
	maxTTL     time.Duration
}

// NewManager creates a lock manager walking subtrees through store.
func NewManager(store tree.Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[tree.ItemID][]holder),
	}
}

// SetTTLBounds configures the lifetime policy for acquisitions and
// refreshes: requests without a TTL get defaultTTL, and requested TTLs
// are clamped to maxTTL. A zero bound leaves that side unrestricted.
func (m *Manager) SetTTLBounds(defaultTTL, maxTTL time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTTL = defaultTTL
	m.maxTTL = maxTTL
}

// effectiveTTL applies the configured bounds to a requested TTL.
// Callers must hold m.mu.
func (m *Manager) effectiveTTL(requested time.Duration) time.Duration {
	if requested == 0 {
		requested = m.defaultTTL
	}
	if m.maxTTL > 0 && (requested == 0 || requested > m.maxTTL) {
		requested = m.maxTTL
	}
	return requested
}

// SetCountObserver registers a callback invoked with the number of locked
// items whenever the lock table changes. Used to feed a metrics gauge.
func (m *Manager) SetCountObserver(fn func(int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCount = fn
}

// notifyCountLocked reports the current table size to the observer.
// Callers must hold m.mu.
func (m *Manager) notifyCountLocked() {
	if m.onCount != nil {
		m.onCount(len(m.locks))
	}
}

// Lock acquires a lock on an item and returns the new token.
//
// Returns:
//   - string: the token proving the right to mutate the item
//   - error: ErrLocked when the item already carries a conflicting lock
//     (any lock conflicts with an exclusive request; an exclusive holder
//     conflicts with any request)
func (m *Manager) Lock(ctx context.Context, id tree.ItemID, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	holders := m.prune(id, now)

	for i := range holders {
		if opts.Exclusive || holders[i].exclusive {
			return "", &tree.TreeError{Code: tree.ErrLocked, Message: "item is already locked"}
		}
	}

	h := holder{
		token:     "urn:uuid:" + uuid.NewString(),
		owner:     opts.Owner,
		exclusive: opts.Exclusive,
	}
	if ttl := m.effectiveTTL(opts.TTL); ttl > 0 {
		h.expires = now.Add(ttl)
	}
	m.locks[id] = append(holders, h)
	m.notifyCountLocked()

	logger.Debug("Lock: granted %s token on item %s to '%s'", lockKind(opts.Exclusive), id, opts.Owner)
	return h.token, nil
}

// Unlock releases the holder identified by token.
//
// Returns ErrConflict when the item carries no such token.
func (m *Manager) Unlock(ctx context.Context, id tree.ItemID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holders := m.prune(id, time.Now())
	for i := range holders {
		if holders[i].token == token {
			remaining := append(holders[:i:i], holders[i+1:]...)
			if len(remaining) == 0 {
				delete(m.locks, id)
			} else {
				m.locks[id] = remaining
			}
			m.notifyCountLocked()
			return nil
		}
	}
	return &tree.TreeError{Code: tree.ErrConflict, Message: "no lock held under this token"}
}

// Refresh extends the expiry of the holder identified by token.
func (m *Manager) Refresh(ctx context.Context, id tree.ItemID, token string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	holders := m.prune(id, now)
	for i := range holders {
		if holders[i].token == token {
			if ttl = m.effectiveTTL(ttl); ttl > 0 {
				holders[i].expires = now.Add(ttl)
			} else {
				holders[i].expires = time.Time{}
			}
			return nil
		}
	}
	return &tree.TreeError{Code: tree.ErrConflict, Message: "no lock held under this token"}
}

// HasToken reports whether the submitted tokens satisfy the lock on a
// single item: the item is unlocked, or one of the submitted tokens belongs
// to a currently valid holder.
func (m *Manager) HasToken(ctx context.Context, id tree.ItemID, tokens []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasTokenLocked(id, tokens), nil
}

// HasTokenForSubtree recursively requires every item in the subtree rooted
// at id, files and folders alike, to individually satisfy HasToken.
func (m *Manager) HasTokenForSubtree(ctx context.Context, id tree.ItemID, tokens []string) (bool, error) {
	ok, err := m.HasToken(ctx, id, tokens)
	if err != nil || !ok {
		return ok, err
	}

	item, err := m.store.GetItem(ctx, id)
	if err != nil {
		return false, err
	}
	if item.Kind != tree.KindFolder {
		return true, nil
	}

	children, err := m.store.ListChildren(ctx, id)
	if err != nil {
		return false, err
	}
	for i := range children {
		ok, err := m.HasTokenForSubtree(ctx, children[i].ID, tokens)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// Count returns the number of currently locked items.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for id := range m.locks {
		if len(m.prune(id, now)) > 0 {
			count++
		}
	}
	return count
}

// hasTokenLocked is HasToken with the mutex already held.
func (m *Manager) hasTokenLocked(id tree.ItemID, tokens []string) bool {
	holders := m.prune(id, time.Now())
	if len(holders) == 0 {
		return true
	}
	for i := range holders {
		for _, token := range tokens {
			if holders[i].token == token {
				return true
			}
		}
	}
	return false
}

// prune drops expired holders for id and returns the remaining ones.
// Callers must hold the mutex.
func (m *Manager) prune(id tree.ItemID, now time.Time) []holder {
	holders := m.locks[id]
	remaining := holders[:0]
	for i := range holders {
		if !holders[i].expired(now) {
			remaining = append(remaining, holders[i])
		}
	}
	if len(remaining) == 0 {
		delete(m.locks, id)
		return nil
	}
	m.locks[id] = remaining
	return remaining
}

func lockKind(exclusive bool) string {
	if exclusive {
		return "exclusive"
	}
	return "shared"
}
