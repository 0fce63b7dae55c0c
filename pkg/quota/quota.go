// Package quota derives remaining storage capacity from a configured
// ceiling and the store's used-bytes accounting.
package quota

import (
	"context"
	"math"

	"github.com/marmos91/davtree/pkg/tree"
)

// StaticQuota implements tree.Quota as (configured total) − (used bytes).
//
// The value is advisory: it is not transactionally tied to writes, so a
// race between two near-capacity writes can transiently permit an
// over-quota write. The store remains the source of truth.
type StaticQuota struct {
	total uint64
	store tree.Store
}

// New creates a quota with the given total capacity in bytes.
// A total of 0 means unlimited.
func New(totalBytes uint64, store tree.Store) *StaticQuota {
	return &StaticQuota{total: totalBytes, store: store}
}

// AvailableBytes returns the remaining capacity.
func (q *StaticQuota) AvailableBytes(ctx context.Context) (uint64, error) {
	if q.total == 0 {
		return math.MaxUint64, nil
	}
	used, err := q.store.UsedBytes(ctx)
	if err != nil {
		return 0, err
	}
	if used >= q.total {
		return 0, nil
	}
	return q.total - used, nil
}
