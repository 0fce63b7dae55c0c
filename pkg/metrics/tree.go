package metrics

import "time"

// TreeMetrics provides observability for tree engine operations.
//
// This interface is optional - if not provided to the coordinator,
// operations proceed without metrics collection (zero overhead).
type TreeMetrics interface {
	// RecordOperation records a completed tree operation with its name,
	// duration, and outcome.
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordMultistatus records the number of per-item failures one
	// operation collected.
	RecordMultistatus(operation string, entries int)

	// SetLockedItems updates the count of currently locked items.
	SetLockedItems(count int)
}

// noopTreeMetrics discards all measurements.
type noopTreeMetrics struct{}

// NewNoopTreeMetrics returns a TreeMetrics that discards everything.
func NewNoopTreeMetrics() TreeMetrics {
	return noopTreeMetrics{}
}

func (noopTreeMetrics) RecordOperation(string, time.Duration, error) {}
func (noopTreeMetrics) RecordMultistatus(string, int)                {}
func (noopTreeMetrics) SetLockedItems(int)                           {}
