package tree

// MultistatusEntry reports the failure of one item within a bulk operation.
type MultistatusEntry struct {
	// Path is the tree path of the failed item.
	Path string

	// Code is the policy error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string
}

// Multistatus accumulates per-item failures across one recursive operation
// without aborting the operation itself.
//
// Insertion order is preserved. A single-item failure discovered while
// processing a descendant is only ever collected here, never raised past
// its recursion level; the operation as a whole either completes with an
// empty collector (full success), completes with entries (partial success,
// multistatus semantics), or fails up front with a top-level error before
// any mutation was attempted.
//
// Multistatus is not safe for concurrent use; each logical operation owns
// its own collector for the duration of the request.
type Multistatus struct {
	entries []MultistatusEntry
}

// NewMultistatus returns an empty collector.
func NewMultistatus() *Multistatus {
	return &Multistatus{}
}

// Add records a failure for the item at path.
//
// The error's category and message are taken from its TreeError if it is
// one; anything else is classified as a store failure (callers should not
// normally collect those, see IsStoreFailure).
func (m *Multistatus) Add(path string, err error) {
	entry := MultistatusEntry{Path: path, Code: CodeOf(err)}
	if te, ok := AsTreeError(err); ok {
		entry.Message = te.Message
	} else if err != nil {
		entry.Message = err.Error()
	}
	m.entries = append(m.entries, entry)
}

// Empty reports whether no failures were collected.
func (m *Multistatus) Empty() bool {
	return len(m.entries) == 0
}

// Len returns the number of collected failures.
func (m *Multistatus) Len() int {
	return len(m.entries)
}

// Entries returns the collected failures in insertion order.
// The returned slice is a copy.
func (m *Multistatus) Entries() []MultistatusEntry {
	out := make([]MultistatusEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
