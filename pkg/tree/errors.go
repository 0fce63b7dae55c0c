package tree

import "errors"

// TreeError represents a policy error from tree operations.
//
// These are business logic errors (missing lock token, structural cycle,
// invalid destination) as opposed to infrastructure errors (disk failure,
// corrupted store state). Infrastructure errors are plain wrapped errors and
// are always fatal to the whole operation; policy errors raised while
// processing a descendant are collected into a Multistatus instead.
//
// Protocol layers translate ErrorCode to their own status codes (e.g.
// WebDAV 423 Locked, 409 Conflict, 403 Forbidden).
type TreeError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the tree path related to the error (if known)
	Path string
}

// Error implements the error interface.
func (e *TreeError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a tree policy error.
type ErrorCode int

const (
	// ErrLocked indicates a missing or invalid lock token for the target
	// item or one of its descendants.
	ErrLocked ErrorCode = iota

	// ErrConflict indicates an invalid destination, a root violation, or a
	// same-name destination that could not be resolved.
	ErrConflict

	// ErrForbidden indicates a structurally invalid operation, such as
	// copying or moving a folder into its own subtree.
	ErrForbidden

	// ErrNotFound indicates a missing source or destination item.
	ErrNotFound

	// ErrStoreFailure indicates an I/O-level store error. It is always
	// fatal to the whole operation and is never collected per child.
	ErrStoreFailure
)

func (c ErrorCode) String() string {
	switch c {
	case ErrLocked:
		return "locked"
	case ErrConflict:
		return "conflict"
	case ErrForbidden:
		return "forbidden"
	case ErrNotFound:
		return "not-found"
	case ErrStoreFailure:
		return "store-failure"
	default:
		return "unknown"
	}
}

// AsTreeError unwraps err into a *TreeError if it is one.
func AsTreeError(err error) (*TreeError, bool) {
	var te *TreeError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// CodeOf returns the error category of err.
//
// Anything that is not a TreeError is an infrastructure failure and is
// classified as ErrStoreFailure.
func CodeOf(err error) ErrorCode {
	if te, ok := AsTreeError(err); ok {
		return te.Code
	}
	return ErrStoreFailure
}

// IsStoreFailure reports whether err must propagate unchanged instead of
// being collected. This is true for explicit ErrStoreFailure codes and for
// any error that is not a TreeError at all, since the store is then in an
// unknown state.
func IsStoreFailure(err error) bool {
	return CodeOf(err) == ErrStoreFailure
}
