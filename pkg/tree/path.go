package tree

import (
	"net/url"
	"strings"
)

// Separator delimits path segments.
const Separator = "/"

// PathCodec maps between logical item names and encoded path segments.
//
// Paths are slash-delimited sequences of encoded sibling-unique names from
// the root to an item, always recomputable from the ID→ParentID chain.
// Folder paths carry a trailing separator.
//
// Encode and Decode are exact inverses for every accepted name; Decode
// rejects ambiguous or malformed encodings rather than guessing.
type PathCodec struct{}

// Encode escapes a single item name into a url-safe path segment.
//
// The separator itself is escaped, so an encoded segment never introduces
// extra path levels regardless of the characters in the name.
func (PathCodec) Encode(name string) string {
	return url.PathEscape(name)
}

// Decode is the inverse of Encode.
//
// It fails for:
//   - empty segments (no item has an empty name)
//   - segments containing a raw separator (ambiguous: the joined path could
//     not be split back into the same segments)
//   - malformed percent escapes
func (PathCodec) Decode(segment string) (string, error) {
	if segment == "" {
		return "", &TreeError{Code: ErrConflict, Message: "empty path segment"}
	}
	if strings.Contains(segment, Separator) {
		return "", &TreeError{Code: ErrConflict, Message: "path segment contains separator", Path: segment}
	}
	name, err := url.PathUnescape(segment)
	if err != nil {
		return "", &TreeError{Code: ErrConflict, Message: "malformed path segment encoding", Path: segment}
	}
	return name, nil
}

// Join appends an encoded segment to a parent path.
//
// The parent path is a folder path and is normalized to carry its trailing
// separator before the segment is appended.
func (PathCodec) Join(parentPath, encodedSegment string) string {
	if !strings.HasSuffix(parentPath, Separator) {
		parentPath += Separator
	}
	return parentPath + encodedSegment
}

// FolderPath normalizes a path to folder form (trailing separator).
func (PathCodec) FolderPath(p string) string {
	if !strings.HasSuffix(p, Separator) {
		return p + Separator
	}
	return p
}

// IsAncestorOf reports whether ancestor is a proper ancestor of path.
//
// The test is exact-segment based: "/Folder1" is not an ancestor of
// "/Folder10/x" even though it is a string prefix of it. Equal paths are
// not ancestors of each other.
func (PathCodec) IsAncestorOf(ancestor, path string) bool {
	a := strings.TrimSuffix(ancestor, Separator)
	p := strings.TrimSuffix(path, Separator)
	if a == p {
		return false
	}
	return strings.HasPrefix(p, a+Separator)
}
