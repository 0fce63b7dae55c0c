package tree

import (
	"context"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
)

// ============================================================================
// Ordering and Paging
// ============================================================================

// OrderProperty is one sort key in a requested ordering.
//
// Earlier entries in an ordering are primary keys; ties are broken by later
// entries, and a final implicit tie-break orders by name ascending so that
// any requested ordering is total and stable.
type OrderProperty struct {
	// Property is the abstract property name. It must be one of the
	// closed set accepted by the enumerator (see compareBy); an unknown
	// property is an error, not a silent no-op.
	Property string

	// Ascending selects the sort direction.
	Ascending bool
}

// PageResults is one page of an enumeration.
type PageResults struct {
	// Page is the ordered slice of items for this page.
	Page []Item

	// TotalCount is the total number of results before paging was
	// applied, not the page size.
	TotalCount int
}

// Abstract property names accepted by orderBy and propertyFilter.
//
// This is a fixed, closed enumeration: the mapping from abstract property
// name to an item field is exhaustive and an unknown name is rejected.
const (
	PropName        = "name"
	PropCreated     = "created"
	PropModified    = "modified"
	PropSize        = "size"
	PropIsFolder    = "iscollection"
	PropContentType = "contenttype"
)

// PropertyFilter selects which properties are populated on returned items.
//
// A nil or empty filter returns complete items. A non-empty filter keeps
// the identity fields (ID, ParentID) and populates only the fields backing
// the selected properties; everything else is left at its zero value.
// Selecting contenttype retains the name, since the content type derives
// from the name suffix; selecting iscollection retains the kind
// discriminator and flag bits.
//
// Property names come from the same closed set as orderBy; an unknown name
// is an error, not a silent no-op.
type PropertyFilter []string

// folderContentType is the synthetic content type reported for folders.
const folderContentType = "httpd/unix-directory"

// ContentReader is the minimal content access the enumerator needs for
// content-based search matching and snippet extraction. A nil reader is
// valid; search then falls back to name matching only.
type ContentReader interface {
	ReadAll(ctx context.Context, contentID string) ([]byte, error)
}

// ============================================================================
// ChildEnumerator
// ============================================================================

// ChildEnumerator lists children of a folder with optional stable sorting
// by requested properties, optional offset/limit paging, and recursive text
// search with relevance ranking.
type ChildEnumerator struct {
	store  Store
	reader ContentReader
}

// NewChildEnumerator creates an enumerator over the given store.
//
// reader may be nil; it is only needed for content-based search matching
// and snippet extraction.
func NewChildEnumerator(store Store, reader ContentReader) *ChildEnumerator {
	return &ChildEnumerator{store: store, reader: reader}
}

// List returns one page of a folder's immediate children.
//
// Behavior:
//   - With an empty orderBy the children keep the store's natural order.
//   - With orderBy set, ordering is applied over the full child set before
//     any slicing, using a stable multi-key sort with a final name-ascending
//     tie-break.
//   - offset/limit slice the (ordered) full set; limit <= 0 means no limit.
//   - TotalCount always reflects the full set size, never the page size.
//   - filter projects each returned item per the PropertyFilter contract;
//     ordering and filtering are independent (items are ordered on their
//     full property values before projection).
//
// Errors:
//   - ErrNotFound if the folder does not exist
//   - ErrConflict if the item is not a folder or a requested order or
//     filter property is not in the closed property set
func (e *ChildEnumerator) List(ctx context.Context, folderID ItemID, filter PropertyFilter, offset, limit int, orderBy []OrderProperty) (*PageResults, error) {
	folder, err := e.store.GetItem(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder() {
		return nil, &TreeError{Code: ErrConflict, Message: "cannot list children of a file", Path: folder.Name}
	}

	if err := validateOrder(orderBy); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	children, err := e.store.ListChildren(ctx, folderID)
	if err != nil {
		return nil, err
	}

	total := len(children)
	if len(orderBy) > 0 {
		sortItems(children, orderBy)
	}

	return &PageResults{Page: projectItems(pageSlice(children, offset, limit), filter), TotalCount: total}, nil
}

// Search performs a recursive descendant scan under folder and ranks
// matches by relevance.
//
// Matching is name-based first (exact, prefix, whole-word, substring, in
// decreasing relevance); when a content reader is available, file contents
// are consulted as a lower-relevance fallback for names that do not match.
// Ties are broken by name ascending. Paging and property filtering follow
// the same contract as List; matching and ranking always see the full
// property values, projection applies to the returned page only.
func (e *ChildEnumerator) Search(ctx context.Context, folderID ItemID, query string, filter PropertyFilter, offset, limit int) (*PageResults, error) {
	folder, err := e.store.GetItem(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder() {
		return nil, &TreeError{Code: ErrConflict, Message: "cannot search within a file", Path: folder.Name}
	}
	if query == "" {
		return nil, &TreeError{Code: ErrConflict, Message: "empty search query"}
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	var matches []scoredItem
	if err := e.scan(ctx, folderID, query, &matches); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].item.Name < matches[j].item.Name
	})

	items := make([]Item, len(matches))
	for i, m := range matches {
		items[i] = m.item
	}

	return &PageResults{Page: projectItems(pageSlice(items, offset, limit), filter), TotalCount: len(items)}, nil
}

// Snippet extracts a contextual excerpt around the first content match of
// query in item.
//
// Extraction is best-effort: the second return value is false when a
// snippet is unavailable (no content reader, folder item, unreadable
// content, or no content match). An unavailable snippet never fails the
// surrounding search.
func (e *ChildEnumerator) Snippet(ctx context.Context, item *Item, query string) (string, bool) {
	if e.reader == nil || item.IsFolder() || item.ContentID == "" {
		return "", false
	}
	data, err := e.reader.ReadAll(ctx, item.ContentID)
	if err != nil {
		return "", false
	}
	text := string(data)
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		return "", false
	}

	const window = 40
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + window
	if end > len(text) {
		end = len(text)
	}
	return text[start:end], true
}

// scoredItem pairs a search match with its relevance score.
type scoredItem struct {
	item  Item
	score int
}

// Relevance tiers for search matches. Name matches always outrank content
// matches.
const (
	scoreExact     = 1000
	scorePrefix    = 400
	scoreWord      = 200
	scoreSubstring = 100
	scoreContent   = 50
)

// scan walks the subtree depth-first, scoring every descendant against the
// query. Unreadable content is skipped, not fatal.
func (e *ChildEnumerator) scan(ctx context.Context, folderID ItemID, query string, matches *[]scoredItem) error {
	children, err := e.store.ListChildren(ctx, folderID)
	if err != nil {
		return err
	}

	for _, child := range children {
		score := nameScore(child.Name, query)
		if score == 0 && e.reader != nil && child.Kind == KindFile && child.ContentID != "" {
			if data, err := e.reader.ReadAll(ctx, child.ContentID); err == nil {
				if strings.Contains(strings.ToLower(string(data)), strings.ToLower(query)) {
					score = scoreContent
				}
			}
		}
		if score > 0 {
			*matches = append(*matches, scoredItem{item: child, score: score})
		}

		if child.Kind == KindFolder {
			if err := e.scan(ctx, child.ID, query, matches); err != nil {
				return err
			}
		}
	}
	return nil
}

// nameScore ranks how well a name matches the query.
func nameScore(name, query string) int {
	n := strings.ToLower(name)
	q := strings.ToLower(query)
	switch {
	case n == q:
		return scoreExact
	case strings.HasPrefix(n, q):
		return scorePrefix
	case containsWord(n, q):
		return scoreWord
	case strings.Contains(n, q):
		return scoreSubstring
	default:
		return 0
	}
}

// containsWord reports whether q appears in n as a whole word, where word
// boundaries are any non-alphanumeric runes.
func containsWord(n, q string) bool {
	words := strings.FieldsFunc(n, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	for _, w := range words {
		if w == q {
			return true
		}
	}
	return false
}

// ============================================================================
// Sorting
// ============================================================================

// knownProperty reports whether name is in the closed property set.
func knownProperty(name string) bool {
	switch name {
	case PropName, PropCreated, PropModified, PropSize, PropIsFolder, PropContentType:
		return true
	}
	return false
}

// validateOrder rejects order properties outside the closed set.
func validateOrder(orderBy []OrderProperty) error {
	for _, o := range orderBy {
		if !knownProperty(o.Property) {
			return &TreeError{
				Code:    ErrConflict,
				Message: fmt.Sprintf("unknown order property: %q", o.Property),
			}
		}
	}
	return nil
}

// validateFilter rejects filter properties outside the closed set.
func validateFilter(filter PropertyFilter) error {
	for _, name := range filter {
		if !knownProperty(name) {
			return &TreeError{
				Code:    ErrConflict,
				Message: fmt.Sprintf("unknown filter property: %q", name),
			}
		}
	}
	return nil
}

// projectItems applies a property filter to a result page. The filter is
// already validated. An empty filter returns the page unchanged.
func projectItems(items []Item, filter PropertyFilter) []Item {
	if len(filter) == 0 {
		return items
	}

	selected := make(map[string]bool, len(filter))
	for _, name := range filter {
		selected[name] = true
	}

	projected := make([]Item, len(items))
	for i := range items {
		projected[i] = projectItem(&items[i], selected)
	}
	return projected
}

// projectItem keeps the identity fields and the fields backing the selected
// properties, zeroing the rest.
func projectItem(it *Item, selected map[string]bool) Item {
	out := Item{ID: it.ID, ParentID: it.ParentID}

	// contenttype derives from the name suffix, so selecting it retains
	// the name
	if selected[PropName] || selected[PropContentType] {
		out.Name = it.Name
	}
	if selected[PropCreated] {
		out.Created = it.Created
	}
	if selected[PropModified] {
		out.Modified = it.Modified
	}
	if selected[PropSize] {
		out.Size = it.Size
	}
	if selected[PropIsFolder] {
		out.Kind = it.Kind
		out.Attributes = it.Attributes
	}
	return out
}

// sortItems applies a stable multi-key sort over the full item set.
// Earlier orderBy entries are primary keys; the final tie-break is always
// name ascending.
func sortItems(items []Item, orderBy []OrderProperty) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range orderBy {
			c := compareBy(&items[i], &items[j], o.Property)
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return items[i].Name < items[j].Name
	})
}

// compareBy maps an abstract property name to a store-level sortable key
// and compares two items by it. The property is already validated.
func compareBy(a, b *Item, property string) int {
	switch property {
	case PropName:
		return strings.Compare(a.Name, b.Name)
	case PropCreated:
		return a.Created.Compare(b.Created)
	case PropModified:
		return a.Modified.Compare(b.Modified)
	case PropSize:
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		}
		return 0
	case PropIsFolder:
		return boolCompare(a.IsFolder(), b.IsFolder())
	case PropContentType:
		return strings.Compare(contentType(a), contentType(b))
	}
	return 0
}

func boolCompare(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	}
	return 0
}

// contentType infers a sortable content type from the item's name suffix.
func contentType(it *Item) string {
	if it.IsFolder() {
		return folderContentType
	}
	ct := mime.TypeByExtension(path.Ext(it.Name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

// pageSlice cuts [offset, offset+limit) out of items.
// A non-positive limit means "to the end"; an offset past the end yields an
// empty page.
func pageSlice(items []Item, offset, limit int) []Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Item{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
