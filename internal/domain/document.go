package domain

// DocumentRef identifies a candidate document in the content source along
// with its current content hash for staleness checks.
type DocumentRef struct {
	ID          int64
	ContentHash string
}

// Document is a full document as served by the content source. It is
// read-only to the matching core; the content source owns it.
type Document struct {
	ID          int64
	Title       string
	Body        string
	Type        string
	Categories  []string
	ContentHash string
}

// HasCategory reports whether the document carries the given category.
func (d *Document) HasCategory(category string) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// SharesCategory reports whether two category sets intersect. Empty sets
// never match: with same-category matching enabled an uncategorized
// document links to nothing rather than to everything.
func SharesCategory(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	for _, c := range b {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}
