// Package listing implements the pure paging and filtering rules used to
// present directory accounts.
package listing

// Window is one page cut out of a larger result set.
type Window[T any] struct {
	Items   []T
	Page    int
	HasPrev bool
	HasNext bool
}

// Paginate returns the page-th slice of size pageSize. A page beyond the
// last one yields no items; HasPrev is still computed from page.
func Paginate[T any](items []T, page, pageSize int) Window[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	if page < 0 {
		page = 0
	}
	w := Window[T]{Page: page, HasPrev: page > 0}
	start := page * pageSize
	if start >= len(items) {
		return w
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	w.Items = items[start:end]
	w.HasNext = end < len(items)
	return w
}

// LastPage returns the index of the last non-empty page, or 0 for an empty set.
func LastPage(n, pageSize int) int {
	if n <= 0 || pageSize <= 0 {
		return 0
	}
	return (n - 1) / pageSize
}

// ClampPage bounds page to [0, LastPage(n, pageSize)].
func ClampPage(page, n, pageSize int) int {
	if page < 0 {
		return 0
	}
	if last := LastPage(n, pageSize); page > last {
		return last
	}
	return page
}

// PageCount returns the number of pages needed for n items.
func PageCount(n, pageSize int) int {
	if n <= 0 {
		return 0
	}
	return LastPage(n, pageSize) + 1
}
