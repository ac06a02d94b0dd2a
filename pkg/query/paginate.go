package query

// DefaultPerPage is the page size used when none is given.
const DefaultPerPage = 5

// Page is one page of a collection.
type Page[T any] struct {
	Items      []T
	Page       int
	PerPage    int
	TotalPages int
	Total      int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate returns page (1-based) of items. page is clamped into
// [1, TotalPages]; perPage <= 0 selects DefaultPerPage. An empty collection
// yields page 1 of 0 with no items.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	out := make([]T, 0, max(end-start, 0))
	if start < total {
		out = append(out, items[start:end]...)
	}
	return Page[T]{
		Items:      out,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		Total:      total,
	}
}
