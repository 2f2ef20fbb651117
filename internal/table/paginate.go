// Package table holds the in-memory paging, filtering and selection state
// behind every record table in the panel.
package table

// Sizes are the page sizes offered by the page-size selector.
var Sizes = []int{10, 25, 50, 100}

const (
	DefaultSize     = 10
	DefaultMaxLinks = 5
)

// Pages returns ceil(total/size). Zero records yield zero pages.
func Pages(total, size int) int {
	if size < 1 {
		size = 1
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Bounds returns the half-open index range of a 1-based page.
func Bounds(total, page, size int) (start, end int) {
	if size < 1 {
		size = 1
	}
	if page < 1 {
		page = 1
	}
	start = (page - 1) * size
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	return start, end
}

// Slice returns the records shown on a 1-based page.
func Slice[T any](records []T, page, size int) []T {
	start, end := Bounds(len(records), page, size)
	return records[start:end]
}

// Link is one page button.
type Link struct {
	Page    int
	Current bool
}

// PageWindow describes the page buttons around the current page.
type PageWindow struct {
	Links            []Link
	First            int
	Last             int
	Prev             int
	Next             int
	LeadingEllipsis  bool
	TrailingEllipsis bool
}

// HasPrev reports whether a previous page exists.
func (w PageWindow) HasPrev() bool { return w.Prev > 0 }

func (w PageWindow) HasNext() bool { return w.Next > 0 }

// Window centres at most maxLinks page links on current. The ellipsis flags
// are set when pages exist beyond either edge of the window.
func Window(current, pages, maxLinks int) PageWindow {
	if pages <= 0 {
		return PageWindow{}
	}
	if maxLinks < 1 {
		maxLinks = DefaultMaxLinks
	}
	current = clamp(current, 1, pages)

	start := current - maxLinks/2
	end := start + maxLinks - 1
	if start < 1 {
		start, end = 1, maxLinks
	}
	if end > pages {
		end = pages
		start = end - maxLinks + 1
		if start < 1 {
			start = 1
		}
	}

	w := PageWindow{
		First:            1,
		Last:             pages,
		LeadingEllipsis:  start > 1,
		TrailingEllipsis: end < pages,
	}
	if current > 1 {
		w.Prev = current - 1
	}
	if current < pages {
		w.Next = current + 1
	}
	for p := start; p <= end; p++ {
		w.Links = append(w.Links, Link{Page: p, Current: p == current})
	}
	return w
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
