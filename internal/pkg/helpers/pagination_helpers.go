package helpers

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1 // Default page is 1-based
)

// Page is a validated 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() uint64 {
	return uint64((p.Number - 1) * p.Size)
}

// NormalizePage clamps page and size into the accepted range.
func NormalizePage(page, size int) Page {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = DefaultPage
	}
	return Page{Number: page, Size: size}
}

// SliceBounds returns the [start, end) indices of p within totalItems elements.
func (p Page) SliceBounds(totalItems int) (start, end int) {
	start = (p.Number - 1) * p.Size
	if start > totalItems {
		start = totalItems
	}
	end = start + p.Size
	if end > totalItems {
		end = totalItems
	}
	return start, end
}

// TotalPages returns the number of pages needed for totalItems.
func (p Page) TotalPages(totalItems int64) int {
	if totalItems <= 0 {
		return 1
	}
	return int((totalItems + int64(p.Size) - 1) / int64(p.Size))
}
