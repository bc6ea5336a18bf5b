package explore

import "ghexplorer/internal/config"

// Page is one window of a sorted result set.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Number     int  `json:"page"`
	Size       int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Paginate returns the 1-based page number of items. A number below 1 selects
// the first page; a size below 1 uses config.DefaultPageSize. Pages past the
// end are empty.
func Paginate[T any](items []T, number, size int) Page[T] {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = config.DefaultPageSize
	}
	total := len(items)
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}

	p := Page[T]{
		Items:      []T{},
		Number:     number,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    number > 1,
		HasNext:    number < totalPages,
	}
	if total == 0 || number-1 > (total-1)/size {
		return p
	}
	start := (number - 1) * size
	p.Items = items[start : start+min(size, total-start)]
	return p
}
