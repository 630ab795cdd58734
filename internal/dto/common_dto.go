package dto

import "math"

// Pagination describes pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes pagination metadata from the page window and total.
func NewPagination(page, pageSize int, total int64) Pagination {
	pagination := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if pageSize > 0 && total > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return pagination
}
