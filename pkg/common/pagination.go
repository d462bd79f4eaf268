package common

import (
	"net/http"
	"strconv"
)

// PaginationParams represents zero-based pagination parameters
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultPaginationParams returns default pagination parameters.
// The defaults mirror the message history endpoint: first page, 50 rows.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page:     0,
		PageSize: 50,
	}
}

// ExtractPaginationParams extracts pagination parameters from request
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p >= 0 {
			params.Page = p
		}
	}

	if size := r.URL.Query().Get("size"); size != "" {
		if s, err := strconv.Atoi(size); err == nil && s > 0 {
			params.PageSize = s
		}
	}

	return params
}

// CalculateOffset calculates the offset for storage queries
func (p PaginationParams) CalculateOffset() int {
	return p.Page * p.PageSize
}

// BuildPaginationMeta builds pagination metadata for a returned page
func BuildPaginationMeta(page, pageSize, count int) *PaginationInfo {
	return &PaginationInfo{
		Page:     page,
		PageSize: pageSize,
		Count:    count,
		HasPrev:  page > 0,
	}
}
