package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize int64 = 20
	maxPageSize     int64 = 100
)

// PageRequest carries the page/pageSize query parameters of list endpoints.
type PageRequest struct {
	Page     int64 `form:"page" json:"page"`
	PageSize int64 `form:"pageSize" json:"pageSize"`
}

// ParsePagination reads page and pageSize from the query string. Values
// outside the allowed range are clamped rather than rejected, so a stale
// bookmark with page=0 still returns the first page.
func ParsePagination(c *gin.Context) PageRequest {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	size, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)

	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	return PageRequest{Page: page, PageSize: size}
}

// Offset converts the 1-based page number into a query offset.
func (p PageRequest) Offset() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the page size.
func (p PageRequest) Limit() int64 {
	return p.PageSize
}

// PageResponse wraps one page of results with paging metadata.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse computes the paging metadata for one page of data.
func NewPageResponse[T any](data []T, page, pageSize, totalItems int64) PageResponse[T] {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
