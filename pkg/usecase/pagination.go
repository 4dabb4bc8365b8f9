package usecase

import (
	"math"

	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
)

// Pagination describes a page of a newest-first listing
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"-"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// pageRequest normalizes a 1-based page number and a page size
type pageRequest struct {
	page  int
	limit int
}

func newPageRequest(page, limit, defaultLimit, maxLimit int) pageRequest {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	limit = max(1, min(limit, maxLimit))
	// keeps (page-1)*limit within int
	page = min(page, math.MaxInt/limit)
	return pageRequest{page: page, limit: limit}
}

func (p pageRequest) repoPage() interfaces.Page {
	return interfaces.Page{Offset: (p.page - 1) * p.limit, Limit: p.limit}
}

func (p pageRequest) result(total int) Pagination {
	totalPages := (total + p.limit - 1) / p.limit
	return Pagination{
		CurrentPage: p.page,
		TotalPages:  totalPages,
		Total:       total,
		HasNextPage: p.page < totalPages,
		HasPrevPage: p.page > 1,
	}
}
