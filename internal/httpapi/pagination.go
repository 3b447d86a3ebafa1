package httpapi

import (
	"net/http"
	"strconv"

	"github.com/joao-fontenele/textile-shop/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ParsePage reads the page and limit query parameters. Page defaults to 1
// and may not exceed MaxPage; limit defaults to DefaultLimit and is capped at
// MaxLimit.
func ParsePage(r *http.Request) (page, limit int, err error) {
	page, limit = 1, DefaultLimit

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, domain.NewValidationError("page", "must be a positive integer")
		}
		if page > MaxPage {
			return 0, 0, domain.NewValidationError("page", "must be at most "+strconv.Itoa(MaxPage))
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, domain.NewValidationError("limit", "must be a positive integer")
		}
		limit = min(limit, MaxLimit)
	}
	return page, limit, nil
}
