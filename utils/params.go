package utils

import (
	"net/http"
	"strconv"
	"strings"
)

type QueryOptions struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

// ParseQueryOptions reads page, limit, query and category. A missing or bad
// limit falls back to defLimit, and limit is capped at 50.
func ParseQueryOptions(r *http.Request, defLimit int) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defLimit
	}
	if limit > 50 {
		limit = 50
	}

	search := q.Get("query")
	if search == "" {
		search = q.Get("search")
	}

	return QueryOptions{
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(search),
		Category: strings.TrimSpace(q.Get("category")),
	}
}

func (o QueryOptions) Skip() int64 {
	return int64((o.Page - 1) * o.Limit)
}

// TotalPages rounds up; zero results is zero pages.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
