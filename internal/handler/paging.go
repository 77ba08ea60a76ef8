package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageQuery is the parsed page/pageSize/sortBy/order/search query string.
type pageQuery struct {
	Page     int
	PageSize int
	SortBy   string
	Desc     bool
	Search   string
}

// parsePageQuery never fails: out-of-range values fall back to defaults.
func parsePageQuery(r *http.Request) pageQuery {
	q := r.URL.Query()
	p := pageQuery{Page: 1, PageSize: defaultPageSize}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v > 0 {
		p.PageSize = v
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	// Keep the offset within int32; the last reachable page is always empty.
	if maxPage := math.MaxInt32/p.PageSize + 1; p.Page > maxPage {
		p.Page = maxPage
	}

	p.SortBy = strings.TrimSpace(q.Get("sortBy"))
	p.Desc = strings.EqualFold(q.Get("order"), enum.SortDesc)
	p.Search = strings.TrimSpace(q.Get("search"))
	return p
}

func (p pageQuery) listParams() database.ListParams {
	return database.ListParams{
		Search: p.Search,
		SortBy: p.SortBy,
		Desc:   p.Desc,
		Limit:  int32(p.PageSize),
		Offset: int32((p.Page - 1) * p.PageSize),
	}
}

type pagedResponse[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

func newPagedResponse[T any](data []T, total int64, p pageQuery) pagedResponse[T] {
	if data == nil {
		data = []T{}
	}
	pages := (total + int64(p.PageSize) - 1) / int64(p.PageSize)
	return pagedResponse[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}

// mapSlice converts rows to their response form.
func mapSlice[S, T any](rows []S, fn func(S) T) []T {
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = fn(row)
	}
	return out
}

// dateRange reads startDate/endDate. Both accept RFC 3339 or YYYY-MM-DD.
// A date-only endDate covers that whole day; the returned End is exclusive.
func dateRange(r *http.Request) (database.StatsRange, error) {
	var rng database.StatsRange
	q := r.URL.Query()

	if v := q.Get("startDate"); v != "" {
		t, _, err := parseTimeParam(v)
		if err != nil {
			return rng, fmt.Errorf("invalid startDate: %w", err)
		}
		rng.Start = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if v := q.Get("endDate"); v != "" {
		t, dateOnly, err := parseTimeParam(v)
		if err != nil {
			return rng, fmt.Errorf("invalid endDate: %w", err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		rng.End = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if rng.Start.Valid && rng.End.Valid && !rng.Start.Time.Before(rng.End.Time) {
		return rng, errors.New("startDate must be before endDate")
	}
	return rng, nil
}

func parseTimeParam(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, false, errors.New("expected RFC 3339 or YYYY-MM-DD")
	}
	return t, true, nil
}
