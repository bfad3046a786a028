package leads

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50

	// maxPage keeps Skip well inside int range.
	maxPage = 1_000_000

	// StatusAll disables the status filter.
	StatusAll = "all"
)

// SortField is a column a listing can be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByEmail     SortField = "email"
	SortByCreatedAt SortField = "createdAt"
)

func (f SortField) valid() bool {
	return f == SortByName || f == SortByEmail || f == SortByCreatedAt
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListParams are the raw listing parameters as received from a client.
type ListParams struct {
	Page      string
	Limit     string
	Search    string
	Status    string
	SortBy    string
	SortOrder string
}

// ParseListParams reads listing parameters from a URL query.
func ParseListParams(values url.Values) ListParams {
	return ListParams{
		Page:      values.Get("page"),
		Limit:     values.Get("limit"),
		Search:    values.Get("search"),
		Status:    values.Get("status"),
		SortBy:    values.Get("sortBy"),
		SortOrder: values.Get("sortOrder"),
	}
}

// Query is a validated listing request ready to hand to a Repository.
type Query struct {
	Page   int
	Limit  int
	Search string
	// Status is nil when every status matches.
	Status    *Status
	SortBy    SortField
	SortOrder SortOrder
}

// Build coerces the raw parameters into a Query. Page and limit are clamped
// rather than rejected. Any status other than "all" is matched exactly, so an
// unknown status simply matches nothing.
func (p ListParams) Build() Query {
	q := Query{
		Page:      clampPage(p.Page),
		Limit:     clampLimit(p.Limit),
		Search:    strings.TrimSpace(p.Search),
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
	}

	status := strings.TrimSpace(p.Status)
	if status != "" && status != StatusAll {
		s := Status(status)
		q.Status = &s
	}

	if f := SortField(strings.TrimSpace(p.SortBy)); f.valid() {
		q.SortBy = f
	}
	if SortOrder(strings.TrimSpace(p.SortOrder)) == SortAsc {
		q.SortOrder = SortAsc
	}
	return q
}

// Skip is the number of matching records before the requested page.
func (q Query) Skip() int {
	return (q.Page - 1) * q.Limit
}

// Ascending reports the sort direction.
func (q Query) Ascending() bool {
	return q.SortOrder == SortAsc
}

// TotalPages is ceil(total / limit).
func (q Query) TotalPages(total int64) int {
	limit := int64(q.Limit)
	if limit < 1 {
		limit = 1
	}
	return int((total + limit - 1) / limit)
}

func clampPage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return DefaultPage
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

func clampLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
