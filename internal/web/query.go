package web

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/leadflow/internal/leads"
)

// SearchDebounce is how long the list page waits after the last keystroke
// before navigating with the new search term.
const SearchDebounce = 500 * time.Millisecond

// LimitOptions are the page sizes offered on the list page.
var LimitOptions = []int{6, 10, 18}

// QueryState is the list page state. The URL is its only store.
type QueryState struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	SortBy    leads.SortField
	SortOrder leads.SortOrder
}

// DefaultQueryState is what an empty query string means.
func DefaultQueryState() QueryState {
	return QueryState{
		Page:      leads.DefaultPage,
		Limit:     leads.DefaultLimit,
		Status:    leads.StatusAll,
		SortBy:    leads.SortByCreatedAt,
		SortOrder: leads.SortDesc,
	}
}

// ParseQueryState reads the page state from a URL query, applying the same
// defaults and clamping as the API.
func ParseQueryState(values url.Values) QueryState {
	s := DefaultQueryState()

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		s.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil {
		s.Limit = min(max(limit, 1), leads.MaxLimit)
	}
	s.Search = strings.TrimSpace(values.Get("search"))
	if status := strings.TrimSpace(values.Get("status")); status != "" {
		if st := leads.Status(status); st.Valid() {
			s.Status = status
		}
	}
	switch f := leads.SortField(values.Get("sortBy")); f {
	case leads.SortByName, leads.SortByEmail, leads.SortByCreatedAt:
		s.SortBy = f
	}
	if leads.SortOrder(values.Get("sortOrder")) == leads.SortAsc {
		s.SortOrder = leads.SortAsc
	}
	return s
}

// Values encodes the state for a page URL, leaving out anything at its
// default.
func (s QueryState) Values() url.Values {
	def := DefaultQueryState()
	v := url.Values{}
	if s.Search != "" {
		v.Set("search", s.Search)
	}
	if s.Status != "" && s.Status != leads.StatusAll {
		v.Set("status", s.Status)
	}
	if s.Page > 1 {
		v.Set("page", strconv.Itoa(s.Page))
	}
	if s.Limit != def.Limit {
		v.Set("limit", strconv.Itoa(s.Limit))
	}
	if s.SortBy != def.SortBy {
		v.Set("sortBy", string(s.SortBy))
	}
	if s.SortOrder != def.SortOrder {
		v.Set("sortOrder", string(s.SortOrder))
	}
	return v
}

// URL is the list page link for this state.
func (s QueryState) URL() string {
	if encoded := s.Values().Encode(); encoded != "" {
		return "/leads?" + encoded
	}
	return "/leads"
}

// APIValues is the full parameter set sent to the lead API.
func (s QueryState) APIValues() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(s.Page))
	v.Set("limit", strconv.Itoa(s.Limit))
	v.Set("search", s.Search)
	v.Set("status", s.Status)
	v.Set("sortBy", string(s.SortBy))
	v.Set("sortOrder", string(s.SortOrder))
	return v
}

// Filtered reports whether a search or status filter is active.
func (s QueryState) Filtered() bool {
	return s.Search != "" || (s.Status != "" && s.Status != leads.StatusAll)
}

func (s QueryState) WithSearch(search string) QueryState {
	s.Search = strings.TrimSpace(search)
	s.Page = 1
	return s
}

func (s QueryState) WithStatus(status string) QueryState {
	s.Status = status
	s.Page = 1
	return s
}

func (s QueryState) WithLimit(limit int) QueryState {
	s.Limit = min(max(limit, 1), leads.MaxLimit)
	s.Page = 1
	return s
}

func (s QueryState) WithSort(field leads.SortField, order leads.SortOrder) QueryState {
	s.SortBy = field
	s.SortOrder = order
	s.Page = 1
	return s
}

// WithPage keeps every other setting.
func (s QueryState) WithPage(page int) QueryState {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// ToggleSort sorts by field ascending, or flips to descending when field is
// already sorted ascending.
func (s QueryState) ToggleSort(field leads.SortField) QueryState {
	order := leads.SortAsc
	if s.SortBy == field && s.SortOrder == leads.SortAsc {
		order = leads.SortDesc
	}
	return s.WithSort(field, order)
}
