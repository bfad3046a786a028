// Package web serves the server-rendered pages that sit in front of the lead
// API: a dashboard, the lead list and the new-lead form.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadflow/internal/client"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// recentLimit is how many leads the dashboard lists.
const recentLimit = 5

var formEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LeadsAPI is the part of the lead API the pages use. *client.Client
// satisfies it.
type LeadsAPI interface {
	ListLeads(ctx context.Context, query url.Values) (*leads.ListResult, error)
	CreateLead(ctx context.Context, req leads.CreateLeadRequest) (*leads.Lead, error)
	Stats(ctx context.Context) (*leads.Stats, error)
}

var _ LeadsAPI = (*client.Client)(nil)

// Handler renders the web pages.
type Handler struct {
	api    LeadsAPI
	logger *logging.Logger
	pages  map[string]*template.Template
}

// NewHandler parses the embedded templates.
func NewHandler(api LeadsAPI, logger *logging.Logger) (*Handler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "leads", "new"} {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Handler{api: api, logger: logger, pages: pages}, nil
}

// Routes returns the page router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Get("/leads", h.List)
	r.Get("/leads/new", h.NewForm)
	r.Post("/leads/new", h.Create)
	return r
}

type homePage struct {
	Title    string
	Stats    *leads.Stats
	NewCount int64
	WonCount int64
	Recent   []*leads.Lead
	Error    string
}

// Home shows the pipeline stats and the most recent leads.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	page := homePage{Title: "Dashboard"}

	stats, err := h.api.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		page.Error = "Failed to load dashboard"
		stats = leads.NewStats(nil)
	}
	page.Stats = stats
	page.NewCount = stats.StatusCounts[leads.StatusNew]
	page.WonCount = stats.StatusCounts[leads.StatusClosedWon]

	recent := url.Values{}
	recent.Set("limit", fmt.Sprint(recentLimit))
	recent.Set("sortBy", string(leads.SortByCreatedAt))
	recent.Set("sortOrder", string(leads.SortDesc))
	if result, err := h.api.ListLeads(r.Context(), recent); err != nil {
		h.logger.Error("failed to load recent leads", "error", err)
		page.Error = "Failed to load dashboard"
	} else {
		page.Recent = result.Leads
	}

	h.render(w, http.StatusOK, "home", page)
}

type statusCount struct {
	Status leads.Status
	Count  int
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type sortLink struct {
	Label     string
	URL       string
	Active    bool
	Ascending bool
}

type listPage struct {
	Title        string
	State        QueryState
	Result       *leads.ListResult
	Counts       []statusCount
	Statuses     []leads.Status
	LimitOptions []int
	SortLinks    []sortLink
	Pages        []pageLink
	PrevURL      string
	NextURL      string
	Filtered     bool
	Created      bool
	Error        string
	DebounceMS   int64
	ClearURL     string
}

// List shows one page of leads with the search, filter, sort and paging
// controls. All of the state lives in the query string.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	state := ParseQueryState(r.URL.Query())
	page := listPage{
		Title:        "Leads",
		State:        state,
		Statuses:     leads.Statuses,
		LimitOptions: LimitOptions,
		Filtered:     state.Filtered(),
		Created:      r.URL.Query().Get("created") == "1",
		DebounceMS:   SearchDebounce.Milliseconds(),
		ClearURL:     state.WithSearch("").URL(),
		SortLinks: []sortLink{
			newSortLink("Name", leads.SortByName, state),
			newSortLink("Date", leads.SortByCreatedAt, state),
		},
	}

	result, err := h.api.ListLeads(r.Context(), state.APIValues())
	if err != nil {
		h.logger.Error("failed to fetch leads", "error", err)
		page.Error = apiMessage(err, "Failed to fetch leads")
		result = &leads.ListResult{Page: state.Page, Limit: state.Limit}
	}
	page.Result = result
	page.Counts = countStatuses(result.Leads)

	if result.TotalPages > 1 {
		current := state.WithPage(result.Page)
		for n := 1; n <= result.TotalPages; n++ {
			page.Pages = append(page.Pages, pageLink{Number: n, URL: current.WithPage(n).URL(), Current: n == result.Page})
		}
		if result.Page > 1 {
			page.PrevURL = current.WithPage(result.Page - 1).URL()
		}
		if result.Page < result.TotalPages {
			page.NextURL = current.WithPage(result.Page + 1).URL()
		}
	}

	h.render(w, http.StatusOK, "leads", page)
}

func newSortLink(label string, field leads.SortField, state QueryState) sortLink {
	return sortLink{
		Label:     label,
		URL:       state.ToggleSort(field).URL(),
		Active:    state.SortBy == field,
		Ascending: state.SortBy == field && state.SortOrder == leads.SortAsc,
	}
}

// countStatuses tallies the leads on the current page only.
func countStatuses(list []*leads.Lead) []statusCount {
	counts := make([]statusCount, len(leads.Statuses))
	for i, s := range leads.Statuses {
		counts[i].Status = s
		for _, lead := range list {
			if lead.Status == s {
				counts[i].Count++
			}
		}
	}
	return counts
}

// FormErrors holds one message per invalid field.
type FormErrors struct {
	Name   string
	Email  string
	Status string
}

// Empty reports whether the form passed validation.
func (e FormErrors) Empty() bool {
	return e == FormErrors{}
}

type formPage struct {
	Title    string
	Form     leads.CreateLeadRequest
	Errors   FormErrors
	Statuses []leads.Status
}

// NewForm shows an empty form with the status preset to New.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "new", formPage{
		Title:    "Add New Lead",
		Form:     leads.CreateLeadRequest{Status: leads.StatusNew},
		Statuses: leads.Statuses,
	})
}

// Create validates the form, submits it to the API and redirects to the
// list. A rejected submission re-renders the form with the entered values.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := leads.CreateLeadRequest{
		Name:   r.PostForm.Get("name"),
		Email:  r.PostForm.Get("email"),
		Status: leads.Status(r.PostForm.Get("status")),
	}

	page := formPage{Title: "Add New Lead", Form: form, Statuses: leads.Statuses}
	if page.Errors = ValidateForm(form); !page.Errors.Empty() {
		h.render(w, http.StatusUnprocessableEntity, "new", page)
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if _, err := h.api.CreateLead(r.Context(), form); err != nil {
		h.logger.Warn("lead submission rejected", "error", err)
		page.Errors.Email = apiMessage(err, "Failed to create lead")
		h.render(w, http.StatusUnprocessableEntity, "new", page)
		return
	}

	http.Redirect(w, r, "/leads?created=1", http.StatusSeeOther)
}

// ValidateForm checks the new-lead form before it is sent to the API.
func ValidateForm(form leads.CreateLeadRequest) FormErrors {
	var errs FormErrors

	name := strings.TrimSpace(form.Name)
	switch {
	case name == "":
		errs.Name = "Name is required"
	case utf8.RuneCountInString(name) < 2:
		errs.Name = "Name must be at least 2 characters long"
	}

	switch email := strings.TrimSpace(form.Email); {
	case email == "":
		errs.Email = "Email is required"
	case !formEmailPattern.MatchString(email):
		errs.Email = "Please enter a valid email address"
	}

	if form.Status == "" {
		errs.Status = "Status is required"
	}
	return errs
}

// apiMessage surfaces the server's message for rejected requests and a
// generic one for transport failures.
func apiMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"initial": func(name string) string {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
		if r == utf8.RuneError {
			return "?"
		}
		return strings.ToUpper(string(r))
	},
	"date": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"statusClass": func(s leads.Status) string {
		return "status-" + strings.ToLower(strings.NewReplacer(" ", "-").Replace(string(s)))
	},
}
