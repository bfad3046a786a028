package leads

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

var tracer = otel.Tracer("leadflow.internal.leads")

// ListResult is one page of a listing.
type ListResult struct {
	Leads      []*Lead `json:"leads"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// Stats aggregates the pipeline. StatusCounts always carries every status.
type Stats struct {
	Total          int64            `json:"total"`
	StatusCounts   map[Status]int64 `json:"statusCounts"`
	ConversionRate int              `json:"conversionRate"`
}

// NewStats builds Stats from per-status counts.
func NewStats(counts map[Status]int64) *Stats {
	stats := &Stats{StatusCounts: make(map[Status]int64, len(Statuses))}
	for _, s := range Statuses {
		stats.StatusCounts[s] = 0
	}
	for s, n := range counts {
		stats.Total += n
		if s.Valid() {
			stats.StatusCounts[s] = n
		}
	}
	if stats.Total > 0 {
		won := float64(stats.StatusCounts[StatusClosedWon])
		stats.ConversionRate = int(math.Round(100 * won / float64(stats.Total)))
	}
	return stats
}

// Service implements the lead operations on top of a Repository.
type Service struct {
	repo    Repository
	cache   StatsCache
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStatsCache caches Stats between writes. A nil cache is ignored.
func WithStatsCache(cache *RedisStatsCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithMetrics records per-operation counters and latency.
func WithMetrics(m *metrics.LeadMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lead service.
func NewService(repo Repository, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of leads matching params.
func (s *Service) List(ctx context.Context, params ListParams) (result *ListResult, err error) {
	ctx, done := s.start(ctx, "list")
	defer func() { done(err) }()

	q := params.Build()

	var (
		page  []*Lead
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, q)
		total = n
		return err
	})
	g.Go(func() error {
		found, err := s.repo.Find(gctx, q)
		page = found
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if page == nil {
		page = []*Lead{}
	}
	return &ListResult{
		Leads:      page,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: q.TotalPages(total),
	}, nil
}

// Create validates, normalizes and stores a new lead.
func (s *Service) Create(ctx context.Context, req CreateLeadRequest) (lead *Lead, err error) {
	ctx, done := s.start(ctx, "create")
	defer func() { done(err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The unique index has the final say; this only produces the friendly
	// error early.
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	now := s.timestamp()
	lead = &Lead{
		Name:      req.Name,
		Email:     req.Email,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, lead); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)

	s.logger.Info("lead created", "id", lead.ID, "status", lead.Status)
	return lead, nil
}

// Get fetches a lead by id. Unknown and malformed ids are not found.
func (s *Service) Get(ctx context.Context, id string) (lead *Lead, err error) {
	ctx, done := s.start(ctx, "get", attribute.String("leadflow.lead_id", id))
	defer func() { done(err) }()

	return s.repo.FindByID(ctx, id)
}

// Update applies the provided fields to an existing lead.
func (s *Service) Update(ctx context.Context, id string, req UpdateLeadRequest) (lead *Lead, err error) {
	ctx, done := s.start(ctx, "update", attribute.String("leadflow.lead_id", id))
	defer func() { done(err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := Changes{
		Name:      req.Name,
		Status:    req.Status,
		UpdatedAt: later(s.timestamp(), current.UpdatedAt),
	}
	if req.Email != nil && *req.Email != current.Email {
		if err := s.ensureEmailFree(ctx, *req.Email, id); err != nil {
			return nil, err
		}
		changes.Email = req.Email
	}

	lead, err = s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)

	s.logger.Info("lead updated", "id", lead.ID, "status", lead.Status)
	return lead, nil
}

// Delete removes a lead permanently.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, done := s.start(ctx, "delete", attribute.String("leadflow.lead_id", id))
	defer func() { done(err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)

	s.logger.Info("lead deleted", "id", id)
	return nil
}

// Stats counts leads per status and computes the conversion rate.
func (s *Service) Stats(ctx context.Context) (stats *Stats, err error) {
	ctx, done := s.start(ctx, "stats")
	defer func() { done(err) }()

	generation := int64(noGeneration)
	if s.cache != nil {
		cached, ok := s.cache.Get(ctx)
		s.metrics.ObserveStatsCache(ok)
		if ok {
			return cached, nil
		}
		// read before counting so a write that lands mid-count bumps it
		generation = s.cache.Generation(ctx)
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats = NewStats(counts)

	if s.cache != nil {
		s.cache.Set(ctx, generation, stats)
	}
	return stats, nil
}

// Ping checks the store connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrLeadNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	default:
		return ErrDuplicateEmail
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// timestamp is truncated to the millisecond, the precision of the document
// store.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// later returns now, or prev plus a millisecond when the clock has not moved
// past prev.
func later(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "leads."+op, trace.WithAttributes(attrs...))
	started := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			kind := KindOf(err)
			outcome = kind.String()
			span.RecordError(err)
			if kind == KindUnexpected {
				span.SetStatus(codes.Error, err.Error())
				s.logger.Error("lead operation failed", "operation", op, "error", err)
			}
		}
		s.metrics.ObserveOperation(op, outcome, time.Since(started).Seconds())
		span.End()
	}
}
