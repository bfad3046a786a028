package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	// Insert stores a new lead and assigns its ID. It returns
	// ErrDuplicateEmail when the email is already taken.
	Insert(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	// FindByEmail looks up a normalized email; ErrLeadNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*Lead, error)
	Update(ctx context.Context, id string, changes Changes) (*Lead, error)
	Delete(ctx context.Context, id string) error
	Find(ctx context.Context, q Query) ([]*Lead, error)
	Count(ctx context.Context, q Query) (int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	Ping(ctx context.Context) error
}

// Changes is a partial update as persisted by a Repository.
type Changes struct {
	Name      *string
	Email     *string
	Status    *Status
	UpdatedAt time.Time
}

// InMemoryRepository keeps leads in a map. It backs tests and the
// STORE_DRIVER=memory mode.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(lead.Email, "") {
		return ErrDuplicateEmail
	}
	lead.ID = uuid.New().String()
	stored := *lead
	r.leads[lead.ID] = &stored
	return nil
}

// FindByID retrieves a lead by ID
func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	found := *lead
	return &found, nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.Email == email {
			found := *lead
			return &found, nil
		}
	}
	return nil, ErrLeadNotFound
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, changes Changes) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if changes.Email != nil && r.emailTakenLocked(*changes.Email, id) {
		return nil, ErrDuplicateEmail
	}
	if changes.Name != nil {
		lead.Name = *changes.Name
	}
	if changes.Email != nil {
		lead.Email = *changes.Email
	}
	if changes.Status != nil {
		lead.Status = *changes.Status
	}
	lead.UpdatedAt = changes.UpdatedAt
	updated := *lead
	return &updated, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

func (r *InMemoryRepository) Find(ctx context.Context, q Query) ([]*Lead, error) {
	r.mu.RLock()
	matched := r.matchLocked(q)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return less(matched[i], matched[j], q)
	})

	start := q.Skip()
	if start >= len(matched) {
		return []*Lead{}, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *InMemoryRepository) Count(ctx context.Context, q Query) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matchLocked(q))), nil
}

func (r *InMemoryRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int64)
	for _, lead := range r.leads {
		counts[lead.Status]++
	}
	return counts, nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *InMemoryRepository) emailTakenLocked(email, exceptID string) bool {
	for id, lead := range r.leads {
		if id != exceptID && lead.Email == email {
			return true
		}
	}
	return false
}

// matchLocked returns copies of the leads matching q's criteria.
func (r *InMemoryRepository) matchLocked(q Query) []*Lead {
	term := strings.ToLower(q.Search)
	matched := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if q.Status != nil && lead.Status != *q.Status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(lead.Name), term) &&
			!strings.Contains(strings.ToLower(lead.Email), term) {
			continue
		}
		copied := *lead
		matched = append(matched, &copied)
	}
	return matched
}

func less(a, b *Lead, q Query) bool {
	var cmp int
	switch q.SortBy {
	case SortByName:
		cmp = strings.Compare(a.Name, b.Name)
	case SortByEmail:
		cmp = strings.Compare(a.Email, b.Email)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp == 0 {
		cmp = strings.Compare(a.ID, b.ID)
	}
	if q.Ascending() {
		return cmp < 0
	}
	return cmp > 0
}
