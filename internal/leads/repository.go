package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the Record Store. Every implementation stores instants in
// UTC and orders "latest" by creation time, then by insertion sequence.
type Repository interface {
	Create(ctx context.Context, sub *Submission) (*Record, error)
	Update(ctx context.Context, id string, outcome Outcome) error
	GetByID(ctx context.Context, id string) (*Record, error)
	FindLatestByContact(ctx context.Context, contact string) (*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)
	MaxNameSuffix(ctx context.Context, source string) (int, error)
}

// InMemoryRepository is a Repository backed by process memory
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	seq     int64
	now     func() time.Time
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// WithClock overrides the creation clock (tests).
func (r *InMemoryRepository) WithClock(now func() time.Time) *InMemoryRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// Create stores a new pending record.
func (r *InMemoryRepository) Create(ctx context.Context, sub *Submission) (*Record, error) {
	if sub == nil || sub.Contact == "" {
		return nil, ErrMissingContact
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	now := r.now().UTC()
	rec := &Record{
		ID:         uuid.New().String(),
		Seq:        r.seq,
		Submission: *sub,
		Outcome:    Outcome{Status: StatusPending},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.records[rec.ID] = rec.Clone()
	return rec, nil
}

// Update replaces the outcome of an existing record.
func (r *InMemoryRepository) Update(ctx context.Context, id string, outcome Outcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Outcome = outcome
	rec.UpdatedAt = r.now().UTC()
	return nil
}

// GetByID retrieves a record by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// FindLatestByContact returns the most recently created record for contact.
func (r *InMemoryRepository) FindLatestByContact(ctx context.Context, contact string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Record
	for _, rec := range r.records {
		if rec.Contact != contact {
			continue
		}
		if latest == nil || rec.newer(latest) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrRecordNotFound
	}
	return latest.Clone(), nil
}

// ListAll returns every record, newest first.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Record, error) {
	r.mu.RLock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].newer(out[j]) })
	return out, nil
}

// MaxNameSuffix returns the largest customer-name suffix used for source.
func (r *InMemoryRepository) MaxNameSuffix(ctx context.Context, source string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	highest := 0
	for _, rec := range r.records {
		if rec.AcquisitionSource == source && rec.NameSuffix > highest {
			highest = rec.NameSuffix
		}
	}
	return highest, nil
}
