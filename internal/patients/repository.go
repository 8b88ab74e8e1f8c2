package patients

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]Patient, error)
}

// InMemoryRepository is a Repository backed by process memory, used in tests
// and local development without a database.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

// NewInMemoryRepository creates an empty in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
	}
}

var _ Repository = (*InMemoryRepository)(nil)

// Create stores a new patient intake record.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &Patient{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		City:               req.City,
		SessionPreference:  req.SessionPreference,
		SessionPreferences: req.SessionPreferences,
		Specializations:    req.Specializations,
		GenderPreference:   req.GenderPreference,
		TimeSlots:          req.TimeSlots,
		CreatedAt:          time.Now().UTC(),
	}

	r.mu.Lock()
	r.patients[p.ID] = p
	r.mu.Unlock()

	copied := *p
	return &copied, nil
}

// GetByID retrieves a patient by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

// List returns patients newest-first.
func (r *InMemoryRepository) List(ctx context.Context, limit, offset int) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Patient{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
