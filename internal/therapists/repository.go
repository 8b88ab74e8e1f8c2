package therapists

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
)

// ListFilter narrows admin and directory listings. Zero values mean no
// constraint; Modality is compared in the normalized identifier space.
type ListFilter struct {
	Status        string
	City          string
	Modality      string
	IncludeHidden bool
}

// Repository defines the interface for therapist and slot storage
type Repository interface {
	Create(ctx context.Context, req *CreateTherapistRequest) (*Therapist, error)
	GetByID(ctx context.Context, id string) (*Therapist, error)
	List(ctx context.Context, filter ListFilter) ([]Therapist, error)
	Update(ctx context.Context, id string, req *UpdateTherapistRequest) (*Therapist, error)
	SetStatus(ctx context.Context, id string, status string) error
	SetHidden(ctx context.Context, id string, hidden bool) error

	// ListVerified returns the matching pool: verified, not hidden, in
	// stable ID order so downstream ranking stays deterministic.
	ListVerified(ctx context.Context) ([]Therapist, error)

	CreateSlot(ctx context.Context, req *CreateSlotRequest) (*AvailabilitySlot, error)
	ListSlots(ctx context.Context, therapistID string) ([]AvailabilitySlot, error)
	ListActiveSlotsByTherapistIDs(ctx context.Context, ids []string) (map[string][]AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, therapistID, slotID string) error
}

// InMemoryRepository is a Repository backed by process memory, used in tests
// and local development without a database.
type InMemoryRepository struct {
	mu         sync.RWMutex
	therapists map[string]*Therapist
	slots      map[string][]*AvailabilitySlot
}

// NewInMemoryRepository creates an empty in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		therapists: make(map[string]*Therapist),
		slots:      make(map[string][]*AvailabilitySlot),
	}
}

var _ Repository = (*InMemoryRepository)(nil)

// Create registers a new therapist in pending state.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateTherapistRequest) (*Therapist, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Therapist{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Email:              req.Email,
		Gender:             req.Gender,
		City:               req.City,
		SessionPreferences: req.SessionPreferences,
		Modalities:         req.Modalities,
		AcceptingNew:       req.AcceptingNew,
		Status:             StatusPending,
		Profile:            req.Profile,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	r.mu.Lock()
	r.therapists[t.ID] = t
	r.mu.Unlock()

	copied := *t
	return &copied, nil
}

// GetByID retrieves a therapist by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Therapist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.therapists[id]
	if !ok {
		return nil, ErrTherapistNotFound
	}
	copied := *t
	return &copied, nil
}

// List returns therapists matching the filter in stable ID order.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]Therapist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Therapist, 0, len(r.therapists))
	for _, t := range r.therapists {
		if !matchesFilter(t, filter) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesFilter(t *Therapist, filter ListFilter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if !filter.IncludeHidden && t.Hidden {
		return false
	}
	if filter.City != "" && !strings.EqualFold(t.City, filter.City) {
		return false
	}
	if filter.Modality != "" && !norm.Contains(norm.NormalizeSet(t.Modalities), filter.Modality) {
		return false
	}
	return true
}

// Update applies a partial update.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateTherapistRequest) (*Therapist, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.therapists[id]
	if !ok {
		return nil, ErrTherapistNotFound
	}
	req.Apply(t)
	t.UpdatedAt = time.Now().UTC()
	copied := *t
	return &copied, nil
}

// SetStatus moves a therapist through the verification workflow.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status string) error {
	if status != StatusPending && status != StatusVerified {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.therapists[id]
	if !ok {
		return ErrTherapistNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetHidden toggles administrative hiding.
func (r *InMemoryRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.therapists[id]
	if !ok {
		return ErrTherapistNotFound
	}
	t.Hidden = hidden
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ListVerified returns the matching pool in stable ID order.
func (r *InMemoryRepository) ListVerified(ctx context.Context) ([]Therapist, error) {
	return r.List(ctx, ListFilter{Status: StatusVerified})
}

// CreateSlot adds an availability slot, deriving the weekday for one-off rows.
func (r *InMemoryRepository) CreateSlot(ctx context.Context, req *CreateSlotRequest) (*AvailabilitySlot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.therapists[req.TherapistID]; !ok {
		return nil, ErrTherapistNotFound
	}

	slot := newSlotFromRequest(req)
	r.slots[req.TherapistID] = append(r.slots[req.TherapistID], slot)
	copied := *slot
	return &copied, nil
}

func newSlotFromRequest(req *CreateSlotRequest) *AvailabilitySlot {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	kind := req.Kind
	if kind == "" {
		kind = SlotKindFull
	}
	slot := &AvailabilitySlot{
		ID:           uuid.New().String(),
		TherapistID:  req.TherapistID,
		DayOfWeek:    req.DayOfWeek,
		TimeLocal:    req.TimeLocal,
		Format:       req.Format,
		Kind:         kind,
		Active:       active,
		IsRecurring:  req.IsRecurring,
		SpecificDate: req.SpecificDate,
		EndDate:      req.EndDate,
		CreatedAt:    time.Now().UTC(),
	}
	if !slot.IsRecurring && slot.SpecificDate != nil {
		dow := int(slot.SpecificDate.Weekday())
		slot.DayOfWeek = &dow
	}
	return slot
}

// ListSlots returns all slots for one therapist.
func (r *InMemoryRepository) ListSlots(ctx context.Context, therapistID string) ([]AvailabilitySlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.therapists[therapistID]; !ok {
		return nil, ErrTherapistNotFound
	}
	out := make([]AvailabilitySlot, 0, len(r.slots[therapistID]))
	for _, s := range r.slots[therapistID] {
		out = append(out, *s)
	}
	return out, nil
}

// ListActiveSlotsByTherapistIDs returns active slots grouped by therapist.
func (r *InMemoryRepository) ListActiveSlotsByTherapistIDs(ctx context.Context, ids []string) (map[string][]AvailabilitySlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]AvailabilitySlot, len(ids))
	for _, id := range ids {
		for _, s := range r.slots[id] {
			if !s.Active {
				continue
			}
			out[id] = append(out[id], *s)
		}
	}
	return out, nil
}

// DeleteSlot removes a slot.
func (r *InMemoryRepository) DeleteSlot(ctx context.Context, therapistID, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := r.slots[therapistID]
	for i, s := range slots {
		if s.ID == slotID {
			r.slots[therapistID] = append(slots[:i], slots[i+1:]...)
			return nil
		}
	}
	return ErrSlotNotFound
}
