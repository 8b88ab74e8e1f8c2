package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UpsertMatchRequest carries one candidate's match row for persistence.
type UpsertMatchRequest struct {
	PatientID   string
	TherapistID string
	Status      string
	SecureToken string
	Reasons     []Reason
}

// Store persists match records. Upsert is the idempotency boundary: calling
// it twice with the same (patientID, therapistID) must yield one row, with
// the original token and status preserved, so a double-submitted intake form
// cannot create duplicate therapist contact attempts.
type Store interface {
	Upsert(ctx context.Context, req UpsertMatchRequest) (*Match, error)
	GetByID(ctx context.Context, id string) (*Match, error)
	ListByToken(ctx context.Context, token string) ([]Match, error)
	UpdateStatus(ctx context.Context, id, status string) error
	MarkContactInitiated(ctx context.Context, id string, at time.Time) error

	// CountContactInitiatedSince feeds the contact rate predicate: the
	// number of distinct patient-initiated matches since the cutoff.
	CountContactInitiatedSince(ctx context.Context, patientID string, since time.Time) (int, error)
}

// InMemoryStore is a Store backed by process memory, used in tests and local
// development without a database.
type InMemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*Match
	// byPair indexes match IDs by patientID+"\x00"+therapistID
	byPair map[string]string
}

// NewInMemoryStore creates an empty in-memory match store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		matches: make(map[string]*Match),
		byPair:  make(map[string]string),
	}
}

var _ Store = (*InMemoryStore)(nil)

func pairKey(patientID, therapistID string) string {
	return patientID + "\x00" + therapistID
}

// Upsert creates the match row or, when the pair already exists, refreshes
// updated_at and returns the existing row untouched.
func (s *InMemoryStore) Upsert(ctx context.Context, req UpsertMatchRequest) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.byPair[pairKey(req.PatientID, req.TherapistID)]; ok {
		existing := s.matches[id]
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	m := &Match{
		ID:          uuid.New().String(),
		PatientID:   req.PatientID,
		TherapistID: req.TherapistID,
		Status:      req.Status,
		SecureToken: req.SecureToken,
		Reasons:     req.Reasons,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.matches[m.ID] = m
	s.byPair[pairKey(m.PatientID, m.TherapistID)] = m.ID
	copied := *m
	return &copied, nil
}

// GetByID retrieves a match by ID
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

// ListByToken returns all matches sharing a secure token in creation order.
func (s *InMemoryStore) ListByToken(ctx context.Context, token string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Match{}
	for _, m := range s.matches {
		if m.SecureToken == token {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus sets a match status without transition validation; callers
// check CanTransition first.
func (s *InMemoryStore) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkContactInitiated records that the patient separately reached out to
// this therapist. Metadata enrichment only, the status is untouched.
func (s *InMemoryStore) MarkContactInitiated(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return ErrMatchNotFound
	}
	m.PatientInitiated = true
	m.ContactedAt = &at
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// CountContactInitiatedSince counts patient-initiated contacts in the window.
func (s *InMemoryStore) CountContactInitiatedSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.matches {
		if m.PatientID == patientID && m.PatientInitiated &&
			m.ContactedAt != nil && m.ContactedAt.After(since) {
			count++
		}
	}
	return count, nil
}
