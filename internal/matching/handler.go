package matching

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praxisfinder/therapy-platform/internal/events"
	"github.com/praxisfinder/therapy-platform/internal/observability/metrics"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Notifier sends the contact-request email to the therapist. Delivery
// failures are logged, never surfaced to the patient.
type Notifier interface {
	SendContactRequest(ctx context.Context, therapist *therapists.Therapist, patient *patients.Patient) error
}

// Handler serves the patient-facing match endpoints addressed by secure
// token, plus the admin status transition.
type Handler struct {
	store      Store
	therapists therapists.Repository
	patients   patients.Repository
	velocity   *ContactVelocityChecker
	notifier   Notifier
	sink       EventSink
	logger     *logging.Logger
	metrics    *metrics.MatchingMetrics
	now        func() time.Time
}

// NewHandler creates a match handler.
func NewHandler(store Store, therapistRepo therapists.Repository, patientRepo patients.Repository, logger *logging.Logger) *Handler {
	if store == nil {
		panic("matching: match store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:      store,
		therapists: therapistRepo,
		patients:   patientRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// WithVelocity attaches the redis abuse guard.
func (h *Handler) WithVelocity(v *ContactVelocityChecker) *Handler {
	h.velocity = v
	return h
}

// WithNotifier attaches the contact-request mailer.
func (h *Handler) WithNotifier(n Notifier) *Handler {
	h.notifier = n
	return h
}

// WithEventSink attaches the outbox.
func (h *Handler) WithEventSink(sink EventSink) *Handler {
	h.sink = sink
	return h
}

// WithMetrics attaches matching metrics.
func (h *Handler) WithMetrics(m *metrics.MatchingMetrics) *Handler {
	h.metrics = m
	return h
}

// WithClock overrides the time source, used in tests.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	if now != nil {
		h.now = now
	}
	return h
}

// MatchDetail is one candidate on the match page: the persisted match joined
// with the therapist's public profile and the rich weighted scores.
type MatchDetail struct {
	MatchID         string                `json:"match_id"`
	Status          string                `json:"status"`
	Reasons         []Reason              `json:"reasons"`
	MatchScore      int                   `json:"match_score"`
	PlatformScore   int                   `json:"platform_score"`
	TotalScore      float64               `json:"total_score"`
	IsPerfect       bool                  `json:"is_perfect"`
	HasAvailability bool                  `json:"has_availability"`
	Therapist       therapists.PublicView `json:"therapist"`
}

// GetMatchesResponse is the match-detail page payload.
type GetMatchesResponse struct {
	Matches []MatchDetail `json:"matches"`
	Count   int           `json:"count"`
}

// GetByToken handles GET /api/v1/matches/{token} requests. Candidates are
// re-scored on the rich path with live slot counts and returned in
// descending total-score order.
func (h *Handler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	matches, err := h.store.ListByToken(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to list matches", "error", err)
		http.Error(w, "failed to load matches", http.StatusInternalServerError)
		return
	}
	if len(matches) == 0 {
		http.Error(w, ErrMatchNotFound.Error(), http.StatusNotFound)
		return
	}

	details, err := h.enrich(r.Context(), matches)
	if err != nil {
		h.logger.Error("failed to enrich matches", "error", err)
		http.Error(w, "failed to load matches", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GetMatchesResponse{Matches: details, Count: len(details)})
}

// enrich joins each match with its therapist profile and recomputes the
// weighted scores from current data, then ranks by total score. The stable
// sort keeps equal totals in stored creation order.
func (h *Handler) enrich(ctx context.Context, matches []Match) ([]MatchDetail, error) {
	patient, err := h.patients.GetByID(ctx, matches[0].PatientID)
	if err != nil {
		return nil, err
	}
	pref := PreferenceFromPatient(patient)

	ids := make([]string, 0, len(matches))
	pool := make([]therapists.Therapist, 0, len(matches))
	byID := make(map[string]Match, len(matches))
	for _, m := range matches {
		t, err := h.therapists.GetByID(ctx, m.TherapistID)
		if err != nil {
			// A since-removed therapist should not break the whole page.
			h.logger.Warn("match references unknown therapist", "therapist_id", m.TherapistID)
			continue
		}
		ids = append(ids, t.ID)
		pool = append(pool, *t)
		byID[t.ID] = m
	}

	slotsByID, err := h.therapists.ListActiveSlotsByTherapistIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]SlotCounts, len(slotsByID))
	for id, slots := range slotsByID {
		counts[id] = CountSlots(slots)
	}

	ranked := RankCandidates(pref, pool, counts)
	details := make([]MatchDetail, 0, len(ranked))
	for _, rc := range ranked {
		m := byID[rc.TherapistID]
		details = append(details, MatchDetail{
			MatchID:         m.ID,
			Status:          m.Status,
			Reasons:         rc.Reasons,
			MatchScore:      rc.MatchScore,
			PlatformScore:   rc.PlatformScore,
			TotalScore:      rc.TotalScore,
			IsPerfect:       rc.IsPerfect,
			HasAvailability: HasMatchingSlot(slotsByID[rc.TherapistID], pref.TimeSlots, h.now(), DefaultLookaheadDays),
			Therapist:       rc.Therapist.Public(),
		})
	}
	return details, nil
}

type therapistActionRequest struct {
	TherapistID string `json:"therapist_id"`
}

// Select handles POST /api/v1/matches/{token}/select requests: the patient
// picks one therapist from their candidates.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req therapistActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TherapistID == "" {
		http.Error(w, "therapist_id required", http.StatusBadRequest)
		return
	}

	m, ok := h.findMatch(w, r, token, req.TherapistID)
	if !ok {
		return
	}
	if !CanTransition(m.Status, StatusPatientSelected) {
		http.Error(w, ErrInvalidTransition.Error(), http.StatusConflict)
		return
	}
	if err := h.store.UpdateStatus(r.Context(), m.ID, StatusPatientSelected); err != nil {
		h.respondStoreError(w, err, "failed to select match")
		return
	}

	h.logger.Info("patient selected therapist", "match_id", m.ID, "therapist_id", m.TherapistID)
	writeJSON(w, http.StatusOK, map[string]string{"match_id": m.ID, "status": StatusPatientSelected})
}

// Contact handles POST /api/v1/matches/{token}/contact requests: the patient
// initiates direct contact with one matched therapist, bounded by the
// rolling-window contact cap.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req therapistActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TherapistID == "" {
		http.Error(w, "therapist_id required", http.StatusBadRequest)
		return
	}

	m, ok := h.findMatch(w, r, token, req.TherapistID)
	if !ok {
		return
	}

	// Fast redis guard first; fail-open, the store count below is
	// authoritative.
	if h.velocity != nil {
		if res := h.velocity.Check(r.Context(), m.PatientID); !res.Allowed {
			h.metrics.ObserveContactDecision(false)
			writeJSON(w, http.StatusTooManyRequests, ContactDecision{Allowed: false, Count: res.CurrentCount, Limit: res.MaxAllowed})
			return
		}
	}

	since := h.now().Add(-ContactWindow)
	count, err := h.store.CountContactInitiatedSince(r.Context(), m.PatientID, since)
	if err != nil {
		h.logger.Error("failed to count recent contacts", "error", err, "patient_id", m.PatientID)
		http.Error(w, "failed to check contact limit", http.StatusInternalServerError)
		return
	}
	decision := CheckContactAllowed(count)
	h.metrics.ObserveContactDecision(decision.Allowed)
	if !decision.Allowed {
		h.logger.Warn("contact limit exceeded", "patient_id", m.PatientID, "count", decision.Count)
		writeJSON(w, http.StatusTooManyRequests, decision)
		return
	}

	contactedAt := h.now().UTC()
	if err := h.store.MarkContactInitiated(r.Context(), m.ID, contactedAt); err != nil {
		h.respondStoreError(w, err, "failed to record contact")
		return
	}

	h.notifyContact(r.Context(), m)

	writeJSON(w, http.StatusOK, map[string]any{
		"match_id": m.ID,
		"allowed":  true,
		"count":    decision.Count + 1,
		"limit":    decision.Limit,
	})
}

// notifyContact emails the therapist and records the event. Both are
// best-effort; the contact itself is already persisted.
func (h *Handler) notifyContact(ctx context.Context, m *Match) {
	if h.notifier != nil {
		therapist, terr := h.therapists.GetByID(ctx, m.TherapistID)
		patient, perr := h.patients.GetByID(ctx, m.PatientID)
		if terr == nil && perr == nil {
			if err := h.notifier.SendContactRequest(ctx, therapist, patient); err != nil {
				h.logger.Error("contact request email failed", "error", err, "match_id", m.ID)
			}
		}
	}
	if h.sink != nil {
		evt := events.ContactRequestedV1{
			PatientID:   m.PatientID,
			TherapistID: m.TherapistID,
			OccurredAt:  h.now().UTC(),
		}
		if _, err := h.sink.Insert(ctx, evt.EventType(), evt); err != nil {
			h.logger.Error("failed to record contact event", "error", err, "match_id", m.ID)
		}
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /admin/matches/{id}/status requests: the
// therapist's accept/reject response, recorded by an operator.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Status != StatusAccepted && req.Status != StatusRejected {
		http.Error(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "failed to get match")
		return
	}
	if !CanTransition(m.Status, req.Status) {
		http.Error(w, ErrInvalidTransition.Error(), http.StatusConflict)
		return
	}
	if err := h.store.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.respondStoreError(w, err, "failed to update match status")
		return
	}

	h.logger.Info("match status updated", "match_id", id, "status", req.Status)
	writeJSON(w, http.StatusOK, map[string]string{"match_id": id, "status": req.Status})
}

// findMatch resolves the (token, therapistID) pair to its match row, writing
// the error response on failure.
func (h *Handler) findMatch(w http.ResponseWriter, r *http.Request, token, therapistID string) (*Match, bool) {
	matches, err := h.store.ListByToken(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to list matches", "error", err)
		http.Error(w, "failed to load matches", http.StatusInternalServerError)
		return nil, false
	}
	for i := range matches {
		if matches[i].TherapistID == therapistID {
			return &matches[i], true
		}
	}
	http.Error(w, ErrMatchNotFound.Error(), http.StatusNotFound)
	return nil, false
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, logMsg string) {
	if errors.Is(err, ErrMatchNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.logger.Error(logMsg, "error", err)
	http.Error(w, logMsg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
