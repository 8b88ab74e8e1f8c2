package therapists

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Handler handles HTTP requests for the therapist directory
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new directory handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// ListDirectoryResponse is the public directory listing payload.
type ListDirectoryResponse struct {
	Therapists []PublicView `json:"therapists"`
	Count      int          `json:"count"`
}

// ListDirectory handles GET /api/v1/therapists requests. Only verified,
// non-hidden profiles are listed; city and modality narrow the result.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:   StatusVerified,
		City:     r.URL.Query().Get("city"),
		Modality: r.URL.Query().Get("modality"),
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list directory", "error", err)
		http.Error(w, "failed to list therapists", http.StatusInternalServerError)
		return
	}

	resp := ListDirectoryResponse{Therapists: make([]PublicView, 0, len(list)), Count: len(list)}
	for i := range list {
		resp.Therapists = append(resp.Therapists, list[i].Public())
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /admin/therapists requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTherapistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create therapist", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("therapist created", "id", t.ID, "name", t.Name)
	writeJSON(w, http.StatusCreated, t)
}

// Get handles GET /admin/therapists/{id} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "failed to get therapist")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListAdminResponse is the admin listing payload.
type ListAdminResponse struct {
	Therapists []Therapist `json:"therapists"`
	Count      int         `json:"count"`
}

// ListAdmin handles GET /admin/therapists requests (hidden rows included).
func (h *Handler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:        r.URL.Query().Get("status"),
		City:          r.URL.Query().Get("city"),
		Modality:      r.URL.Query().Get("modality"),
		IncludeHidden: true,
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list therapists", "error", err)
		http.Error(w, "failed to list therapists", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListAdminResponse{Therapists: list, Count: len(list)})
}

// Update handles PATCH /admin/therapists/{id} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateTherapistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, err, "failed to update therapist")
		return
	}

	h.logger.Info("therapist updated", "id", t.ID)
	writeJSON(w, http.StatusOK, t)
}

// Verify handles POST /admin/therapists/{id}/verify requests
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.SetStatus(r.Context(), id, StatusVerified); err != nil {
		h.respondError(w, err, "failed to verify therapist")
		return
	}
	h.logger.Info("therapist verified", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": StatusVerified})
}

// Hide handles POST /admin/therapists/{id}/hide requests
func (h *Handler) Hide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.SetHidden(r.Context(), id, true); err != nil {
		h.respondError(w, err, "failed to hide therapist")
		return
	}
	h.logger.Info("therapist hidden", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "hidden": true})
}

// CreateSlot handles POST /admin/therapists/{id}/slots requests
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.TherapistID = chi.URLParam(r, "id")

	slot, err := h.repo.CreateSlot(r.Context(), &req)
	if err != nil {
		h.respondError(w, err, "failed to create slot")
		return
	}

	h.logger.Info("availability slot created", "therapist_id", slot.TherapistID, "slot_id", slot.ID)
	writeJSON(w, http.StatusCreated, slot)
}

// ListSlotsResponse wraps a slot listing.
type ListSlotsResponse struct {
	Slots []AvailabilitySlot `json:"slots"`
	Count int                `json:"count"`
}

// ListSlots handles GET /admin/therapists/{id}/slots requests
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	slots, err := h.repo.ListSlots(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, ListSlotsResponse{Slots: slots, Count: len(slots)})
}

// DeleteSlot handles DELETE /admin/therapists/{id}/slots/{slotID} requests
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	therapistID := chi.URLParam(r, "id")
	slotID := chi.URLParam(r, "slotID")
	if err := h.repo.DeleteSlot(r.Context(), therapistID, slotID); err != nil {
		h.respondError(w, err, "failed to delete slot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrTherapistNotFound), errors.Is(err, ErrSlotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidGender),
		errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidSlotTime), errors.Is(err, ErrInvalidSlotDay),
		errors.Is(err, ErrSlotDateRequired), errors.Is(err, ErrSlotDateForbidden):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(logMsg, "error", err)
		http.Error(w, logMsg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
