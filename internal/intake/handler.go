package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Handler handles the public intake endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an intake handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("intake: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Submit handles POST /api/v1/intake requests.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req patients.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode intake request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("intake failed", "error", err)
		http.Error(w, "failed to process intake", http.StatusInternalServerError)
		return
	}

	h.logger.Info("intake processed",
		"patient_id", result.Patient.ID,
		"quality", string(result.Quality),
		"matches", len(result.Matches),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		patients.ErrInvalidName,
		patients.ErrMissingEmail,
		patients.ErrInvalidGenderPreference,
		patients.ErrInvalidSessionPreference,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
