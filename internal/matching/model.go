package matching

import (
	"time"

	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
	"github.com/praxisfinder/therapy-platform/internal/patients"
)

// Reason tags why a candidate is not a perfect fit.
type Reason string

const (
	ReasonGender   Reason = "gender"
	ReasonLocation Reason = "location"
	ReasonModality Reason = "modality"
)

// Evaluation is the structured mismatch result for one patient/therapist pair.
type Evaluation struct {
	Reasons   []Reason `json:"reasons"`
	IsPerfect bool     `json:"is_perfect"`
}

// Quality classifies an orchestration result as a whole.
type Quality string

const (
	QualityExact   Quality = "exact"
	QualityPartial Quality = "partial"
	QualityNone    Quality = "none"
)

// Match lifecycle states. Instant matches start in suggested; manually
// curated ones in proposed. Terminal states are read-only except for the
// contact metadata fields.
const (
	StatusSuggested       = "suggested"
	StatusProposed        = "proposed"
	StatusPatientSelected = "patient_selected"
	StatusAccepted        = "accepted"
	StatusRejected        = "rejected"
)

// CanTransition reports whether a status change is a legal lifecycle step.
func CanTransition(from, to string) bool {
	switch to {
	case StatusPatientSelected:
		return from == StatusSuggested || from == StatusProposed
	case StatusAccepted, StatusRejected:
		return from == StatusPatientSelected
	default:
		return false
	}
}

// Match is a persisted patient/therapist pairing. All matches created in one
// orchestration run share a SecureToken so a single link can reveal them.
type Match struct {
	ID               string     `json:"id"`
	PatientID        string     `json:"patient_id"`
	TherapistID      string     `json:"therapist_id"`
	Status           string     `json:"status"`
	SecureToken      string     `json:"secure_token"`
	Reasons          []Reason   `json:"reasons"`
	PatientInitiated bool       `json:"patient_initiated"`
	ContactedAt      *time.Time `json:"contacted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Result is what an orchestration run returns: the persisted matches in rank
// order plus the overall quality classification.
type Result struct {
	Matches     []Match `json:"matches"`
	Quality     Quality `json:"quality"`
	SecureToken string  `json:"secure_token,omitempty"`
}

// Preference is the ephemeral matching view of a patient's stated wishes.
// Zero values mean "no preference".
type Preference struct {
	City             string
	Formats          []string
	Specializations  []string
	GenderPreference string
	TimeSlots        []string
}

// PreferenceFromPatient derives the matching view from an intake record.
func PreferenceFromPatient(p *patients.Patient) Preference {
	if p == nil {
		return Preference{}
	}
	return Preference{
		City:             p.City,
		Formats:          p.RequestedFormats(),
		Specializations:  p.Specializations,
		GenderPreference: p.GenderPreference,
		TimeSlots:        p.TimeSlots,
	}
}

// NormalizedFormats returns the requested session formats in the canonical
// identifier space.
func (p Preference) NormalizedFormats() []string {
	return norm.NormalizeSet(p.Formats)
}

// NormalizedSpecializations returns the requested modalities in the canonical
// identifier space.
func (p Preference) NormalizedSpecializations() []string {
	return norm.NormalizeSet(p.Specializations)
}
