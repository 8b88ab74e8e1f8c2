package patients

import (
	"strings"
	"time"
)

// Gender preference values a patient may state. Empty means no preference.
const (
	PreferenceMale   = "male"
	PreferenceFemale = "female"
	NoPreference     = "no_preference"
)

// Session formats a patient may request.
const (
	FormatOnline   = "online"
	FormatInPerson = "in_person"
)

// Patient is a persisted intake submission. The preference fields carry the
// patient's stated wishes verbatim; absence of a field means "matches
// anything", never "reject".
type Patient struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone,omitempty"`
	City               string    `json:"city,omitempty"`
	SessionPreference  string    `json:"session_preference,omitempty"`
	SessionPreferences []string  `json:"session_preferences,omitempty"`
	Specializations    []string  `json:"specializations,omitempty"`
	GenderPreference   string    `json:"gender_preference,omitempty"`
	TimeSlots          []string  `json:"time_slots,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// RequestedFormats merges the singular and plural form fields into one set.
// The singular field predates the multi-select intake form; both remain
// accepted.
func (p *Patient) RequestedFormats() []string {
	out := make([]string, 0, len(p.SessionPreferences)+1)
	seen := make(map[string]struct{}, len(p.SessionPreferences)+1)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	add(p.SessionPreference)
	for _, v := range p.SessionPreferences {
		add(v)
	}
	return out
}

// CreatePatientRequest is the intake payload.
type CreatePatientRequest struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	City               string   `json:"city"`
	SessionPreference  string   `json:"session_preference"`
	SessionPreferences []string `json:"session_preferences"`
	Specializations    []string `json:"specializations"`
	GenderPreference   string   `json:"gender_preference"`
	TimeSlots          []string `json:"time_slots"`
}

// Validate validates the intake request. Preference fields are deliberately
// lenient: only identity fields and enumerated values are checked, a missing
// preference is a valid "no preference".
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if r.GenderPreference != "" && r.GenderPreference != PreferenceMale &&
		r.GenderPreference != PreferenceFemale && r.GenderPreference != NoPreference {
		return ErrInvalidGenderPreference
	}
	if r.SessionPreference != "" && r.SessionPreference != FormatOnline && r.SessionPreference != FormatInPerson {
		return ErrInvalidSessionPreference
	}
	for _, f := range r.SessionPreferences {
		if f != FormatOnline && f != FormatInPerson {
			return ErrInvalidSessionPreference
		}
	}
	return nil
}
