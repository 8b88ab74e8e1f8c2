package therapists

import (
	"strconv"
	"strings"
	"time"
)

// Gender values a profile may carry. Empty means unknown.
const (
	GenderMale      = "male"
	GenderFemale    = "female"
	GenderNonBinary = "non_binary"
)

// Verification workflow states.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

// Session formats a therapist can offer.
const (
	FormatOnline   = "online"
	FormatInPerson = "in_person"
)

// Availability slot kinds. Intro slots are free get-to-know calls, full
// slots are regular session openings.
const (
	SlotKindIntro = "intro"
	SlotKindFull  = "full"
)

// Therapist is a directory row. Matching reads it as a candidate projection;
// the admin API manages its lifecycle.
type Therapist struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Gender             string    `json:"gender,omitempty"`
	City               string    `json:"city,omitempty"`
	SessionPreferences []string  `json:"session_preferences"`
	Modalities         []string  `json:"modalities"`
	AcceptingNew       *bool     `json:"accepting_new,omitempty"`
	Status             string    `json:"status"`
	Hidden             bool      `json:"hidden"`
	Profile            Profile   `json:"profile"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Profile carries the quality signals the platform score reads. Absent
// fields default to their zero value and simply contribute nothing.
type Profile struct {
	PhotoURL        string `json:"photo_url,omitempty"`
	About           string `json:"about,omitempty"`
	Approach        string `json:"approach,omitempty"`
	Qualifications  string `json:"qualifications,omitempty"`
	YearsExperience int    `json:"years_experience,omitempty"`
}

// IsAcceptingNew treats an absent flag as true.
func (t *Therapist) IsAcceptingNew() bool {
	return t.AcceptingNew == nil || *t.AcceptingNew
}

// PublicView strips contact details for patient-facing responses.
type PublicView struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Gender             string   `json:"gender,omitempty"`
	City               string   `json:"city,omitempty"`
	SessionPreferences []string `json:"session_preferences"`
	Modalities         []string `json:"modalities"`
	PhotoURL           string   `json:"photo_url,omitempty"`
	About              string   `json:"about,omitempty"`
	Approach           string   `json:"approach,omitempty"`
	Qualifications     string   `json:"qualifications,omitempty"`
	YearsExperience    int      `json:"years_experience,omitempty"`
}

// Public returns the patient-facing projection.
func (t *Therapist) Public() PublicView {
	return PublicView{
		ID:                 t.ID,
		Name:               t.Name,
		Gender:             t.Gender,
		City:               t.City,
		SessionPreferences: t.SessionPreferences,
		Modalities:         t.Modalities,
		PhotoURL:           t.Profile.PhotoURL,
		About:              t.Profile.About,
		Approach:           t.Profile.Approach,
		Qualifications:     t.Profile.Qualifications,
		YearsExperience:    t.Profile.YearsExperience,
	}
}

// AvailabilitySlot is a bookable opening. A recurring slot repeats weekly on
// DayOfWeek until EndDate (if set); a one-off slot exists only on
// SpecificDate, with DayOfWeek derived from it at creation.
type AvailabilitySlot struct {
	ID           string     `json:"id"`
	TherapistID  string     `json:"therapist_id"`
	DayOfWeek    *int       `json:"day_of_week,omitempty"`
	TimeLocal    string     `json:"time_local"`
	Format       string     `json:"format"`
	Kind         string     `json:"kind"`
	Active       bool       `json:"active"`
	IsRecurring  bool       `json:"is_recurring"`
	SpecificDate *time.Time `json:"specific_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Hour parses the hour out of TimeLocal. Returns -1 for malformed values.
func (s *AvailabilitySlot) Hour() int {
	hh, _, ok := strings.Cut(s.TimeLocal, ":")
	if !ok {
		return -1
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	return h
}

// CreateTherapistRequest is the admin create payload.
type CreateTherapistRequest struct {
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Gender             string   `json:"gender"`
	City               string   `json:"city"`
	SessionPreferences []string `json:"session_preferences"`
	Modalities         []string `json:"modalities"`
	AcceptingNew       *bool    `json:"accepting_new"`
	Profile            Profile  `json:"profile"`
}

// Validate validates the create request
func (r *CreateTherapistRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Gender != "" && r.Gender != GenderMale && r.Gender != GenderFemale && r.Gender != GenderNonBinary {
		return ErrInvalidGender
	}
	for _, f := range r.SessionPreferences {
		if f != FormatOnline && f != FormatInPerson {
			return ErrInvalidFormat
		}
	}
	return nil
}

// UpdateTherapistRequest is the admin partial-update payload. Nil fields are
// left untouched.
type UpdateTherapistRequest struct {
	Name               *string   `json:"name"`
	Email              *string   `json:"email"`
	Gender             *string   `json:"gender"`
	City               *string   `json:"city"`
	SessionPreferences *[]string `json:"session_preferences"`
	Modalities         *[]string `json:"modalities"`
	AcceptingNew       *bool     `json:"accepting_new"`
	Profile            *Profile  `json:"profile"`
}

// Validate validates the update request
func (r *UpdateTherapistRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.Gender != nil && *r.Gender != "" &&
		*r.Gender != GenderMale && *r.Gender != GenderFemale && *r.Gender != GenderNonBinary {
		return ErrInvalidGender
	}
	if r.SessionPreferences != nil {
		for _, f := range *r.SessionPreferences {
			if f != FormatOnline && f != FormatInPerson {
				return ErrInvalidFormat
			}
		}
	}
	return nil
}

// Apply copies the non-nil fields onto the therapist.
func (r *UpdateTherapistRequest) Apply(t *Therapist) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Email != nil {
		t.Email = *r.Email
	}
	if r.Gender != nil {
		t.Gender = *r.Gender
	}
	if r.City != nil {
		t.City = *r.City
	}
	if r.SessionPreferences != nil {
		t.SessionPreferences = *r.SessionPreferences
	}
	if r.Modalities != nil {
		t.Modalities = *r.Modalities
	}
	if r.AcceptingNew != nil {
		t.AcceptingNew = r.AcceptingNew
	}
	if r.Profile != nil {
		t.Profile = *r.Profile
	}
}

// CreateSlotRequest is the admin payload for adding an availability slot.
type CreateSlotRequest struct {
	TherapistID  string     `json:"-"`
	DayOfWeek    *int       `json:"day_of_week"`
	TimeLocal    string     `json:"time_local"`
	Format       string     `json:"format"`
	Kind         string     `json:"kind"`
	Active       *bool      `json:"active"`
	IsRecurring  bool       `json:"is_recurring"`
	SpecificDate *time.Time `json:"specific_date"`
	EndDate      *time.Time `json:"end_date"`
}

// Validate enforces the slot invariants: recurring slots carry a weekday and
// no date, one-off slots carry a date from which the weekday is derived.
func (r *CreateSlotRequest) Validate() error {
	if !validTimeLocal(r.TimeLocal) {
		return ErrInvalidSlotTime
	}
	if r.Format != FormatOnline && r.Format != FormatInPerson {
		return ErrInvalidFormat
	}
	if r.IsRecurring {
		if r.SpecificDate != nil {
			return ErrSlotDateForbidden
		}
		if r.DayOfWeek == nil || *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return ErrInvalidSlotDay
		}
	} else {
		if r.SpecificDate == nil {
			return ErrSlotDateRequired
		}
	}
	return nil
}

func validTimeLocal(v string) bool {
	hh, mm, ok := strings.Cut(v, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}
