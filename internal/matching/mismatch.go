package matching

import (
	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
)

// Evaluate computes the structured mismatch reasons for one patient/therapist
// pair. Each rule is independent, there is no short-circuiting, and the
// function is total: absent or malformed fields degrade to "no preference" on
// the patient side and "no capability" on the therapist side, never to an
// error. Reasons come back in declaration order (gender, location, modality)
// so downstream payloads are deterministic.
func Evaluate(pref Preference, t therapists.Therapist) Evaluation {
	var reasons []Reason

	if genderMismatch(pref, t) {
		reasons = append(reasons, ReasonGender)
	}
	if locationMismatch(pref, t) {
		reasons = append(reasons, ReasonLocation)
	}
	if modalityMismatch(pref, t) {
		reasons = append(reasons, ReasonModality)
	}

	return Evaluation{Reasons: reasons, IsPerfect: len(reasons) == 0}
}

// genderMismatch flags only a specific preference against a known, differing
// gender. "no_preference" and an unknown therapist gender never flag.
func genderMismatch(pref Preference, t therapists.Therapist) bool {
	if pref.GenderPreference != patientPrefMale && pref.GenderPreference != patientPrefFemale {
		return false
	}
	if t.Gender == "" {
		return false
	}
	return t.Gender != pref.GenderPreference
}

const (
	patientPrefMale   = "male"
	patientPrefFemale = "female"
)

// locationMismatch flags an empty intersection between the requested and
// offered session formats. No requested format never flags; a therapist
// offering nothing bookable mismatches every concrete request.
func locationMismatch(pref Preference, t therapists.Therapist) bool {
	requested := pref.NormalizedFormats()
	if len(requested) == 0 {
		return false
	}
	return !norm.Intersects(requested, norm.NormalizeSet(t.SessionPreferences))
}

// modalityMismatch flags when none of the requested specializations appear in
// the therapist's modalities, compared in the normalized identifier space.
func modalityMismatch(pref Preference, t therapists.Therapist) bool {
	requested := pref.NormalizedSpecializations()
	if len(requested) == 0 {
		return false
	}
	return !norm.Intersects(requested, norm.NormalizeSet(t.Modalities))
}

// ReasonStrings converts reasons to their wire representation.
func ReasonStrings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

// ReasonsFromStrings parses persisted reason tags, dropping unknown values.
func ReasonsFromStrings(raw []string) []Reason {
	out := make([]Reason, 0, len(raw))
	for _, s := range raw {
		switch Reason(s) {
		case ReasonGender, ReasonLocation, ReasonModality:
			out = append(out, Reason(s))
		}
	}
	return out
}
