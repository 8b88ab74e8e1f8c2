package patients

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrMissingEmail is returned when the email is missing
	ErrMissingEmail = errors.New("email is required")

	// ErrInvalidGenderPreference is returned for an unknown gender preference
	ErrInvalidGenderPreference = errors.New("gender_preference must be male, female or no_preference")

	// ErrInvalidSessionPreference is returned for an unknown session format
	ErrInvalidSessionPreference = errors.New("session preference must be online or in_person")

	// ErrPatientNotFound is returned when a patient is not found
	ErrPatientNotFound = errors.New("patient not found")
)
