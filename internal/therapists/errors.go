package therapists

import "errors"

var (
	// ErrTherapistNotFound is returned when a therapist is not found
	ErrTherapistNotFound = errors.New("therapist not found")

	// ErrSlotNotFound is returned when an availability slot is not found
	ErrSlotNotFound = errors.New("availability slot not found")

	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidGender is returned for an unknown gender value
	ErrInvalidGender = errors.New("gender must be male, female or non_binary")

	// ErrInvalidFormat is returned for an unknown session format
	ErrInvalidFormat = errors.New("session format must be online or in_person")

	// ErrInvalidStatus is returned for an unknown verification status
	ErrInvalidStatus = errors.New("status must be pending or verified")

	// ErrInvalidSlotTime is returned when time_local is not HH:MM
	ErrInvalidSlotTime = errors.New("time_local must be HH:MM")

	// ErrInvalidSlotDay is returned when day_of_week is outside 0..6
	ErrInvalidSlotDay = errors.New("day_of_week must be between 0 and 6")

	// ErrSlotDateRequired is returned when a one-off slot has no specific date
	ErrSlotDateRequired = errors.New("one-off slot requires specific_date")

	// ErrSlotDateForbidden is returned when a recurring slot carries a specific date
	ErrSlotDateForbidden = errors.New("recurring slot must not carry specific_date")
)
