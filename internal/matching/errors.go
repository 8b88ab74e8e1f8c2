package matching

import "errors"

var (
	// ErrMatchNotFound is returned when no match row exists for the lookup
	ErrMatchNotFound = errors.New("match not found")

	// ErrInvalidTransition is returned for an illegal status change
	ErrInvalidTransition = errors.New("invalid match status transition")

	// ErrInvalidStatus is returned for an unknown match status value
	ErrInvalidStatus = errors.New("unknown match status")

	// ErrContactLimitExceeded is returned when a patient hits the daily
	// contact cap
	ErrContactLimitExceeded = errors.New("contact limit exceeded")

	// ErrAllWritesFailed is returned when the orchestrator had candidates
	// but could not persist a single match. Distinct from the legitimate
	// "no eligible therapists" outcome so monitoring can alert on it.
	ErrAllWritesFailed = errors.New("matching: all match writes failed")
)
