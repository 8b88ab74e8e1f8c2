package matching

import "time"

// ContactLimitPerDay caps how many distinct therapists a patient may initiate
// contact with per rolling 24-hour window.
const ContactLimitPerDay = 3

// ContactWindow is the rolling window the contact count is measured over.
const ContactWindow = 24 * time.Hour

// ContactDecision is the outcome of the contact rate check.
type ContactDecision struct {
	Allowed bool `json:"allowed"`
	Count   int  `json:"count"`
	Limit   int  `json:"limit"`
}

// CheckContactAllowed is the pure rate predicate over a caller-supplied count
// of patient-initiated contacts in the current window. The count itself comes
// from a time-bounded store query; this function does no I/O.
func CheckContactAllowed(count int) ContactDecision {
	return ContactDecision{
		Allowed: count < ContactLimitPerDay,
		Count:   count,
		Limit:   ContactLimitPerDay,
	}
}
