package events

import (
	"errors"
	"time"
)

// Event type identifiers carried on the outbox rows and as message
// attributes on the queue.
const (
	EventTypeMatchSummaryComputed = "match.summary.computed.v1"
	EventTypeBusinessOpportunity  = "match.business.opportunity.v1"
	EventTypeContactRequested     = "match.contact.requested.v1"
)

// MatchSummaryComputedV1 is emitted after every orchestration run with the
// mismatch-reason aggregate across the selected candidates.
type MatchSummaryComputedV1 struct {
	PatientID    string    `json:"patient_id"`
	MatchType    string    `json:"match_type"`
	TherapistIDs []string  `json:"therapist_ids"`
	Reasons      []string  `json:"reasons"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (MatchSummaryComputedV1) EventType() string { return EventTypeMatchSummaryComputed }

// Validate checks required fields.
func (e MatchSummaryComputedV1) Validate() error {
	if e.PatientID == "" {
		return errors.New("events: patient_id required")
	}
	if e.MatchType == "" {
		return errors.New("events: match_type required")
	}
	return nil
}

// BusinessOpportunityV1 is emitted when a run could not produce an exact
// result: demand the current directory cannot serve.
type BusinessOpportunityV1 struct {
	PatientID         string    `json:"patient_id"`
	City              string    `json:"city,omitempty"`
	MissingModalities []string  `json:"missing_modalities,omitempty"`
	Reasons           []string  `json:"reasons"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func (BusinessOpportunityV1) EventType() string { return EventTypeBusinessOpportunity }

// Validate checks required fields.
func (e BusinessOpportunityV1) Validate() error {
	if e.PatientID == "" {
		return errors.New("events: patient_id required")
	}
	return nil
}

// ContactRequestedV1 is emitted when a patient initiates direct contact with
// one of their matched therapists.
type ContactRequestedV1 struct {
	PatientID   string    `json:"patient_id"`
	TherapistID string    `json:"therapist_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (ContactRequestedV1) EventType() string { return EventTypeContactRequested }

// Validate checks required fields.
func (e ContactRequestedV1) Validate() error {
	if e.PatientID == "" {
		return errors.New("events: patient_id required")
	}
	if e.TherapistID == "" {
		return errors.New("events: therapist_id required")
	}
	return nil
}
