package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/praxisfinder/therapy-platform/internal/matching"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// Matcher runs the instant-match flow for a freshly created patient.
type Matcher interface {
	CreateInstantMatches(ctx context.Context, patient *patients.Patient) (*matching.Result, error)
}

// SummaryMailer sends the patient their candidate list.
type SummaryMailer interface {
	SendMatchSummary(ctx context.Context, patient *patients.Patient, candidates []therapists.PublicView, quality, matchURL string) error
}

// MatchView is one candidate in the intake response.
type MatchView struct {
	TherapistID     string            `json:"therapist_id"`
	Status          string            `json:"status"`
	Reasons         []matching.Reason `json:"reasons"`
	HasAvailability bool              `json:"has_availability"`
}

// Result is the intake outcome: the persisted patient plus whatever the match
// run produced.
type Result struct {
	Patient    *patients.Patient `json:"patient"`
	Matches    []MatchView       `json:"matches"`
	Quality    matching.Quality  `json:"quality"`
	MatchToken string            `json:"match_token,omitempty"`
	MatchURL   string            `json:"match_url,omitempty"`
}

// Service is the composite intake flow: persist the patient, run the match
// orchestrator, mail the summary. The patient record is the one thing that
// must never be lost; everything downstream degrades.
type Service struct {
	patients   patients.Repository
	therapists therapists.Repository
	matcher    Matcher
	mailer     SummaryMailer
	baseURL    string
	logger     *logging.Logger
	now        func() time.Time
}

// NewService creates the intake service.
func NewService(patientRepo patients.Repository, therapistRepo therapists.Repository, matcher Matcher, logger *logging.Logger) *Service {
	if patientRepo == nil {
		panic("intake: patient repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		patients:   patientRepo,
		therapists: therapistRepo,
		matcher:    matcher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithMailer attaches the match-summary mailer.
func (s *Service) WithMailer(m SummaryMailer) *Service {
	s.mailer = m
	return s
}

// WithBaseURL sets the public base URL the match link is built on.
func (s *Service) WithBaseURL(u string) *Service {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// WithClock overrides the time source, used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Submit persists the intake and runs the instant-match flow. A match failure
// after the patient is created degrades the response to an empty result
// instead of failing the submission.
func (s *Service) Submit(ctx context.Context, req *patients.CreatePatientRequest) (*Result, error) {
	patient, err := s.patients.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("intake: create patient: %w", err)
	}

	result := &Result{Patient: patient, Matches: []MatchView{}, Quality: matching.QualityNone}
	if s.matcher == nil {
		return result, nil
	}

	matchResult, err := s.matcher.CreateInstantMatches(ctx, patient)
	if err != nil {
		s.logger.Error("instant matching failed, returning degraded intake result",
			"error", err, "patient_id", patient.ID)
		return result, nil
	}

	result.Quality = matchResult.Quality
	result.MatchToken = matchResult.SecureToken
	if matchResult.SecureToken != "" && s.baseURL != "" {
		result.MatchURL = s.baseURL + "/matches/" + matchResult.SecureToken
	}
	result.Matches = s.matchViews(ctx, patient, matchResult.Matches)

	s.sendSummary(ctx, patient, matchResult, result.MatchURL)
	return result, nil
}

// matchViews joins the persisted matches with a live availability check.
func (s *Service) matchViews(ctx context.Context, patient *patients.Patient, matches []matching.Match) []MatchView {
	pref := matching.PreferenceFromPatient(patient)

	slotsByID := map[string][]therapists.AvailabilitySlot{}
	if s.therapists != nil && len(matches) > 0 {
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.TherapistID)
		}
		var err error
		slotsByID, err = s.therapists.ListActiveSlotsByTherapistIDs(ctx, ids)
		if err != nil {
			s.logger.Warn("slot lookup failed, availability flags default to false", "error", err)
			slotsByID = map[string][]therapists.AvailabilitySlot{}
		}
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, MatchView{
			TherapistID:     m.TherapistID,
			Status:          m.Status,
			Reasons:         m.Reasons,
			HasAvailability: matching.HasMatchingSlot(slotsByID[m.TherapistID], pref.TimeSlots, s.now(), matching.DefaultLookaheadDays),
		})
	}
	return views
}

// sendSummary mails the candidate list. Best-effort: the intake already
// succeeded.
func (s *Service) sendSummary(ctx context.Context, patient *patients.Patient, result *matching.Result, matchURL string) {
	if s.mailer == nil || patient.Email == "" {
		return
	}

	candidates := make([]therapists.PublicView, 0, len(result.Matches))
	if s.therapists != nil {
		for _, m := range result.Matches {
			t, err := s.therapists.GetByID(ctx, m.TherapistID)
			if err != nil {
				continue
			}
			candidates = append(candidates, t.Public())
		}
	}

	if err := s.mailer.SendMatchSummary(ctx, patient, candidates, string(result.Quality), matchURL); err != nil {
		s.logger.Error("match summary email failed", "error", err, "patient_id", patient.ID)
	}
}
