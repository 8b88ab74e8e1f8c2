package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/praxisfinder/therapy-platform/internal/events"
	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
	"github.com/praxisfinder/therapy-platform/internal/observability/metrics"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

var matchTracer = otel.Tracer("praxisfinder/matching")

// DefaultMaxCandidates bounds how many matches one orchestration run creates.
const DefaultMaxCandidates = 3

// TherapistSource supplies the candidate pool: verified, non-hidden
// directory rows in stable ID order.
type TherapistSource interface {
	ListVerified(ctx context.Context) ([]therapists.Therapist, error)
}

// SlotSource supplies active availability slots grouped by therapist.
type SlotSource interface {
	ListActiveSlotsByTherapistIDs(ctx context.Context, ids []string) (map[string][]therapists.AvailabilitySlot, error)
}

// EventSink records side-effect events. Implemented by the outbox store.
// Failures are logged, never propagated.
type EventSink interface {
	Insert(ctx context.Context, eventType string, payload any) (uuid.UUID, error)
}

// Orchestrator runs the instant-match flow: evaluate the pool, rank,
// truncate, persist exactly once per (patient, therapist) pair.
type Orchestrator struct {
	therapists TherapistSource
	slots      SlotSource
	store      Store
	sink       EventSink
	logger     *logging.Logger
	metrics    *metrics.MatchingMetrics

	maxCandidates int
	lookaheadDays int
	now           func() time.Time
}

// NewOrchestrator wires an orchestrator with default knobs.
func NewOrchestrator(ts TherapistSource, ss SlotSource, store Store, logger *logging.Logger) *Orchestrator {
	if ts == nil {
		panic("matching: therapist source required")
	}
	if store == nil {
		panic("matching: match store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		therapists:    ts,
		slots:         ss,
		store:         store,
		logger:        logger,
		maxCandidates: DefaultMaxCandidates,
		lookaheadDays: DefaultLookaheadDays,
		now:           time.Now,
	}
}

// WithEventSink attaches the outbox.
func (o *Orchestrator) WithEventSink(sink EventSink) *Orchestrator {
	o.sink = sink
	return o
}

// WithMetrics attaches matching metrics.
func (o *Orchestrator) WithMetrics(m *metrics.MatchingMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithMaxCandidates overrides the candidate cap.
func (o *Orchestrator) WithMaxCandidates(n int) *Orchestrator {
	if n > 0 {
		o.maxCandidates = n
	}
	return o
}

// WithLookaheadDays overrides the availability horizon.
func (o *Orchestrator) WithLookaheadDays(n int) *Orchestrator {
	if n > 0 {
		o.lookaheadDays = n
	}
	return o
}

// WithClock overrides the time source, used in tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
	}
	return o
}

type candidate struct {
	therapist therapists.Therapist
	reasons   []Reason
	// score is the ordinal instant-match key: the negated reason count.
	// The rich weighted scoring serves the match-detail page instead.
	score           int
	hasAvailability bool
}

// CreateInstantMatches evaluates the verified pool against the patient's
// preferences and persists up to maxCandidates match rows, all sharing one
// secure token. Availability is a tie-break between equally scored
// candidates, never a filter. A pool or slot read failure is fatal; a single
// match write failure skips that candidate and continues.
func (o *Orchestrator) CreateInstantMatches(ctx context.Context, patient *patients.Patient) (*Result, error) {
	ctx, span := matchTracer.Start(ctx, "matching.create_instant_matches")
	defer span.End()
	span.SetAttributes(attribute.String("praxisfinder.patient_id", patient.ID))

	started := o.now()
	pref := PreferenceFromPatient(patient)

	pool, err := o.therapists.ListVerified(ctx)
	if err != nil {
		return nil, fmt.Errorf("matching: fetch therapist pool: %w", err)
	}

	eligible := make([]therapists.Therapist, 0, len(pool))
	ids := make([]string, 0, len(pool))
	for _, t := range pool {
		if !t.IsAcceptingNew() || t.Hidden {
			continue
		}
		eligible = append(eligible, t)
		ids = append(ids, t.ID)
	}

	slotsByID := map[string][]therapists.AvailabilitySlot{}
	if o.slots != nil && len(ids) > 0 {
		slotsByID, err = o.slots.ListActiveSlotsByTherapistIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("matching: fetch slot pool: %w", err)
		}
	}

	candidates := make([]candidate, 0, len(eligible))
	for _, t := range eligible {
		eval := Evaluate(pref, t)
		candidates = append(candidates, candidate{
			therapist:       t,
			reasons:         eval.Reasons,
			score:           -len(eval.Reasons),
			hasAvailability: HasMatchingSlot(slotsByID[t.ID], pref.TimeSlots, o.now(), o.lookaheadDays),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].hasAvailability && !candidates[j].hasAvailability
	})

	if len(candidates) > o.maxCandidates {
		candidates = candidates[:o.maxCandidates]
	}

	quality := classifyQuality(candidates)
	span.SetAttributes(
		attribute.String("match.quality", string(quality)),
		attribute.Int("match.candidates", len(candidates)),
	)

	result := &Result{Matches: []Match{}, Quality: quality}
	if len(candidates) == 0 {
		o.recordRun(ctx, patient, pref, result, nil, started)
		return result, nil
	}

	token := uuid.New().String()
	for _, c := range candidates {
		m, err := o.store.Upsert(ctx, UpsertMatchRequest{
			PatientID:   patient.ID,
			TherapistID: c.therapist.ID,
			Status:      StatusSuggested,
			SecureToken: token,
			Reasons:     c.reasons,
		})
		if err != nil {
			o.metrics.ObserveWriteFailure()
			o.logger.Error("match write failed, skipping candidate",
				"error", err,
				"patient_id", patient.ID,
				"therapist_id", c.therapist.ID,
			)
			continue
		}
		result.Matches = append(result.Matches, *m)
	}

	if len(result.Matches) == 0 {
		// Candidates existed but nothing could be persisted; callers and
		// monitoring must be able to tell this apart from an empty pool.
		return nil, ErrAllWritesFailed
	}

	// A retried run finds the existing rows; their original shared token is
	// the one the patient's link carries.
	result.SecureToken = result.Matches[0].SecureToken

	o.recordRun(ctx, patient, pref, result, candidates, started)
	o.logger.Info("match run complete",
		"patient_id", patient.ID,
		"quality", string(result.Quality),
		"matches", len(result.Matches),
	)
	return result, nil
}

// classifyQuality applies the top-candidate rule: exact iff the best-ranked
// candidate is a perfect fit.
func classifyQuality(candidates []candidate) Quality {
	if len(candidates) == 0 {
		return QualityNone
	}
	if len(candidates[0].reasons) == 0 {
		return QualityExact
	}
	return QualityPartial
}

func (o *Orchestrator) recordRun(ctx context.Context, patient *patients.Patient, pref Preference, result *Result, candidates []candidate, started time.Time) {
	o.metrics.ObserveRun(string(result.Quality), o.now().Sub(started).Seconds())
	if o.sink == nil {
		return
	}

	therapistIDs := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		therapistIDs = append(therapistIDs, m.TherapistID)
	}
	reasons := aggregateReasons(candidates)

	summary := events.MatchSummaryComputedV1{
		PatientID:    patient.ID,
		MatchType:    string(result.Quality),
		TherapistIDs: therapistIDs,
		Reasons:      reasons,
		OccurredAt:   o.now().UTC(),
	}
	if _, err := o.sink.Insert(ctx, summary.EventType(), summary); err != nil {
		o.logger.Error("failed to record match summary event", "error", err, "patient_id", patient.ID)
	}

	if result.Quality != QualityExact {
		opportunity := events.BusinessOpportunityV1{
			PatientID:         patient.ID,
			City:              pref.City,
			MissingModalities: o.missingModalities(ctx, pref),
			Reasons:           reasons,
			OccurredAt:        o.now().UTC(),
		}
		if _, err := o.sink.Insert(ctx, opportunity.EventType(), opportunity); err != nil {
			o.logger.Error("failed to record business opportunity event", "error", err, "patient_id", patient.ID)
		}
	}
}

// aggregateReasons flattens the mismatch reasons across the selected
// candidates, deduplicated in declaration order.
func aggregateReasons(candidates []candidate) []string {
	seen := map[Reason]bool{}
	for _, c := range candidates {
		for _, r := range c.reasons {
			seen[r] = true
		}
	}
	out := []string{}
	for _, r := range []Reason{ReasonGender, ReasonLocation, ReasonModality} {
		if seen[r] {
			out = append(out, string(r))
		}
	}
	return out
}

// missingModalities lists the requested specializations that no verified
// therapist offers at all: the signal for directory recruitment.
func (o *Orchestrator) missingModalities(ctx context.Context, pref Preference) []string {
	requested := pref.NormalizedSpecializations()
	if len(requested) == 0 {
		return nil
	}
	pool, err := o.therapists.ListVerified(ctx)
	if err != nil {
		return nil
	}
	offered := []string{}
	for _, t := range pool {
		offered = append(offered, t.Modalities...)
	}
	offeredSet := norm.NormalizeSet(offered)
	missing := []string{}
	for _, want := range requested {
		if !norm.Contains(offeredSet, want) {
			missing = append(missing, want)
		}
	}
	return missing
}
