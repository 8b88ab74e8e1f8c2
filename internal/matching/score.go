package matching

import (
	"sort"

	"github.com/praxisfinder/therapy-platform/internal/therapists"
)

// Score bounds. The match score measures patient fit, the platform score
// measures therapist-intrinsic profile and booking quality; both are kept in
// documented ranges so the combined key behaves predictably.
const (
	MatchScoreMax    = 100
	PlatformScoreMax = 65

	// mismatchPenalty is subtracted once per mismatch reason.
	mismatchPenalty = 35

	// perfectTotalThreshold is the fallback criterion for candidates that
	// score highly despite one soft mismatch.
	perfectTotalThreshold = 120
)

// MatchScore rates patient fit from the mismatch reasons: a fixed penalty per
// reason off a full baseline, floored at zero.
func MatchScore(reasons []Reason) int {
	score := MatchScoreMax - mismatchPenalty*len(reasons)
	if score < 0 {
		return 0
	}
	return score
}

// PlatformScore rates a therapist's intrinsic profile quality and booking
// capacity, independent of any patient. Monotonic in every input: filling a
// profile field or adding a bookable slot never lowers the score. Capacity
// contributions saturate at five slots of each kind.
func PlatformScore(t therapists.Therapist, introSlots, fullSlots int) int {
	score := 0
	if t.Profile.PhotoURL != "" {
		score += 10
	}
	if t.Profile.About != "" {
		score += 8
	}
	if t.Profile.Approach != "" {
		score += 8
	}
	if t.Profile.Qualifications != "" {
		score += 9
	}
	score += clamp(t.Profile.YearsExperience, 10)
	score += 2 * clamp(introSlots, 5)
	score += 2 * clamp(fullSlots, 5)

	if score > PlatformScoreMax {
		score = PlatformScoreMax
	}
	return score
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// TotalScore combines both scores into the ranking key. The 1.5 weighting
// deliberately favors patient fit over platform quality.
func TotalScore(matchScore, platformScore int) float64 {
	return float64(matchScore)*1.5 + float64(platformScore)
}

// IsPerfectTotal classifies a candidate as perfect. Zero mismatch reasons is
// the primary criterion; the numeric threshold catches candidates whose other
// axes outweigh a single soft mismatch.
func IsPerfectTotal(totalScore float64, reasons []Reason) bool {
	return len(reasons) == 0 || totalScore >= perfectTotalThreshold
}

// RankedCandidate is one fully scored therapist on the rich ranking path that
// serves the match-detail page.
type RankedCandidate struct {
	Therapist     therapists.Therapist `json:"-"`
	TherapistID   string               `json:"therapist_id"`
	Reasons       []Reason             `json:"reasons"`
	MatchScore    int                  `json:"match_score"`
	PlatformScore int                  `json:"platform_score"`
	TotalScore    float64              `json:"total_score"`
	IsPerfect     bool                 `json:"is_perfect"`
}

// SlotCounts carries the active intro/full slot tallies feeding the platform
// score's capacity signal.
type SlotCounts struct {
	Intro int
	Full  int
}

// CountSlots tallies active slots by kind.
func CountSlots(slots []therapists.AvailabilitySlot) SlotCounts {
	var c SlotCounts
	for _, s := range slots {
		if !s.Active {
			continue
		}
		if s.Kind == therapists.SlotKindIntro {
			c.Intro++
		} else {
			c.Full++
		}
	}
	return c
}

// RankCandidates scores every candidate against the preference and sorts by
// descending total score. The sort is stable over the input order, so equal
// totals keep the source query's therapist ID ordering and repeated calls
// reproduce the same ranking.
func RankCandidates(pref Preference, pool []therapists.Therapist, slotCounts map[string]SlotCounts) []RankedCandidate {
	out := make([]RankedCandidate, 0, len(pool))
	for _, t := range pool {
		eval := Evaluate(pref, t)
		ms := MatchScore(eval.Reasons)
		ps := PlatformScore(t, slotCounts[t.ID].Intro, slotCounts[t.ID].Full)
		total := TotalScore(ms, ps)
		out = append(out, RankedCandidate{
			Therapist:     t,
			TherapistID:   t.ID,
			Reasons:       eval.Reasons,
			MatchScore:    ms,
			PlatformScore: ps,
			TotalScore:    total,
			IsPerfect:     IsPerfectTotal(total, eval.Reasons),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}
