package matching

import (
	"strings"
	"time"

	"github.com/praxisfinder/therapy-platform/internal/matching/norm"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
)

// DefaultLookaheadDays bounds how far ahead the availability walk looks for a
// bookable slot.
const DefaultLookaheadDays = 21

// timeBucket is a coarse time-of-day (or weekend) request derived from the
// free-text intake labels.
type timeBucket int

const (
	bucketMorning timeBucket = iota
	bucketAfternoon
	bucketEvening
	bucketWeekend
)

// parseTimeBuckets maps raw intake labels ("Morgens (8–12 Uhr)", "Abends",
// "Am Wochenende", "Bin flexibel") onto buckets. A single label may imply
// several buckets. The second return value reports an explicit "flexible".
func parseTimeBuckets(labels []string) (map[timeBucket]bool, bool) {
	buckets := make(map[timeBucket]bool)
	flexible := false
	for _, label := range labels {
		n := norm.Normalize(label)
		if n == "" {
			continue
		}
		if strings.Contains(n, "flexib") || strings.Contains(n, "egal") {
			flexible = true
			continue
		}
		if strings.Contains(n, "vormittag") || strings.Contains(n, "morgen") || strings.Contains(n, "morning") {
			buckets[bucketMorning] = true
		}
		// "vormittag" contains "mittag"; only the bare mid-day words mean
		// afternoon.
		if strings.Contains(n, "nachmittag") || strings.Contains(n, "afternoon") ||
			(strings.Contains(n, "mittag") && !strings.Contains(n, "vormittag")) {
			buckets[bucketAfternoon] = true
		}
		if strings.Contains(n, "abend") || strings.Contains(n, "evening") {
			buckets[bucketEvening] = true
		}
		if strings.Contains(n, "wochenend") || strings.Contains(n, "weekend") {
			buckets[bucketWeekend] = true
		}
	}
	return buckets, flexible
}

// HasMatchingSlot reports whether any active slot satisfies the patient's
// time-of-day request within the lookahead horizon, walking day-by-day from
// tomorrow. No stated preference, or an explicit "flexible", matches
// immediately. Recurring slots repeat weekly until their EndDate; one-off
// slots count only on their SpecificDate's calendar day.
func HasMatchingSlot(slots []therapists.AvailabilitySlot, timeLabels []string, now time.Time, lookaheadDays int) bool {
	buckets, flexible := parseTimeBuckets(timeLabels)
	if flexible || len(buckets) == 0 {
		return true
	}
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for d := 1; d <= lookaheadDays; d++ {
		day := today.AddDate(0, 0, d)
		weekday := int(day.Weekday())
		isWeekend := weekday == 0 || weekday == 6

		for i := range slots {
			slot := &slots[i]
			if !slot.Active {
				continue
			}
			if !slotOccursOn(slot, day, weekday) {
				continue
			}
			if slotSatisfies(slot, buckets, isWeekend) {
				return true
			}
		}
	}
	return false
}

func slotOccursOn(slot *therapists.AvailabilitySlot, day time.Time, weekday int) bool {
	if slot.IsRecurring {
		if slot.DayOfWeek == nil || *slot.DayOfWeek != weekday {
			return false
		}
		if slot.EndDate != nil && day.After(*slot.EndDate) {
			return false
		}
		return true
	}
	if slot.SpecificDate == nil {
		return false
	}
	sd := *slot.SpecificDate
	return sd.Year() == day.Year() && sd.Month() == day.Month() && sd.Day() == day.Day()
}

func slotSatisfies(slot *therapists.AvailabilitySlot, buckets map[timeBucket]bool, isWeekend bool) bool {
	if buckets[bucketWeekend] && isWeekend {
		return true
	}
	hour := slot.Hour()
	if hour < 0 {
		return false
	}
	switch {
	case buckets[bucketMorning] && hour >= 8 && hour < 12:
		return true
	case buckets[bucketAfternoon] && hour >= 12 && hour < 17:
		return true
	case buckets[bucketEvening] && hour >= 17 && hour < 21:
		return true
	}
	return false
}
