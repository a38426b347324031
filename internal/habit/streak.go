package habit

import (
	"sort"
	"time"

	"healthOSAPI/utils"
)

// StreakStats is the derived streak state for one habit.
type StreakStats struct {
	Current           int
	Longest           int
	LastCompletedDate *time.Time
}

// ComputeStreak derives streak counters from the dates a habit was completed.
// Current is the length of the run of consecutive days ending at the latest
// completed date, or zero once that date is older than yesterday relative to
// today. Longest never drops below previousLongest. Duplicate dates count once.
func ComputeStreak(completed []time.Time, previousLongest int, today time.Time) StreakStats {
	stats := StreakStats{Longest: previousLongest}
	if len(completed) == 0 {
		return stats
	}

	days := make([]time.Time, 0, len(completed))
	for _, d := range completed {
		days = append(days, utils.DateOnly(d))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run, best := 1, 1
	for i := 1; i < len(days); i++ {
		switch utils.DaysBetween(days[i-1], days[i]) {
		case 0:
			continue
		case 1:
			run++
		default:
			run = 1
		}
		if run > best {
			best = run
		}
	}

	last := days[len(days)-1]
	stats.Current = CurrentOn(run, &last, today)
	stats.LastCompletedDate = &last
	if best > stats.Longest {
		stats.Longest = best
	}
	return stats
}

// CurrentOn is the current streak as seen on today: a run whose last
// completion is before yesterday has lapsed.
func CurrentOn(current int, lastCompleted *time.Time, today time.Time) int {
	if lastCompleted == nil || utils.DaysBetween(*lastCompleted, today) > 1 {
		return 0
	}
	return current
}
