package schedule

import (
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Conflict describes one existing schedule that collides with a candidate,
// along with the shared days and times so the collision can be explained to
// the user rather than reported as a bare boolean.
type Conflict struct {
	ScheduleID string
	Days       []Weekday
	Times      []timeutil.TimeOfDay
}

// CheckConflicts compares a candidate schedule against a user's existing
// schedules. Two schedules conflict only when all three dimensions collide:
// the day sets intersect, the time sets intersect, and the validity windows
// overlap. The check is symmetric and pairwise; the candidate excludes itself
// from the comparison set by identifier.
func CheckConflicts(candidate Schedule, existing []Schedule) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		days := intersectDays(candidate.Days, other.Days)
		if len(days) == 0 {
			continue
		}
		times := intersectTimes(candidate.Times, other.Times)
		if len(times) == 0 {
			continue
		}
		if !windowsOverlap(candidate, other) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ScheduleID: other.ID.String(),
			Days:       days,
			Times:      times,
		})
	}
	return conflicts
}

// windowsOverlap implements the validity-window policy: an unbounded window
// overlaps everything, and two windows are disjoint only when one's end date
// strictly precedes the other's start date.
func windowsOverlap(a, b Schedule) bool {
	if a.EndDate != nil && b.StartDate != nil && a.EndDate.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && a.StartDate != nil && b.EndDate.Before(*a.StartDate) {
		return false
	}
	return true
}

func intersectDays(a, b []Weekday) []Weekday {
	set := make(map[Weekday]bool, len(b))
	for _, d := range b {
		set[d] = true
	}
	var out []Weekday
	for _, d := range weekdayOrder {
		if set[d] && containsDay(a, d) {
			out = append(out, d)
		}
	}
	return out
}

func containsDay(days []Weekday, d Weekday) bool {
	for _, x := range days {
		if x == d {
			return true
		}
	}
	return false
}

func intersectTimes(a, b []timeutil.TimeOfDay) []timeutil.TimeOfDay {
	set := make(map[timeutil.TimeOfDay]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	var out []timeutil.TimeOfDay
	for _, t := range a {
		if set[t] {
			out = append(out, t)
		}
	}
	sortTimes(out)
	return out
}
